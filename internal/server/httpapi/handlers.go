package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/server/auth"
	"github.com/dmitrijs2005/fieldsync/internal/server/models"
)

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := s.storage.GetUserByName(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		s.log.Error(r.Context(), "user lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !auth.VerifyPassword(req.Password, user.Salt, user.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := auth.GenerateToken(user.ID, s.jwtSecret, s.tokenValidity)
	if err != nil {
		s.log.Error(r.Context(), "token generation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) Ping(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// CheckSubmission reports whether the server already holds a record for the
// (formID, localID) pair: 200 with the record, or 204 when absent.
func (s *Server) CheckSubmission(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "formID")
	localID := chi.URLParam(r, "localID")

	sub, err := s.storage.GetSubmission(r.Context(), formID, localID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		s.log.Error(r.Context(), "submission lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// CreateSubmission stores an uploaded record. Re-uploading identical data is
// idempotent (200 with the existing server id); diverged data yields 409
// with the server's current record in the body.
func (s *Server) CreateSubmission(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LocalID   string         `json:"local_id"`
		FormID    string         `json:"form_id"`
		Data      map[string]any `json:"data"`
		CreatedAt int64          `json:"created_at"`
		UpdatedAt int64          `json:"updated_at"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.LocalID == "" || req.FormID == "" {
		writeError(w, http.StatusUnprocessableEntity, "local_id and form_id are required")
		return
	}

	existing, err := s.storage.GetSubmission(r.Context(), req.FormID, req.LocalID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		s.log.Error(r.Context(), "submission lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing != nil {
		if jsonEqual(existing.Data, req.Data) {
			writeJSON(w, http.StatusOK, map[string]string{"server_id": existing.ID})
			return
		}
		writeJSON(w, http.StatusConflict, existing)
		return
	}

	sub := &models.Submission{
		LocalID:   req.LocalID,
		FormID:    req.FormID,
		UserID:    getUserID(r.Context()),
		Data:      req.Data,
		CreatedAt: req.CreatedAt,
		UpdatedAt: req.UpdatedAt,
	}
	if sub.UpdatedAt == 0 {
		sub.UpdatedAt = time.Now().UnixMilli()
	}
	if err := s.storage.CreateSubmission(r.Context(), sub); err != nil {
		s.log.Error(r.Context(), "submission create failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.log.Info(r.Context(), "submission stored",
		"server_id", sub.ID, "form_id", sub.FormID, "local_id", sub.LocalID)
	writeJSON(w, http.StatusCreated, map[string]string{"server_id": sub.ID})
}

func jsonEqual(a, b map[string]any) bool {
	ab, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return string(ab) == string(bb)
}

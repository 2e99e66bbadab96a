// Package httpapi is the dev server's HTTP surface: login, reachability
// probe, submission create and the conflict/existence check.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/logging"
	"github.com/dmitrijs2005/fieldsync/internal/server/auth"
	"github.com/dmitrijs2005/fieldsync/internal/server/models"
	"github.com/dmitrijs2005/fieldsync/internal/server/storage"
)

// Server bundles the handlers' dependencies.
type Server struct {
	storage       storage.Repository
	jwtSecret     []byte
	tokenValidity time.Duration
	log           logging.Logger
}

func NewServer(st storage.Repository, jwtSecret []byte, tokenValidity time.Duration, log logging.Logger) *Server {
	return &Server{
		storage:       st,
		jwtSecret:     jwtSecret,
		tokenValidity: tokenValidity,
		log:           log,
	}
}

// SeedUser creates an account with a fresh salt. Used at startup and in
// tests; the dev server has no self-registration endpoint.
func (s *Server) SeedUser(ctx context.Context, username, password string) error {
	salt, err := common.GenerateRandByteArray(32)
	if err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}
	return s.storage.CreateUser(ctx, &models.User{
		Username:     username,
		Salt:         salt,
		PasswordHash: auth.HashPassword(password, salt),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/fieldsync/internal/server/auth"
)

type contextKey string

const userIDKey contextKey = "user_id"

// authMiddleware validates the Bearer token and installs the user id into
// the request context.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		userID, err := auth.GetUserIDFromToken(strings.TrimPrefix(header, "Bearer "), s.jwtSecret)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getUserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

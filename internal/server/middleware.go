package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"session-control-plane/internal/security"
)

type contextKey string

const userIDKey contextKey = "userID"

// UserID returns the authenticated user id stored by requireAccessToken,
// or "" when the request is unauthenticated.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// requireAccessToken validates the bearer access token and stores the subject
// in the request context. Expired tokens get a distinct message so clients
// know to rotate rather than re-login.
func (s *Server) requireAccessToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get("Authorization"))
		if raw == "" || !strings.HasPrefix(raw, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		userID, err := s.verifier.VerifyAccess(strings.TrimPrefix(raw, "Bearer "))
		if err != nil {
			if errors.Is(err, security.ErrExpiredToken) {
				writeError(w, http.StatusUnauthorized, "access token expired")
				return
			}
			writeError(w, http.StatusUnauthorized, "invalid access token")
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// internalOnly guards gateway and operator endpoints with a shared secret.
// With no secret configured the routes are disabled entirely.
func (s *Server) internalOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.internalSecret == "" {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		got := r.Header.Get("X-Internal-Secret")
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.internalSecret)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Package middleware provides the HTTP middleware chain: identity resolution
// for both authentication modes, panic recovery, request logging and gzip
// handling.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/atinyakov/go-shortlink/internal/app/service"
	"github.com/atinyakov/go-shortlink/internal/models"
)

// ContextKey is a custom type used for keys in the context.
type ContextKey string

// UserIDKey is the key under which the resolved user id is stored. Handlers
// read it without caring which authentication mode produced it.
const UserIDKey ContextKey = "userID"

// InjectUserID adds the user id to the request context. Exported for tests.
func InjectUserID(req *http.Request, userID string) *http.Request {
	ctx := context.WithValue(req.Context(), UserIDKey, userID)
	return req.WithContext(ctx)
}

// UserIDFrom extracts the resolved user id from the context.
func UserIDFrom(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok && userID != ""
}

// WithSession resolves identity from the session cookie. A missing, expired
// or malformed cookie produces the same uniform unauthorized response.
func WithSession(auth service.AuthIface) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie("token")
			if err != nil {
				writeError(w, service.ErrUnauthorized)
				return
			}

			claims, err := auth.ParseClaims(cookie)
			if err != nil || claims.UserID == "" {
				writeError(w, service.ErrUnauthorized)
				return
			}

			next.ServeHTTP(w, InjectUserID(r, claims.UserID))
		})
	}
}

// WithAPIKey resolves identity from a bearer token in the Authorization
// header. Absent, malformed and non-verifying keys are indistinguishable to
// the caller: all produce the same unauthorized response.
func WithAPIKey(codec service.KeyCodecIface) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := bearerToken(r)
			if key == "" {
				writeError(w, service.ErrUnauthorized)
				return
			}

			userID, err := codec.Verify(r.Context(), key)
			if err != nil {
				writeError(w, service.ErrUnauthorized)
				return
			}

			next.ServeHTTP(w, InjectUserID(r, userID))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func writeError(w http.ResponseWriter, apiErr *models.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Code)
	_ = json.NewEncoder(w).Encode(models.NewErrorResponse(apiErr))
}

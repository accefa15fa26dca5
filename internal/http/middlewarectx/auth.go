// Package middlewarectx holds the cross-cutting HTTP middleware of the
// request pipeline (§4.8): bearer authentication, per-route-group rate
// limiting, and security headers. Adapted from the teacher's gRPC-backed
// JWTMiddleware onto the in-process internal/lib/token verifier.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hostplane/controlplane/internal/apperr"
	"github.com/hostplane/controlplane/internal/http/response"
	"github.com/hostplane/controlplane/internal/lib/sl"
)

type ctxKey int

// UserIDKey is the context key a handler reads the authenticated user id
// from, set by Auth.
const UserIDKey ctxKey = iota

// TokenVerifier verifies an opaque bearer token and returns the user id it
// carries. *token.Maker satisfies it.
type TokenVerifier interface {
	Verify(tokenStr string) (string, error)
}

// Auth requires a valid "Bearer <token>" Authorization header, injecting
// the verified user id into the request context. Missing header ⇒
// AuthRequired; malformed or invalid token ⇒ AuthFailed (the same kind
// regardless of which check failed, per token.Maker's contract).
func Auth(verifier TokenVerifier, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				response.Error(w, r, apperr.New(apperr.AuthRequired, "missing Authorization header"))
				return
			}
			tokenStr, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || tokenStr == "" {
				response.Error(w, r, apperr.New(apperr.AuthFailed, "malformed Authorization header"))
				return
			}

			userID, err := verifier.Verify(tokenStr)
			if err != nil {
				log.Warn("bearer token rejected", sl.Err(err))
				response.Error(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFrom extracts the authenticated user id set by Auth. Handlers
// behind Auth can assume ok is always true; it is false only if the
// middleware was not mounted.
func UserIDFrom(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(UserIDKey).(string)
	return v, ok
}

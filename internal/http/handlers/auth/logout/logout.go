// Package logout implements POST /api/auth/logout. Tokens are stateless
// bearer tokens with no server-side session, so logout has nothing to
// revoke; it exists to give clients a uniform endpoint to call when
// discarding their token, and to confirm the caller is currently
// authenticated.
package logout

import (
	"log/slog"
	"net/http"

	"github.com/hostplane/controlplane/internal/apperr"
	"github.com/hostplane/controlplane/internal/http/middlewarectx"
	"github.com/hostplane/controlplane/internal/http/response"
)

type Handler struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Handler {
	return &Handler{log: log}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if _, ok := middlewarectx.UserIDFrom(r.Context()); !ok {
		response.Error(w, r, apperr.New(apperr.AuthRequired, "missing authenticated user"))
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"message": "logged out"})
}

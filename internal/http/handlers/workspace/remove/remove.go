// Package remove implements DELETE /api/workspaces/{id}.
package remove

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/hostplane/controlplane/internal/apperr"
	"github.com/hostplane/controlplane/internal/http/middlewarectx"
	"github.com/hostplane/controlplane/internal/http/response"
	"github.com/hostplane/controlplane/internal/lib/sl"
)

// Service is the lifecycle surface this handler depends on.
type Service interface {
	Delete(ctx context.Context, ownerID, id string) error
}

type Handler struct {
	log     *slog.Logger
	service Service
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// @Summary      Delete a workspace
// @Tags         workspaces
// @Param        id path string true "Workspace ID"
// @Success      204
// @Failure      404 {object} response.ErrorResponse
// @Router       /api/workspaces/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := middlewarectx.UserIDFrom(r.Context())
	if !ok {
		response.Error(w, r, apperr.New(apperr.AuthRequired, "missing authenticated user"))
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		h.log.Error("failed to delete workspace", sl.Err(err), slog.String("workspace_id", id))
		response.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Package get implements GET /api/workspaces/{id}.
package get

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/hostplane/controlplane/internal/apperr"
	"github.com/hostplane/controlplane/internal/http/middlewarectx"
	"github.com/hostplane/controlplane/internal/http/response"
	"github.com/hostplane/controlplane/internal/lib/sl"
	"github.com/hostplane/controlplane/internal/models"
)

// Service is the single-workspace lookup surface this handler depends on.
type Service interface {
	Get(ctx context.Context, ownerID, id string) (*models.Workspace, error)
}

type Handler struct {
	log     *slog.Logger
	service Service
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// @Summary      Get a workspace
// @Tags         workspaces
// @Produce      json
// @Param        id path string true "Workspace ID"
// @Success      200 {object} map[string]any
// @Failure      404 {object} response.ErrorResponse
// @Router       /api/workspaces/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := middlewarectx.UserIDFrom(r.Context())
	if !ok {
		response.Error(w, r, apperr.New(apperr.AuthRequired, "missing authenticated user"))
		return
	}

	id := chi.URLParam(r, "id")
	ws, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		h.log.Error("failed to load workspace", sl.Err(err))
		response.Error(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, map[string]any{"workspace": ws})
}

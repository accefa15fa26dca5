// Package list implements GET /api/workspaces.
package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hostplane/controlplane/internal/apperr"
	"github.com/hostplane/controlplane/internal/http/middlewarectx"
	"github.com/hostplane/controlplane/internal/http/response"
	"github.com/hostplane/controlplane/internal/lib/sl"
	"github.com/hostplane/controlplane/internal/models"
)

// Service is the workspace-listing surface this handler depends on.
type Service interface {
	List(ctx context.Context, ownerID string) ([]*models.Workspace, error)
}

type Handler struct {
	log     *slog.Logger
	service Service
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP returns every workspace the caller owns. Per spec §6 the list
// view never includes the proxy credential, unlike the single-workspace
// read and create responses.
// @Summary      List workspaces
// @Tags         workspaces
// @Produce      json
// @Success      200 {object} map[string]any
// @Router       /api/workspaces [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := middlewarectx.UserIDFrom(r.Context())
	if !ok {
		response.Error(w, r, apperr.New(apperr.AuthRequired, "missing authenticated user"))
		return
	}

	workspaces, err := h.service.List(r.Context(), userID)
	if err != nil {
		h.log.Error("failed to list workspaces", sl.Err(err))
		response.Error(w, r, err)
		return
	}
	for _, ws := range workspaces {
		ws.ProxyCredential = ""
	}

	response.JSON(w, r, http.StatusOK, map[string]any{
		"workspaces": workspaces,
		"count":      len(workspaces),
	})
}

// Package create implements POST /api/workspaces.
package create

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/docker/go-units"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator"

	"github.com/hostplane/controlplane/internal/apperr"
	"github.com/hostplane/controlplane/internal/http/middlewarectx"
	"github.com/hostplane/controlplane/internal/http/response"
	"github.com/hostplane/controlplane/internal/lib/sl"
	"github.com/hostplane/controlplane/internal/models"
)

// Request is the workspace-creation payload. CPULimit/MemoryLimit default
// to the handler's configured Defaults when omitted. MemoryLimit follows
// Docker's memory-string convention ("512m", "2g").
type Request struct {
	Name      string   `json:"name" validate:"required,min=1,max=100"`
	CPULimit  *float64 `json:"cpuLimit,omitempty" validate:"omitempty,gt=0,lte=8"`
	MemoryLimit string `json:"memoryLimit,omitempty"`
}

// Service is the workspace-lifecycle surface this handler depends on.
type Service interface {
	Create(ctx context.Context, ownerID, name string, cpuQuota float64, memoryBytes int64) (*models.Workspace, error)
}

// Defaults supplies the values applied when a request omits a limit.
type Defaults struct {
	CPUQuota    float64
	MemoryBytes int64
}

type Handler struct {
	log      *slog.Logger
	service  Service
	defaults Defaults
	validate *validator.Validate
}

func New(log *slog.Logger, service Service, defaults Defaults) *Handler {
	return &Handler{log: log, service: service, defaults: defaults, validate: validator.New()}
}

// @Summary      Create a workspace
// @Description  Creates a new workspace record, in the stopped state, for the authenticated owner; its container is created on first start.
// @Tags         workspaces
// @Accept       json
// @Produce      json
// @Param        request body Request true "Workspace creation request"
// @Success      201 {object} map[string]any
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      403 {object} response.ErrorResponse "subscription not entitled"
// @Router       /api/workspaces [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.workspace.create"
	log := h.log.With(slog.String("op", op), slog.String("request_id", middleware.GetReqID(r.Context())))

	userID, ok := middlewarectx.UserIDFrom(r.Context())
	if !ok {
		response.Error(w, r, apperr.New(apperr.AuthRequired, "missing authenticated user"))
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.Error(w, r, apperr.New(apperr.Validation, "invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.ValidationError(w, r, err.(validator.ValidationErrors))
		return
	}

	cpuQuota := h.defaults.CPUQuota
	if req.CPULimit != nil {
		cpuQuota = *req.CPULimit
	}
	memoryBytes := h.defaults.MemoryBytes
	if req.MemoryLimit != "" {
		parsed, err := units.RAMInBytes(req.MemoryLimit)
		if err != nil {
			response.Error(w, r, apperr.New(apperr.Validation, "memoryLimit must be a size like \"512m\""))
			return
		}
		memoryBytes = parsed
	}

	ws, err := h.service.Create(r.Context(), userID, req.Name, cpuQuota, memoryBytes)
	if err != nil {
		log.Error("workspace creation failed", sl.Err(err))
		response.Error(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusCreated, map[string]any{"workspace": ws})
}

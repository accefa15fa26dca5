// Package register implements the account-creation endpoint.
package register

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator"

	"github.com/hostplane/controlplane/internal/apperr"
	"github.com/hostplane/controlplane/internal/http/response"
	"github.com/hostplane/controlplane/internal/lib/sl"
	"github.com/hostplane/controlplane/internal/models"
)

// Request is the registration payload.
type Request struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Service is the account-creation surface this handler depends on.
type Service interface {
	Register(ctx context.Context, email, password string) (*models.User, error)
}

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, validate: validator.New()}
}

// @Summary      Register an account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body Request true "Registration request"
// @Success      201 {object} map[string]any
// @Failure      400 {object} response.ErrorResponse
// @Failure      409 {object} response.ErrorResponse "email already registered"
// @Router       /api/auth/register [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.register"
	log := h.log.With(slog.String("op", op), slog.String("request_id", middleware.GetReqID(r.Context())))

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

	user, err := h.service.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		log.Error("registration failed", sl.Err(err))
		response.Error(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusCreated, map[string]any{"user": user})
}

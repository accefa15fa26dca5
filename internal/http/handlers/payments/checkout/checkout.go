// Package checkout implements POST /api/payments/checkout.
package checkout

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator"

	"github.com/hostplane/controlplane/internal/apperr"
	"github.com/hostplane/controlplane/internal/http/middlewarectx"
	"github.com/hostplane/controlplane/internal/http/response"
	"github.com/hostplane/controlplane/internal/lib/sl"
)

// Request is the checkout payload.
type Request struct {
	PlanID string `json:"plan_id" validate:"required"`
}

// Service is the checkout-initiation surface this handler depends on.
type Service interface {
	Checkout(ctx context.Context, userID, planID, returnURL string) (subscriptionID, checkoutURL string, err error)
}

type Handler struct {
	log         *slog.Logger
	service     Service
	returnURL   string
	validate    *validator.Validate
}

// New builds a Handler. returnURL is the front-end origin the provider
// redirects back to once checkout completes (configuration, not a
// per-request value).
func New(log *slog.Logger, service Service, returnURL string) *Handler {
	return &Handler{log: log, service: service, returnURL: returnURL, validate: validator.New()}
}

// @Summary      Start a checkout
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        request body Request true "Checkout request"
// @Success      200 {object} map[string]any
// @Failure      400 {object} response.ErrorResponse "unknown plan"
// @Router       /api/payments/checkout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payments.checkout"
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

	subscriptionID, checkoutURL, err := h.service.Checkout(r.Context(), userID, req.PlanID, h.returnURL)
	if err != nil {
		log.Error("checkout failed", sl.Err(err))
		response.Error(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, map[string]any{
		"subscription_id": subscriptionID,
		"short_url":       checkoutURL,
	})
}

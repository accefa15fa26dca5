// Package status implements GET /api/payments/subscription.
package status

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hostplane/controlplane/internal/apperr"
	"github.com/hostplane/controlplane/internal/http/middlewarectx"
	"github.com/hostplane/controlplane/internal/http/response"
	"github.com/hostplane/controlplane/internal/lib/sl"
	"github.com/hostplane/controlplane/internal/services/subscription"
)

// Service is the subscription-status surface this handler depends on.
type Service interface {
	GetStatus(ctx context.Context, userID string) (*subscription.Status, error)
}

type Handler struct {
	log     *slog.Logger
	service Service
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// @Summary      Get subscription status
// @Tags         payments
// @Produce      json
// @Success      200 {object} map[string]any
// @Failure      401 {object} response.ErrorResponse
// @Router       /api/payments/subscription [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := middlewarectx.UserIDFrom(r.Context())
	if !ok {
		response.Error(w, r, apperr.New(apperr.AuthRequired, "missing authenticated user"))
		return
	}

	st, err := h.service.GetStatus(r.Context(), userID)
	if err != nil {
		h.log.Error("failed to load subscription status", sl.Err(err))
		response.Error(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, map[string]any{
		"state":          st.State,
		"plan":           st.PlanID,
		"period_start":   st.PeriodStart,
		"period_end":     st.PeriodEnd,
		"is_active":      st.IsActive,
		"days_remaining": st.DaysRemaining,
	})
}

// Package cancel implements POST /api/payments/cancel.
package cancel

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"

	"github.com/hostplane/controlplane/internal/apperr"
	"github.com/hostplane/controlplane/internal/http/middlewarectx"
	"github.com/hostplane/controlplane/internal/http/response"
	"github.com/hostplane/controlplane/internal/lib/sl"
)

// Request is the cancellation payload; reason is optional and recorded
// only in the service log, not persisted on the subscription row.
type Request struct {
	Reason string `json:"reason,omitempty"`
}

// Service is the cancellation surface this handler depends on.
type Service interface {
	Cancel(ctx context.Context, userID, reason string) (endDate *time.Time, err error)
}

type Handler struct {
	log     *slog.Logger
	service Service
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payments.cancel"
	log := h.log.With(slog.String("op", op), slog.String("request_id", middleware.GetReqID(r.Context())))

	userID, ok := middlewarectx.UserIDFrom(r.Context())
	if !ok {
		response.Error(w, r, apperr.New(apperr.AuthRequired, "missing authenticated user"))
		return
	}

	var req Request
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Error("failed to decode request body", sl.Err(err))
			response.Error(w, r, apperr.New(apperr.Validation, "invalid request body"))
			return
		}
	}

	endDate, err := h.service.Cancel(r.Context(), userID, req.Reason)
	if err != nil {
		log.Error("cancellation failed", sl.Err(err))
		response.Error(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, map[string]any{"end_date": endDate})
}

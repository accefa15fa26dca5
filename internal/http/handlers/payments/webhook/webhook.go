// Package webhook implements POST /api/webhooks/{provider}. It must read
// the raw request body before any JSON decoding happens anywhere in the
// chain, since the provider's signature is computed over the exact bytes
// sent — this handler is mounted ahead of any generic body-parsing
// middleware.
package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/hostplane/controlplane/internal/apperr"
	"github.com/hostplane/controlplane/internal/http/response"
	"github.com/hostplane/controlplane/internal/lib/sl"
	"github.com/hostplane/controlplane/internal/paymentprovider"
)

// SignatureHeader carries the HMAC-SHA256 signature of the raw body,
// base64-encoded.
const SignatureHeader = "X-Signature"

// Service is the webhook-processing surface this handler depends on.
type Service interface {
	ProcessWebhook(ctx context.Context, ev *paymentprovider.WebhookEvent, rawPayload []byte) (fireStopSideEffect bool, ownerID string, err error)
	PublishStopSideEffect(ownerID string)
}

type Handler struct {
	log           *slog.Logger
	service       Service
	webhookSecret string
}

func New(log *slog.Logger, service Service, webhookSecret string) *Handler {
	return &Handler{log: log, service: service, webhookSecret: webhookSecret}
}

// @Summary      Receive a payment provider webhook
// @Description  Called by the payment provider, not a logged-in user; authenticated by request signature instead of a bearer token.
// @Tags         payments
// @Accept       json
// @Success      200
// @Failure      401 {object} response.ErrorResponse "signature verification failed"
// @Router       /api/webhooks/{provider} [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payments.webhook"
	log := h.log.With(slog.String("op", op))

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		response.Error(w, r, apperr.New(apperr.Validation, "could not read request body"))
		return
	}
	defer func() { _ = r.Body.Close() }()

	signature := r.Header.Get(SignatureHeader)
	if !paymentprovider.VerifySignature(h.webhookSecret, body, signature) {
		log.Warn("webhook signature rejected")
		response.Error(w, r, apperr.New(apperr.AuthFailed, "invalid webhook signature"))
		return
	}

	var ev paymentprovider.WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		log.Error("failed to decode webhook payload", sl.Err(err))
		response.Error(w, r, apperr.New(apperr.Validation, "invalid webhook payload"))
		return
	}

	fireStop, ownerID, err := h.service.ProcessWebhook(r.Context(), &ev, body)
	if err != nil {
		log.Error("failed to process webhook event", sl.Err(err), slog.String("provider_event_id", ev.ID))
		response.Error(w, r, err)
		return
	}

	if fireStop {
		h.service.PublishStopSideEffect(ownerID)
	}

	response.JSON(w, r, http.StatusOK, map[string]any{"status": "processed"})
}

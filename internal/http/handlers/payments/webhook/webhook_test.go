package webhook_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/hostplane/controlplane/internal/http/handlers/payments/webhook"
	"github.com/hostplane/controlplane/internal/paymentprovider"
)

type serviceMock struct{ mock.Mock }

func (m *serviceMock) ProcessWebhook(ctx context.Context, ev *paymentprovider.WebhookEvent, rawPayload []byte) (bool, string, error) {
	args := m.Called(ctx, ev, rawPayload)
	return args.Bool(0), args.String(1), args.Error(2)
}

func (m *serviceMock) PublishStopSideEffect(ownerID string) {
	m.Called(ownerID)
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestHandler_Webhook_ValidSignatureProcessesEvent(t *testing.T) {
	const secret = "whsec_test"
	body := []byte(`{"id":"evt_1","event":"subscription.activated","object":{"subscription_id":"sub_1"}}`)

	svc := &serviceMock{}
	svc.On("ProcessWebhook", mock.Anything, mock.Anything, body).Return(false, "", nil)

	h := webhook.New(slog.Default(), svc, secret)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/test", bytes.NewReader(body))
	req.Header.Set(webhook.SignatureHeader, sign(secret, body))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestHandler_Webhook_InvalidSignatureRejected(t *testing.T) {
	const secret = "whsec_test"
	body := []byte(`{"id":"evt_1","event":"subscription.activated"}`)

	svc := &serviceMock{}
	h := webhook.New(slog.Default(), svc, secret)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/test", bytes.NewReader(body))
	req.Header.Set(webhook.SignatureHeader, "bogus")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	svc.AssertNotCalled(t, "ProcessWebhook", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_Webhook_TerminalTransitionPublishesStop(t *testing.T) {
	const secret = "whsec_test"
	body := []byte(`{"id":"evt_2","event":"subscription.cancelled","object":{"subscription_id":"sub_1"}}`)

	svc := &serviceMock{}
	svc.On("ProcessWebhook", mock.Anything, mock.Anything, body).Return(true, "owner-1", nil)
	svc.On("PublishStopSideEffect", "owner-1").Return()

	h := webhook.New(slog.Default(), svc, secret)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/test", bytes.NewReader(body))
	req.Header.Set(webhook.SignatureHeader, sign(secret, body))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

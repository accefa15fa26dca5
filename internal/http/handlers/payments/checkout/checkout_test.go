package checkout_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/hostplane/controlplane/internal/apperr"
	"github.com/hostplane/controlplane/internal/http/handlers/payments/checkout"
	"github.com/hostplane/controlplane/internal/http/middlewarectx"
)

type serviceMock struct{ mock.Mock }

func (m *serviceMock) Checkout(ctx context.Context, userID, planID, returnURL string) (string, string, error) {
	args := m.Called(ctx, userID, planID, returnURL)
	return args.String(0), args.String(1), args.Error(2)
}

func authedRequest(body []byte) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/payments/checkout", bytes.NewReader(body))
	ctx := context.WithValue(req.Context(), middlewarectx.UserIDKey, "u1")
	return req.WithContext(ctx)
}

func TestHandler_Checkout_Success(t *testing.T) {
	svc := &serviceMock{}
	svc.On("Checkout", mock.Anything, "u1", "pro-monthly", "https://app.example.com").
		Return("sub1", "https://provider.example.com/pay/sub1", nil)

	h := checkout.New(slog.Default(), svc, "https://app.example.com")

	body, _ := json.Marshal(map[string]string{"plan_id": "pro-monthly"})
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, authedRequest(body))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_Checkout_UnknownPlan(t *testing.T) {
	svc := &serviceMock{}
	svc.On("Checkout", mock.Anything, "u1", "bogus", "https://app.example.com").
		Return("", "", apperr.New(apperr.Validation, "unknown plan id"))

	h := checkout.New(slog.Default(), svc, "https://app.example.com")

	body, _ := json.Marshal(map[string]string{"plan_id": "bogus"})
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, authedRequest(body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Checkout_MissingPlanID(t *testing.T) {
	svc := &serviceMock{}
	h := checkout.New(slog.Default(), svc, "https://app.example.com")

	body, _ := json.Marshal(map[string]string{})
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, authedRequest(body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "Checkout", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

package status_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/hostplane/controlplane/internal/http/handlers/payments/status"
	"github.com/hostplane/controlplane/internal/http/middlewarectx"
	"github.com/hostplane/controlplane/internal/services/subscription"
)

type serviceMock struct{ mock.Mock }

func (m *serviceMock) GetStatus(ctx context.Context, userID string) (*subscription.Status, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.Status), args.Error(1)
}

func TestHandler_Status_Success(t *testing.T) {
	svc := &serviceMock{}
	svc.On("GetStatus", mock.Anything, "u1").Return(&subscription.Status{
		State:    "active",
		PlanID:   "pro-monthly",
		IsActive: true,
	}, nil)

	h := status.New(slog.Default(), svc)

	req := httptest.NewRequest(http.MethodGet, "/api/payments/subscription", nil)
	ctx := context.WithValue(req.Context(), middlewarectx.UserIDKey, "u1")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req.WithContext(ctx))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_Status_Unauthenticated(t *testing.T) {
	svc := &serviceMock{}
	h := status.New(slog.Default(), svc)

	req := httptest.NewRequest(http.MethodGet, "/api/payments/subscription", nil)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

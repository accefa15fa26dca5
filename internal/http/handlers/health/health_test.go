package health_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/hostplane/controlplane/internal/http/handlers/health"
)

type pingerMock struct{ mock.Mock }

func (m *pingerMock) PingContext(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func TestHandler_Health_DatabaseOK(t *testing.T) {
	db := &pingerMock{}
	db.On("PingContext", mock.Anything).Return(nil)

	h := health.New(slog.Default(), db)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":"ok"`)
}

func TestHandler_Health_DatabaseUnreachable(t *testing.T) {
	db := &pingerMock{}
	db.On("PingContext", mock.Anything).Return(errors.New("connection refused"))

	h := health.New(slog.Default(), db)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":"unreachable"`)
}

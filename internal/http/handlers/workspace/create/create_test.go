package create_test

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
	"github.com/hostplane/controlplane/internal/http/handlers/workspace/create"
	"github.com/hostplane/controlplane/internal/http/middlewarectx"
	"github.com/hostplane/controlplane/internal/models"
)

type serviceMock struct{ mock.Mock }

func (m *serviceMock) Create(ctx context.Context, ownerID, name string, cpuQuota float64, memoryBytes int64) (*models.Workspace, error) {
	args := m.Called(ctx, ownerID, name, cpuQuota, memoryBytes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Workspace), args.Error(1)
}

func authedRequest(body []byte) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/workspaces", bytes.NewReader(body))
	ctx := context.WithValue(req.Context(), middlewarectx.UserIDKey, "u1")
	return req.WithContext(ctx)
}

func TestHandler_Create_Success(t *testing.T) {
	svc := &serviceMock{}
	svc.On("Create", mock.Anything, "u1", "my-box", 2.0, int64(512<<20)).
		Return(&models.Workspace{ID: "w1", OwnerID: "u1", Name: "my-box"}, nil)

	h := create.New(slog.Default(), svc, create.Defaults{CPUQuota: 1, MemoryBytes: 256 << 20})

	cpu := 2.0
	body, _ := json.Marshal(map[string]any{"name": "my-box", "cpuLimit": cpu, "memoryLimit": "512m"})
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, authedRequest(body))

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestHandler_Create_UsesDefaultsWhenOmitted(t *testing.T) {
	svc := &serviceMock{}
	svc.On("Create", mock.Anything, "u1", "my-box", 1.0, int64(256<<20)).
		Return(&models.Workspace{ID: "w1", OwnerID: "u1", Name: "my-box"}, nil)

	h := create.New(slog.Default(), svc, create.Defaults{CPUQuota: 1, MemoryBytes: 256 << 20})

	body, _ := json.Marshal(map[string]any{"name": "my-box"})
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, authedRequest(body))

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestHandler_Create_InvalidMemoryLimit(t *testing.T) {
	svc := &serviceMock{}
	h := create.New(slog.Default(), svc, create.Defaults{CPUQuota: 1, MemoryBytes: 256 << 20})

	body, _ := json.Marshal(map[string]any{"name": "my-box", "memoryLimit": "not-a-size"})
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, authedRequest(body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_Create_MissingName(t *testing.T) {
	svc := &serviceMock{}
	h := create.New(slog.Default(), svc, create.Defaults{CPUQuota: 1, MemoryBytes: 256 << 20})

	body, _ := json.Marshal(map[string]any{})
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, authedRequest(body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Create_Unauthenticated(t *testing.T) {
	svc := &serviceMock{}
	h := create.New(slog.Default(), svc, create.Defaults{CPUQuota: 1, MemoryBytes: 256 << 20})

	body, _ := json.Marshal(map[string]any{"name": "my-box"})
	req := httptest.NewRequest(http.MethodPost, "/api/workspaces", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_Create_ServiceError(t *testing.T) {
	svc := &serviceMock{}
	svc.On("Create", mock.Anything, "u1", "my-box", 1.0, int64(256<<20)).
		Return(nil, apperr.New(apperr.Unentitled, "no active subscription"))

	h := create.New(slog.Default(), svc, create.Defaults{CPUQuota: 1, MemoryBytes: 256 << 20})

	body, _ := json.Marshal(map[string]any{"name": "my-box"})
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, authedRequest(body))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

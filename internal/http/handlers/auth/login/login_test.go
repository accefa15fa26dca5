package login_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/hostplane/controlplane/internal/apperr"
	"github.com/hostplane/controlplane/internal/http/handlers/auth/login"
	"github.com/hostplane/controlplane/internal/models"
)

type serviceMock struct{ mock.Mock }

func (m *serviceMock) Login(ctx context.Context, email, password string) (string, time.Time, *models.User, error) {
	args := m.Called(ctx, email, password)
	user, _ := args.Get(2).(*models.User)
	return args.String(0), args.Get(1).(time.Time), user, args.Error(3)
}

func TestHandler_Login_Success(t *testing.T) {
	svc := &serviceMock{}
	expiresAt := time.Now().Add(time.Hour)
	user := &models.User{ID: "u1", Email: "a@example.com"}
	svc.On("Login", mock.Anything, "a@example.com", "Str0ng!Pass").Return("tok", expiresAt, user, nil)

	h := login.New(slog.Default(), svc)

	body, _ := json.Marshal(map[string]string{"email": "a@example.com", "password": "Str0ng!Pass"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	require := json.NewDecoder(rec.Body).Decode(&got)
	assert.NoError(t, require)
	assert.Equal(t, "tok", got["token"])
}

func TestHandler_Login_InvalidCredentials(t *testing.T) {
	svc := &serviceMock{}
	svc.On("Login", mock.Anything, "a@example.com", "wrong").
		Return("", time.Time{}, (*models.User)(nil), apperr.New(apperr.AuthFailed, "invalid email or password"))

	h := login.New(slog.Default(), svc)

	body, _ := json.Marshal(map[string]string{"email": "a@example.com", "password": "wrong"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_Login_MissingFields(t *testing.T) {
	svc := &serviceMock{}
	h := login.New(slog.Default(), svc)

	body, _ := json.Marshal(map[string]string{"email": "", "password": ""})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "Login", mock.Anything, mock.Anything, mock.Anything)
}

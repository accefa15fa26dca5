package logout_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hostplane/controlplane/internal/http/handlers/auth/logout"
	"github.com/hostplane/controlplane/internal/http/middlewarectx"
)

func TestHandler_Logout_Success(t *testing.T) {
	h := logout.New(slog.Default())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	ctx := context.WithValue(req.Context(), middlewarectx.UserIDKey, "u1")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req.WithContext(ctx))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_Logout_Unauthenticated(t *testing.T) {
	h := logout.New(slog.Default())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

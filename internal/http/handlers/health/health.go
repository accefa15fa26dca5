// Package health implements GET /health.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hostplane/controlplane/internal/http/response"
	"github.com/hostplane/controlplane/internal/lib/sl"
)

// Pinger is the database connectivity check this handler depends on.
// *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	log *slog.Logger
	db  Pinger
}

func New(log *slog.Logger, db Pinger) *Handler {
	return &Handler{log: log, db: db}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	dbStatus := "ok"
	if err := h.db.PingContext(ctx); err != nil {
		h.log.Error("database health check failed", sl.Err(err))
		dbStatus = "unreachable"
	}

	response.JSON(w, r, http.StatusOK, map[string]any{
		"status":   "ok",
		"database": dbStatus,
	})
}

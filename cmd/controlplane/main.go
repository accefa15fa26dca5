// Command controlplane serves the multi-tenant workspace control plane:
// account management, workspace lifecycle, the authenticated reverse
// proxy and the subscription webhook surface.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hostplane/controlplane/internal/app/controlplane"
	"github.com/hostplane/controlplane/internal/config"
	"github.com/hostplane/controlplane/internal/lib/sl"
)

func main() {
	cfg := config.MustLoad()

	base := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(sl.NewRedactingHandler(base, sl.DefaultBlacklist))

	logger.Info("starting controlplane", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := controlplane.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize app", sl.Err(err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("app stopped with error", sl.Err(err))
		os.Exit(1)
	}

	logger.Info("controlplane stopped gracefully")
}

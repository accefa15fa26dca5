// Command sidefx-worker consumes the workspace.stop queue: one job per
// owner whose subscription left the active state, per spec §4.6 step 6.
// It stops every running workspace the owner has, independently of the
// control plane's own HTTP process.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hostplane/controlplane/internal/config"
	"github.com/hostplane/controlplane/internal/engine"
	"github.com/hostplane/controlplane/internal/lib/sl"
	"github.com/hostplane/controlplane/internal/rabbitmq"
	"github.com/hostplane/controlplane/internal/services/workspace"
	"github.com/hostplane/controlplane/internal/storage"
)

func main() {
	cfg := config.MustLoad()

	base := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(sl.NewRedactingHandler(base, sl.DefaultBlacklist))

	logger.Info("starting sidefx-worker", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.New(cfg.Postgres.ConnectionString, cfg.Postgres.MaxOpenConns, cfg.Postgres.SlowQueryThreshold, logger)
	if err != nil {
		logger.Error("failed to connect to storage", sl.Err(err))
		os.Exit(1)
	}
	defer func() { _ = db.DB.Close() }()

	engineClient, err := engine.New(cfg.Engine.Host, cfg.Engine.NetworkName, cfg.Engine.ImageRef)
	if err != nil {
		logger.Error("failed to build engine client", sl.Err(err))
		os.Exit(1)
	}

	workspaceService := workspace.New(db, engineClient, workspace.Limits{
		MinMemoryBytes:       cfg.Engine.MinMemoryBytes,
		MaxMemoryBytes:       cfg.Engine.MaxMemoryBytes,
		MaxWorkspacesPerUser: cfg.Engine.MaxWorkspacesPerUser,
		StopGraceTimeout:     cfg.Engine.StopGraceTimeout,
	}, cfg.RateLimit.LifecyclePerWindow, cfg.RateLimit.LifecycleWindow, logger)

	conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RabbitMQ.RetryDelay)
	if err != nil {
		logger.Error("failed to connect to rabbitmq", sl.Err(err))
		os.Exit(1)
	}
	defer func() { _ = conn.Close() }()

	ch, err := rabbitmq.SetupChannel(conn, []rabbitmq.QueueConfig{rabbitmq.WorkspaceStopQueue})
	if err != nil {
		logger.Error("failed to set up rabbitmq channel", sl.Err(err))
		os.Exit(1)
	}

	handler := func(body []byte) error {
		var job rabbitmq.WorkspaceStopJob
		if err := json.Unmarshal(body, &job); err != nil {
			logger.Error("failed to decode workspace stop job", sl.Err(err))
			return err
		}
		if err := workspaceService.StopAll(ctx, job.OwnerID); err != nil {
			logger.Error("failed to stop owner's workspaces", sl.Err(err), slog.String("owner_id", job.OwnerID))
			return err
		}
		logger.Info("stopped owner's workspaces", slog.String("owner_id", job.OwnerID))
		return nil
	}

	if err := rabbitmq.ConsumerMessage(ctx, ch, rabbitmq.WorkspaceStopQueue.QueueName, handler, logger); err != nil {
		logger.Error("failed to start consumer", sl.Err(err))
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("sidefx-worker stopped gracefully")
}

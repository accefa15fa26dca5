// Package controlplane wires the control plane's storage, cache, external
// clients and services into one HTTP server, grounded on the teacher's
// internal/app/subscription-aggregator wiring shape.
package controlplane

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/hostplane/controlplane/internal/cache"
	"github.com/hostplane/controlplane/internal/config"
	"github.com/hostplane/controlplane/internal/engine"
	"github.com/hostplane/controlplane/internal/lib/token"
	"github.com/hostplane/controlplane/internal/migrations"
	"github.com/hostplane/controlplane/internal/paymentprovider"
	"github.com/hostplane/controlplane/internal/proxy"
	"github.com/hostplane/controlplane/internal/rabbitmq"
	"github.com/hostplane/controlplane/internal/services/auth"
	"github.com/hostplane/controlplane/internal/services/entitlement"
	"github.com/hostplane/controlplane/internal/services/subscription"
	"github.com/hostplane/controlplane/internal/services/workspace"
	"github.com/hostplane/controlplane/internal/storage"
)

// App holds every long-lived resource the control plane owns, so Run can
// shut each one down cleanly.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *storage.Storage
	cache  *cache.Cache
	mqConn *amqp.Connection
}

// New wires storage, cache, the container engine, the payment provider and
// the message broker into the three domain services and the HTTP surface
// described by the route table.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := storage.New(cfg.Postgres.ConnectionString, cfg.Postgres.MaxOpenConns, cfg.Postgres.SlowQueryThreshold, logger)
	if err != nil {
		return nil, err
	}
	if err := migrations.Run(db.DB, cfg.Postgres.MigrationsPath); err != nil {
		return nil, err
	}

	redisCache, err := cache.InitServer(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}

	engineClient, err := engine.New(cfg.Engine.Host, cfg.Engine.NetworkName, cfg.Engine.ImageRef)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RabbitMQ.RetryDelay)
	if err != nil {
		return nil, err
	}
	mqChannel, err := rabbitmq.SetupChannel(mqConn, []rabbitmq.QueueConfig{rabbitmq.WorkspaceStopQueue})
	if err != nil {
		return nil, err
	}
	publisher := &rabbitmq.Publisher{Channel: mqChannel}

	tokenMaker := token.New(cfg.Bearer.SecretKey, cfg.Bearer.TokenTTL)
	providerClient := paymentprovider.New(cfg.Payment.KeyID, cfg.Payment.Secret, cfg.Payment.APIURL)

	authService := auth.New(db, tokenMaker, cfg.Bearer.HashCost)

	subscriptionService := subscription.New(db, providerClient, publisher, subscription.Catalog{
		PlanIDs:          cfg.Payment.PlanIDs,
		AmountMinorUnits: cfg.Payment.CheckoutAmount,
		Currency:         cfg.Payment.Currency,
	}, logger)

	workspaceService := workspace.New(db, engineClient, workspace.Limits{
		MinMemoryBytes:       cfg.Engine.MinMemoryBytes,
		MaxMemoryBytes:       cfg.Engine.MaxMemoryBytes,
		MaxWorkspacesPerUser: cfg.Engine.MaxWorkspacesPerUser,
		StopGraceTimeout:     cfg.Engine.StopGraceTimeout,
	}, cfg.RateLimit.LifecyclePerWindow, cfg.RateLimit.LifecycleWindow, logger)

	cachedEntitlement := entitlement.New(subscriptionService, redisCache, logger)
	subscriptionService.SetEntitlementInvalidator(cachedEntitlement)
	reverseProxy := proxy.New(db, cachedEntitlement, engineClient, cfg.Engine.WorkspacePort, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, routeDeps{
		db:                  db,
		auth:                authService,
		tokens:              tokenMaker,
		workspace:           workspaceService,
		subscription:        subscriptionService,
		proxy:               reverseProxy,
		webhookSecret:       cfg.Payment.WebhookSecret,
		checkoutReturnURL:   cfg.HTTPServer.FrontendOrigin,
		workspaceDefaults:   workspaceDefaults{cpuQuota: cfg.Engine.DefaultCPUQuota, memoryBytes: cfg.Engine.DefaultMemoryBytes},
		authPerWindow:       cfg.RateLimit.AuthPerWindow,
		authWindow:          cfg.RateLimit.AuthWindow,
		apiPerWindow:        cfg.RateLimit.APIPerWindow,
		apiWindow:           cfg.RateLimit.APIWindow,
		lifecyclePerWindow:  cfg.RateLimit.LifecyclePerWindow,
		lifecycleWindow:     cfg.RateLimit.LifecycleWindow,
		maxBodyBytes:        cfg.HTTPServer.MaxBodyBytes,
		frontendOrigin:      cfg.HTTPServer.FrontendOrigin,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	return &App{server: srv, logger: logger, db: db, cache: redisCache, mqConn: mqConn}, nil
}

// Run starts the HTTP server and blocks until it exits or ctx is
// cancelled, in which case it drains in-flight requests before returning.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		_ = a.db.DB.Close()
		_ = a.cache.Db.Close()
		_ = a.mqConn.Close()
		return err
	}
}

package controlplane

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/hostplane/controlplane/internal/http/handlers/auth/login"
	"github.com/hostplane/controlplane/internal/http/handlers/auth/logout"
	"github.com/hostplane/controlplane/internal/http/handlers/auth/me"
	"github.com/hostplane/controlplane/internal/http/handlers/auth/register"
	"github.com/hostplane/controlplane/internal/http/handlers/health"
	"github.com/hostplane/controlplane/internal/http/handlers/payments/cancel"
	"github.com/hostplane/controlplane/internal/http/handlers/payments/checkout"
	"github.com/hostplane/controlplane/internal/http/handlers/payments/status"
	"github.com/hostplane/controlplane/internal/http/handlers/payments/webhook"
	"github.com/hostplane/controlplane/internal/http/handlers/workspace/create"
	"github.com/hostplane/controlplane/internal/http/handlers/workspace/get"
	"github.com/hostplane/controlplane/internal/http/handlers/workspace/list"
	"github.com/hostplane/controlplane/internal/http/handlers/workspace/remove"
	"github.com/hostplane/controlplane/internal/http/handlers/workspace/start"
	"github.com/hostplane/controlplane/internal/http/handlers/workspace/stop"
	"github.com/hostplane/controlplane/internal/http/middlewarectx"
	"github.com/hostplane/controlplane/internal/proxy"
	"github.com/hostplane/controlplane/internal/services/auth"
	"github.com/hostplane/controlplane/internal/services/subscription"
	"github.com/hostplane/controlplane/internal/services/workspace"
	"github.com/hostplane/controlplane/internal/storage"
)

// workspaceDefaults carries the configured fallback resource limits applied
// when a create request omits cpuLimit/memoryLimit.
type workspaceDefaults struct {
	cpuQuota    float64
	memoryBytes int64
}

// routeDeps collects every dependency RegisterRoutes needs, so the wiring
// function above stays a flat, readable list of constructor calls.
type routeDeps struct {
	db                 *storage.Storage
	auth               *auth.Service
	tokens             middlewarectx.TokenVerifier
	workspace          *workspace.Service
	subscription       *subscription.Service
	proxy              *proxy.Proxy
	webhookSecret      string
	checkoutReturnURL  string
	workspaceDefaults  workspaceDefaults
	authPerWindow      int
	authWindow         time.Duration
	apiPerWindow       int
	apiWindow          time.Duration
	lifecyclePerWindow int
	lifecycleWindow    time.Duration
	maxBodyBytes       int64
	frontendOrigin     string
}

// RegisterRoutes mounts every handler of the route table onto r, applying
// the middleware chain of §4.8 in order: security headers, CORS, body-size
// cap, then per-group bearer auth and rate limiting. Groups keyed by user id
// run Auth before RateLimit, since ByUserID reads the id Auth sets.
func RegisterRoutes(r chi.Router, logger *slog.Logger, deps routeDeps) {
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
		middlewarectx.SecurityHeaders,
		cors.Handler(cors.Options{
			AllowedOrigins:   []string{deps.frontendOrigin},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type", proxy.CredentialHeader},
			AllowCredentials: true,
		}),
		middlewarectx.MaxBody(deps.maxBodyBytes),
	)

	r.Get("/health", health.New(logger, deps.db.DB).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.RateLimit(deps.authPerWindow, deps.authWindow, middlewarectx.ByRemoteAddr))
				r.Post("/register", register.New(logger, deps.auth).ServeHTTP)
				r.Post("/login", login.New(logger, deps.auth).ServeHTTP)
			})
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.Auth(deps.tokens, logger))
				r.Use(middlewarectx.RateLimit(deps.apiPerWindow, deps.apiWindow, middlewarectx.ByUserID))
				r.Get("/me", me.New(logger, deps.auth).ServeHTTP)
				r.Post("/logout", logout.New(logger).ServeHTTP)
			})
		})

		r.Route("/workspaces", func(r chi.Router) {
			r.Use(middlewarectx.Auth(deps.tokens, logger))
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.RateLimit(deps.lifecyclePerWindow, deps.lifecycleWindow, middlewarectx.ByUserID))
				r.Post("/", create.New(logger, deps.workspace, create.Defaults{
					CPUQuota:    deps.workspaceDefaults.cpuQuota,
					MemoryBytes: deps.workspaceDefaults.memoryBytes,
				}).ServeHTTP)
				r.Post("/{id}/start", start.New(logger, deps.workspace).ServeHTTP)
				r.Post("/{id}/stop", stop.New(logger, deps.workspace).ServeHTTP)
				r.Delete("/{id}", remove.New(logger, deps.workspace).ServeHTTP)
			})
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.RateLimit(deps.apiPerWindow, deps.apiWindow, middlewarectx.ByUserID))
				r.Get("/", list.New(logger, deps.workspace).ServeHTTP)
				r.Get("/{id}", get.New(logger, deps.workspace).ServeHTTP)
			})
		})

		r.Route("/payments", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.Auth(deps.tokens, logger))
				r.Use(middlewarectx.RateLimit(deps.apiPerWindow, deps.apiWindow, middlewarectx.ByUserID))
				r.Post("/checkout", checkout.New(logger, deps.subscription, deps.checkoutReturnURL).ServeHTTP)
				r.Get("/subscription", status.New(logger, deps.subscription).ServeHTTP)
				r.Post("/cancel", cancel.New(logger, deps.subscription).ServeHTTP)
			})
		})

		// Unauthenticated: the payment provider signs the body instead.
		r.Post("/webhooks/{provider}", webhook.New(logger, deps.subscription, deps.webhookSecret).ServeHTTP)
	})

	r.Mount(proxy.PathPrefix, deps.proxy)
}

package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/flowlet/flowlet/internal/metrics"
	"github.com/flowlet/flowlet/internal/middleware"
)

// RouterConfig carries the handlers and middleware settings the router needs.
type RouterConfig struct {
	Logger *slog.Logger

	Root     *Handler
	Health   *HealthHandler
	Validate *ValidateHandler
	Catalog  *CatalogHandler
	Process  *ProcessHandler
	Login    *LoginHandler
	APIKeys  *APIKeyHandler
	Flows    *FlowHandler

	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
	Recorder       metrics.Recorder

	Auth      middleware.AuthConfig
	RateLimit middleware.RateLimitConfig
	Security  middleware.SecurityConfig
	CORS      middleware.CORSConfig

	MaxBodySize int64
}

// NewRouter builds the chi router with all routes and middleware.
func NewRouter(cfg RouterConfig) *chi.Mux {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	recorder := cfg.Recorder
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if cfg.Auth.Logger == nil {
		cfg.Auth.Logger = logger
	}
	if cfg.RateLimit.Logger == nil {
		cfg.RateLimit.Logger = logger
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger, cfg.Security.IsDevelopment))
	r.Use(middleware.Security(cfg.Security))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.MaxBodySize(cfg.MaxBodySize))
	r.Use(middleware.Metrics(recorder))

	// Health endpoints (no auth required)
	r.Get("/healthz", cfg.Health.Healthz)
	r.Get("/readyz", cfg.Health.Readyz)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	r.Get("/", cfg.Root.Hello)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/login", cfg.Login.Login)
		r.Get("/auto_login", cfg.Login.AutoLogin)

		// Validation never executes code, so it only carries a per-IP limit.
		r.Route("/validate", func(r chi.Router) {
			r.Use(middleware.RateLimitIP(cfg.RateLimit))
			r.Post("/code", cfg.Validate.Code)
			r.Post("/prompt", cfg.Validate.Prompt)
		})

		r.With(
			middleware.APIKeyAuth(cfg.Auth),
			middleware.RateLimitPrincipal(cfg.RateLimit),
		).Post("/process/{flow_id}", cfg.Process.Process)

		r.Group(func(r chi.Router) {
			r.Use(middleware.UserAuth(cfg.Auth))

			r.Get("/all", cfg.Catalog.All)

			r.Route("/api_key", func(r chi.Router) {
				r.Get("/", cfg.APIKeys.ListAPIKeys)
				r.Post("/", cfg.APIKeys.CreateAPIKey)
				r.Delete("/{key_id}", cfg.APIKeys.RevokeAPIKey)
			})

			r.Route("/flows", func(r chi.Router) {
				r.Get("/", cfg.Flows.ListFlows)
				r.Post("/", cfg.Flows.CreateFlow)
				r.Get("/{id}", cfg.Flows.GetFlow)
				r.Delete("/{id}", cfg.Flows.DeleteFlow)
			})
		})
	})

	// 404 and 405 handlers
	r.NotFound(cfg.Root.NotFound)
	r.MethodNotAllowed(cfg.Root.MethodNotAllowed)

	return r
}

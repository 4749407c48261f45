// Package main is the entrypoint for the Flowlet API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/flowlet/flowlet/internal/auth"
	"github.com/flowlet/flowlet/internal/cache"
	"github.com/flowlet/flowlet/internal/catalog"
	"github.com/flowlet/flowlet/internal/config"
	"github.com/flowlet/flowlet/internal/engine"
	"github.com/flowlet/flowlet/internal/events"
	"github.com/flowlet/flowlet/internal/handler"
	"github.com/flowlet/flowlet/internal/metrics"
	"github.com/flowlet/flowlet/internal/middleware"
	"github.com/flowlet/flowlet/internal/pymod"
	"github.com/flowlet/flowlet/internal/repository"
	"github.com/flowlet/flowlet/internal/server"
	"github.com/flowlet/flowlet/internal/service"
	"github.com/flowlet/flowlet/internal/validate"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)
	if cfg.SecretKeyGenerated {
		logger.Warn("SECRET_KEY not set; generated a random key, tokens will not survive restarts")
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// Initialize database
	store, err := repository.Open(ctx, cfg.DatabaseURL, repository.Options{Migrate: cfg.DatabaseAutoMigrate})
	if err != nil {
		logger.Error(
			"failed to open database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		return fmt.Errorf("open database: %w", err)
	}
	logger.Info("connected to database", slog.String("database_url", redactURL(cfg.DatabaseURL)))

	// Initialize cache (optional)
	var cacheClient *cache.Cache
	if cfg.RedisURL != "" {
		cacheClient, err = cache.New(ctx, cfg.RedisURL, cache.Options{
			PoolSize:     cfg.RedisPoolSize,
			MinIdleConns: cfg.RedisMinIdleConns,
			Namespace:    cfg.RedisNamespace,
		})
		if err != nil {
			logger.Error(
				"failed to connect to Redis",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			_ = store.Close()
			return fmt.Errorf("connect redis: %w", err)
		}
		logger.Info("connected to Redis")
	} else {
		logger.Info("REDIS_URL not set; caching and rate limiting disabled")
	}

	recorder := metrics.NewPrometheus()

	publisher, err := newPublisher(cfg, cacheClient, logger)
	if err != nil {
		_ = store.Close()
		if cacheClient != nil {
			_ = cacheClient.Close()
		}
		return err
	}
	emitter := events.NewEmitter(publisher, logger, recorder)

	var runner engine.Runner = engine.Unconfigured{}
	if cfg.EngineURL != "" {
		runner = engine.NewHTTPRunner(cfg.EngineURL, cfg.EngineSecret, cfg.EngineTimeout, logger)
		logger.Info("engine configured", slog.String("engine_url", redactURL(cfg.EngineURL)))
	} else {
		logger.Warn("ENGINE_URL not set; flow runs will fail")
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	// Initialize services
	authService := service.NewAuthService(store, cacheClient,
		auth.NewTokenIssuer(cfg.SecretKey, cfg.AccessTokenExpire),
		service.AuthConfig{
			AutoLogin:         cfg.AutoLogin,
			Superuser:         cfg.Superuser,
			SuperuserPassword: cfg.SuperuserPassword,
		}, logger, recorder)
	if cfg.Superuser != "" {
		if _, err := authService.EnsureSuperuser(ctx); err != nil {
			return fmt.Errorf("ensure superuser: %w", err)
		}
	}
	flowService := service.NewFlowService(store, cacheClient, runner, emitter, logger, recorder)

	// Initialize handlers
	var (
		healthDB    handler.HealthChecker = store
		healthCache handler.HealthChecker
		limiter     middleware.RateLimiter
	)
	if cacheClient != nil {
		healthCache = cacheClient
		limiter = cacheClient
	}

	r := handler.NewRouter(handler.RouterConfig{
		Logger:         logger,
		Root:           handler.New(),
		Health:         handler.NewHealthHandler(healthDB, healthCache),
		Validate:       handler.NewValidateHandler(validate.New(newResolver(cfg, cacheClient, logger), logger), logger, recorder),
		Catalog:        handler.NewCatalogHandler(cat),
		Process:        handler.NewProcessHandler(flowService, logger),
		Login:          handler.NewLoginHandler(logger, authService),
		APIKeys:        handler.NewAPIKeyHandler(logger, authService),
		Flows:          handler.NewFlowHandler(flowService, logger),
		MetricsHandler: recorder.Handler(),
		Recorder:       recorder,
		Auth: middleware.AuthConfig{
			Logger:        logger,
			Authenticator: authService,
		},
		RateLimit: middleware.RateLimitConfig{
			Logger:         logger,
			Limiter:        limiter,
			PrincipalRPM:   cfg.RateLimitProcessRPM,
			PrincipalBurst: cfg.RateLimitProcessBurst,
			IPEnabled:      cfg.RateLimitValidateEnabled,
			IPRPS:          cfg.RateLimitValidateRPS,
			IPBurst:        cfg.RateLimitValidateBurst,
		},
		Security:    middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment()},
		CORS:        corsConfig(cfg),
		MaxBodySize: cfg.MaxRequestBodySize,
	})

	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	// Registered first, stopped last.
	srv.OnShutdown("database", func(context.Context) error { return store.Close() })
	if cacheClient != nil {
		srv.OnShutdown("redis", func(context.Context) error { return cacheClient.Close() })
	}
	srv.OnShutdown("events", func(context.Context) error { return emitter.Close() })
	srv.OnShutdown("api key usage", func(context.Context) error {
		authService.Wait()
		return nil
	})

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"auto_login", cfg.AutoLogin,
		"events_backend", cfg.EventsBackend,
	)

	return srv.Run(ctx)
}

// newPublisher returns the flow event publisher for the configured backend.
func newPublisher(cfg *config.Config, cacheClient *cache.Cache, logger *slog.Logger) (events.Publisher, error) {
	switch cfg.EventsBackend {
	case config.EventsRedis:
		return events.NewRedisStream(cacheClient.Client()), nil
	case config.EventsAMQP:
		conn, err := events.Dial(cfg.AMQPURL, logger)
		if err != nil {
			logger.Error("failed to connect to AMQP broker",
				slog.String("error", sanitizeError(err, cfg.AMQPURL)),
				slog.String("amqp_url", redactURL(cfg.AMQPURL)),
			)
			return nil, fmt.Errorf("connect amqp: %w", err)
		}
		return conn, nil
	default:
		return events.Noop{}, nil
	}
}

// newResolver builds the module resolver used by code validation: the
// standard library, then PYTHON_PATH roots, then PYTHON_EXTRA_MODULES.
// Lookups are cached in Redis when it is configured.
func newResolver(cfg *config.Config, cacheClient *cache.Cache, logger *slog.Logger) pymod.Resolver {
	var resolver pymod.Resolver = pymod.Chain{
		pymod.Stdlib{},
		pymod.NewPaths(cfg.PythonPath),
		pymod.NewStatic(cfg.PythonExtraModules...),
	}
	if cacheClient != nil {
		resolver = cache.NewModuleCache(cacheClient, resolver, logger)
	}
	return resolver
}

func corsConfig(cfg *config.Config) middleware.CORSConfig {
	c := middleware.DefaultCORSConfig()
	c.AllowedOrigins = cfg.GetCORSAllowedOrigins()
	return c
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s&]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}

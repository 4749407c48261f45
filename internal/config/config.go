// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Events backends.
const (
	EventsNone  = "none"
	EventsRedis = "redis"
	EventsAMQP  = "amqp"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"7860"`

	// Database: postgres://... or sqlite://path
	DatabaseURL         string `env:"DATABASE_URL" envDefault:"sqlite://flowlet.db"`
	DatabaseAutoMigrate bool   `env:"DATABASE_AUTO_MIGRATE" envDefault:"true"`

	// Cache (Redis). Optional; caching and rate limiting are off without it.
	RedisURL          string `env:"REDIS_URL"`
	RedisPoolSize     int    `env:"REDIS_POOL_SIZE" envDefault:"10"`
	RedisMinIdleConns int    `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	RedisNamespace    string `env:"REDIS_NAMESPACE" envDefault:"flowlet:"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts. Writes include synchronous flow runs.
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Authentication
	AutoLogin         bool          `env:"AUTO_LOGIN" envDefault:"true"`
	Superuser         string        `env:"SUPERUSER" envDefault:"admin"`
	SuperuserPassword string        `env:"SUPERUSER_PASSWORD" envDefault:"admin"`
	SecretKey         string        `env:"SECRET_KEY"`
	AccessTokenExpire time.Duration `env:"ACCESS_TOKEN_EXPIRE" envDefault:"1h"`

	// SecretKeyGenerated is set when SECRET_KEY was empty outside production.
	SecretKeyGenerated bool `env:"-"`

	// Flow execution engine
	EngineURL     string        `env:"ENGINE_URL"`
	EngineSecret  string        `env:"ENGINE_SECRET"`
	EngineTimeout time.Duration `env:"ENGINE_TIMEOUT" envDefault:"60s"`

	// Flow run events
	EventsBackend string `env:"EVENTS_BACKEND" envDefault:"none"`
	AMQPURL       string `env:"AMQP_URL"`

	// Code validation: extra module roots and known third-party modules
	PythonPath         string   `env:"PYTHON_PATH"`
	PythonExtraModules []string `env:"PYTHON_EXTRA_MODULES" envSeparator:","`

	// Component catalog override
	CatalogPath string `env:"CATALOG_PATH"`

	// Rate limiting
	RateLimitProcessRPM      int  `env:"RATE_LIMIT_PROCESS_RPM" envDefault:"60"`
	RateLimitProcessBurst    int  `env:"RATE_LIMIT_PROCESS_BURST" envDefault:"10"`
	RateLimitValidateEnabled bool `env:"RATE_LIMIT_VALIDATE_ENABLED" envDefault:"true"`
	RateLimitValidateRPS     int  `env:"RATE_LIMIT_VALIDATE_RPS" envDefault:"20"`
	RateLimitValidateBurst   int  `env:"RATE_LIMIT_VALIDATE_BURST" envDefault:"40"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.EventsBackend {
	case EventsNone:
	case EventsRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("%w: EVENTS_BACKEND=redis requires REDIS_URL", ErrInvalidConfig)
		}
	case EventsAMQP:
		if c.AMQPURL == "" {
			return fmt.Errorf("%w: EVENTS_BACKEND=amqp requires AMQP_URL", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown EVENTS_BACKEND %q", ErrInvalidConfig, c.EventsBackend)
	}

	if c.IsProduction() && c.SecretKey == "" {
		return fmt.Errorf("%w: SECRET_KEY is required in production", ErrInvalidConfig)
	}
	if c.AutoLogin && c.Superuser == "" {
		return fmt.Errorf("%w: AUTO_LOGIN requires SUPERUSER", ErrInvalidConfig)
	}
	if c.AccessTokenExpire <= 0 {
		return fmt.Errorf("%w: ACCESS_TOKEN_EXPIRE must be positive", ErrInvalidConfig)
	}
	return nil
}

// Load parses environment variables and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.SecretKey == "" {
		key, err := randomSecret()
		if err != nil {
			return nil, err
		}
		cfg.SecretKey = key
		cfg.SecretKeyGenerated = true
	}
	return cfg, nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate secret key: %w", err)
	}
	return hex.EncodeToString(b), nil
}

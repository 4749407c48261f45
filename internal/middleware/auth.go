package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/flowlet/flowlet/internal/auth"
	"github.com/flowlet/flowlet/internal/model"
)

// Fixed auth failure details.
const (
	DetailInvalidAPIKey   = "Invalid or missing API key"
	DetailInvalidUserAuth = "Could not validate credentials"
)

// Authenticator resolves credentials to a principal.
type Authenticator interface {
	AuthenticateAPIKey(ctx context.Context, key string) (*model.AuthContext, error)
	AuthenticateToken(ctx context.Context, token string) (*model.AuthContext, error)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger        *slog.Logger
	Authenticator Authenticator
	// MinFailureDuration pads failed attempts so they take a constant time.
	MinFailureDuration time.Duration
}

// APIKeyAuth authenticates with an API key from the api-key or x-api-key
// header, or the x-api-key query parameter. Failures get 403.
func APIKeyAuth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			authCtx, err := cfg.Authenticator.AuthenticateAPIKey(r.Context(), extractAPIKey(r))
			if err != nil {
				logAuthFailure(cfg.Logger, r, "api_key", err)
				padFailure(start, cfg.MinFailureDuration)
				writeDetail(w, http.StatusForbidden, DetailInvalidAPIKey)
				return
			}

			logAuthSuccess(cfg.Logger, r, authCtx)
			next.ServeHTTP(w, r.WithContext(auth.ContextWithAuth(r.Context(), authCtx)))
		})
	}
}

// UserAuth authenticates with a bearer access token, falling back to an API
// key. Failures get 401.
func UserAuth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			var (
				authCtx *model.AuthContext
				err     error
			)
			if token := extractBearer(r); token != "" {
				authCtx, err = cfg.Authenticator.AuthenticateToken(r.Context(), token)
			} else if key := extractAPIKey(r); key != "" {
				authCtx, err = cfg.Authenticator.AuthenticateAPIKey(r.Context(), key)
			} else {
				err = errors.New("missing credentials")
			}

			if err != nil {
				logAuthFailure(cfg.Logger, r, "user", err)
				padFailure(start, cfg.MinFailureDuration)
				w.Header().Set("WWW-Authenticate", "Bearer")
				writeDetail(w, http.StatusUnauthorized, DetailInvalidUserAuth)
				return
			}

			logAuthSuccess(cfg.Logger, r, authCtx)
			next.ServeHTTP(w, r.WithContext(auth.ContextWithAuth(r.Context(), authCtx)))
		})
	}
}

const (
	apiKeyHeader    = "api-key"
	apiKeyHeaderAlt = "x-api-key"
)

// extractAPIKey reads the key from headers first, then the query string.
func extractAPIKey(r *http.Request) string {
	if key := r.Header.Get(apiKeyHeader); key != "" {
		return key
	}
	if key := r.Header.Get(apiKeyHeaderAlt); key != "" {
		return key
	}
	return r.URL.Query().Get(apiKeyHeaderAlt)
}

func extractBearer(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

func padFailure(start time.Time, floor time.Duration) {
	if elapsed := time.Since(start); elapsed < floor {
		time.Sleep(floor - elapsed)
	}
}

func logAuthFailure(logger *slog.Logger, r *http.Request, policy string, err error) {
	logger.Warn("authentication failed",
		slog.String("policy", policy),
		slog.String("reason", err.Error()),
		slog.String("ip", getClientIP(r)),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.String("request_id", GetRequestID(r.Context())),
	)
}

func logAuthSuccess(logger *slog.Logger, r *http.Request, ac *model.AuthContext) {
	notePrincipal(r.Context(), ac)
	logger.Debug("authentication successful",
		slog.String("user_id", ac.UserID),
		slog.String("key_id", ac.KeyID),
		slog.String("key_prefix", ac.KeyPrefix),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.String("request_id", GetRequestID(r.Context())),
	)
}

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/flowlet/flowlet/internal/model"
)

const principalKey contextKey = "log_principal"

// principal is filled by auth middleware further down the chain.
type principal struct {
	userID    string
	keyPrefix string
}

// notePrincipal records the authenticated caller for the request log line.
func notePrincipal(ctx context.Context, ac *model.AuthContext) {
	if p, ok := ctx.Value(principalKey).(*principal); ok && ac != nil {
		p.userID = ac.UserID
		p.keyPrefix = ac.KeyPrefix
	}
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func wrapResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, status: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.status = code
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// Logger returns a middleware that logs HTTP requests. Credentials and
// query strings are never logged.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			who := &principal{}
			r = r.WithContext(context.WithValue(r.Context(), principalKey, who))

			wrapped := wrapResponseWriter(w)
			next.ServeHTTP(wrapped, r)
			duration := time.Since(start)

			requestID := GetRequestID(r.Context())
			traceID := GetTraceID(r.Context())

			attrs := []slog.Attr{
				slog.String("request_id", requestID),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status_code", wrapped.status),
				slog.Float64("duration_ms", float64(duration.Microseconds())/1000),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("user_agent", r.UserAgent()),
			}

			if traceID != "" {
				attrs = append(attrs, slog.String("trace_id", traceID))
			}
			if who.userID != "" {
				attrs = append(attrs, slog.String("user_id", who.userID))
			}
			if who.keyPrefix != "" {
				attrs = append(attrs, slog.String("key_prefix", who.keyPrefix))
			}

			level := slog.LevelInfo
			if wrapped.status >= 500 {
				level = slog.LevelError
			} else if wrapped.status >= 400 {
				level = slog.LevelWarn
			}

			logger.LogAttrs(r.Context(), level, "http request", attrs...)
		})
	}
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveCORS(cfg CORSConfig, req *http.Request) *httptest.ResponseRecorder {
	h := CORS(cfg)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestOriginPolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		origins []string
		origin  string
		want    bool
	}{
		{"none configured", nil, "https://app.example.com", false},
		{"exact", []string{"https://app.example.com"}, "https://app.example.com", true},
		{"exact is case insensitive", []string{"HTTPS://App.Example.com/"}, "https://app.example.com", true},
		{"exact other host", []string{"https://app.example.com"}, "https://evil.com", false},
		{"wildcard", []string{"*"}, "http://localhost:3000", true},
		{"subdomain", []string{"*.example.com"}, "https://flows.example.com", true},
		{"subdomain any scheme", []string{"*.example.com"}, "http://flows.example.com:8080", true},
		{"subdomain excludes apex", []string{"*.example.com"}, "https://example.com", false},
		{"subdomain excludes lookalike", []string{"*.example.com"}, "https://notexample.com", false},
		{"subdomain with scheme", []string{"https://*.example.com"}, "http://flows.example.com", false},
		{"garbage origin", []string{"*.example.com"}, "null", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, newOriginPolicy(tt.origins).allows(tt.origin))
		})
	}
}

func TestCORS_PreflightAllowsAPIKeyHeaders(t *testing.T) {
	t.Parallel()

	cfg := DefaultCORSConfig()
	cfg.AllowedOrigins = []string{"https://app.example.com"}

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/process/flow-1", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "api-key, content-type")
	rec := serveCORS(cfg, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	allowed := rec.Header().Get("Access-Control-Allow-Headers")
	assert.Contains(t, allowed, "api-key")
	assert.Contains(t, allowed, "x-api-key")
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
	assert.Equal(t, "86400", rec.Header().Get("Access-Control-Max-Age"))
	assert.Contains(t, rec.Header().Values("Vary"), "Origin")
}

func TestCORS_ExposesRetryAfter(t *testing.T) {
	t.Parallel()

	cfg := DefaultCORSConfig()
	cfg.AllowedOrigins = []string{"*"}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/process/flow-1", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := serveCORS(cfg, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "Retry-After")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_CredentialsReflectOrigin(t *testing.T) {
	t.Parallel()

	cfg := DefaultCORSConfig()
	cfg.AllowedOrigins = []string{"*"}
	cfg.AllowCredentials = true

	req := httptest.NewRequest(http.MethodGet, "/api/v1/all", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := serveCORS(cfg, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	t.Parallel()

	cfg := DefaultCORSConfig()
	cfg.AllowedOrigins = []string{"https://app.example.com"}

	preflight := httptest.NewRequest(http.MethodOptions, "/api/v1/validate/code", nil)
	preflight.Header.Set("Origin", "https://evil.com")
	preflight.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := serveCORS(cfg, preflight)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	// Simple requests still reach the handler; the browser withholds the body.
	simple := httptest.NewRequest(http.MethodPost, "/api/v1/validate/code", nil)
	simple.Header.Set("Origin", "https://evil.com")
	rec = serveCORS(cfg, simple)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Expose-Headers"))
}

func TestCORS_SameOriginUntouched(t *testing.T) {
	t.Parallel()

	cfg := DefaultCORSConfig()
	cfg.AllowedOrigins = []string{"*"}

	rec := serveCORS(cfg, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Values("Vary"))
}

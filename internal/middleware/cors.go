package middleware

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// CORSConfig configures cross-origin access for browser clients.
type CORSConfig struct {
	// AllowedOrigins holds exact origins ("https://app.example.com"),
	// subdomain patterns ("*.example.com" or "https://*.example.com") or "*".
	// An empty list denies every cross-origin request.
	AllowedOrigins []string

	AllowedMethods []string

	// AllowedHeaders must include both API key header spellings so browser
	// clients can call /process.
	AllowedHeaders []string

	// ExposedHeaders are readable by browser scripts.
	ExposedHeaders []string

	// AllowCredentials makes "*" reflect the request origin instead of
	// answering with a literal wildcard.
	AllowCredentials bool

	MaxAge time.Duration
}

// DefaultCORSConfig returns the defaults used by the API server. No origin
// is allowed until AllowedOrigins is set.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{
			"Accept",
			"Accept-Language",
			"Authorization",
			"Content-Type",
			apiKeyHeader,
			apiKeyHeaderAlt,
			"X-Request-ID",
		},
		ExposedHeaders: []string{
			"X-Request-ID",
			"X-RateLimit-Limit",
			"X-RateLimit-Remaining",
			"X-RateLimit-Reset",
			"Retry-After",
		},
		MaxAge: 24 * time.Hour,
	}
}

// originPolicy is the compiled form of AllowedOrigins.
type originPolicy struct {
	any      bool
	exact    map[string]bool
	patterns []originPattern
}

type originPattern struct {
	scheme string // empty matches any scheme
	suffix string // ".example.com"
}

func newOriginPolicy(origins []string) originPolicy {
	p := originPolicy{exact: make(map[string]bool, len(origins))}
	for _, o := range origins {
		o = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(o), "/"))
		switch {
		case o == "":
		case o == "*":
			p.any = true
		case strings.Contains(o, "*."):
			scheme, host, found := strings.Cut(o, "://")
			if !found {
				scheme, host = "", o
			}
			p.patterns = append(p.patterns, originPattern{scheme: scheme, suffix: strings.TrimPrefix(host, "*")})
		default:
			p.exact[o] = true
		}
	}
	return p
}

func (p originPolicy) allows(origin string) bool {
	if p.any {
		return true
	}
	origin = strings.ToLower(origin)
	if p.exact[origin] {
		return true
	}
	if len(p.patterns) == 0 {
		return false
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	host := u.Hostname()
	for _, pat := range p.patterns {
		if pat.scheme != "" && pat.scheme != u.Scheme {
			continue
		}
		// "*.example.com" matches subdomains only, never "example.com" itself.
		if strings.HasSuffix(host, pat.suffix) && len(host) > len(pat.suffix) {
			return true
		}
	}
	return false
}

// CORS returns a middleware that answers preflight requests and decorates
// responses to allowed origins. Requests without an Origin header pass
// through untouched. Preflights from disallowed origins get 403.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	policy := newOriginPolicy(cfg.AllowedOrigins)
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	exposed := strings.Join(cfg.ExposedHeaders, ", ")
	maxAge := ""
	if secs := int(cfg.MaxAge / time.Second); secs > 0 {
		maxAge = strconv.Itoa(secs)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			preflight := r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""
			h := w.Header()
			h.Add("Vary", "Origin")

			if !policy.allows(origin) {
				if preflight {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			if policy.any && !cfg.AllowCredentials {
				h.Set("Access-Control-Allow-Origin", "*")
			} else {
				h.Set("Access-Control-Allow-Origin", origin)
			}
			if cfg.AllowCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}

			if !preflight {
				if exposed != "" {
					h.Set("Access-Control-Expose-Headers", exposed)
				}
				next.ServeHTTP(w, r)
				return
			}

			h.Add("Vary", "Access-Control-Request-Method")
			h.Add("Vary", "Access-Control-Request-Headers")
			h.Set("Access-Control-Allow-Methods", methods)
			h.Set("Access-Control-Allow-Headers", headers)
			if maxAge != "" {
				h.Set("Access-Control-Max-Age", maxAge)
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

// Package cors provides the Cross-Origin Resource Sharing policy installed on the HTTP engine.
package cors

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"
)

// DefaultMaxAge is the default preflight cache duration.
const DefaultMaxAge = 12 * time.Hour

// Config configures the CORS policy.
type Config struct {
	// AllowOriginFunc is a dynamic origin validator.
	// When set, it overrides AllowOrigins.
	AllowOriginFunc func(origin string) bool

	// AllowOrigins is a static list of allowed origins. "*" allows any origin.
	AllowOrigins []string

	AllowMethods  []string
	AllowHeaders  []string
	ExposeHeaders []string

	// MaxAge specifies how long preflight responses can be cached.
	MaxAge time.Duration

	// AllowCredentials echoes the request origin instead of "*".
	AllowCredentials bool
}

// Default returns the policy used when an App enables CORS without a configuration.
func Default() Config {
	return Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPatch,
			http.MethodPost, http.MethodDelete,
		},
		MaxAge: DefaultMaxAge,
	}
}

// Option configures Config.
type Option func(*Config)

// WithAllowOrigins sets the allowed origins.
func WithAllowOrigins(origins ...string) Option {
	return func(cfg *Config) {
		cfg.AllowOrigins = origins
	}
}

// WithAllowOriginFunc sets a dynamic origin validator.
func WithAllowOriginFunc(fn func(origin string) bool) Option {
	return func(cfg *Config) {
		cfg.AllowOriginFunc = fn
	}
}

// WithAllowMethods sets the allowed HTTP methods.
func WithAllowMethods(methods ...string) Option {
	return func(cfg *Config) {
		cfg.AllowMethods = methods
	}
}

// WithAllowHeaders sets the allowed request headers.
func WithAllowHeaders(headers ...string) Option {
	return func(cfg *Config) {
		cfg.AllowHeaders = headers
	}
}

// WithExposeHeaders sets the headers exposed to the client.
func WithExposeHeaders(headers ...string) Option {
	return func(cfg *Config) {
		cfg.ExposeHeaders = headers
	}
}

// WithAllowCredentials enables credentials support.
func WithAllowCredentials() Option {
	return func(cfg *Config) {
		cfg.AllowCredentials = true
	}
}

// WithMaxAge sets the preflight cache duration.
func WithMaxAge(d time.Duration) Option {
	return func(cfg *Config) {
		cfg.MaxAge = d
	}
}

// New builds a Config from Default and the given options.
func New(opts ...Option) Config {
	cfg := Default()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Handler returns engine middleware enforcing cfg.
// Preflight requests are answered with 204 and never reach the routes.
func Handler(cfg Config) func(http.Handler) http.Handler {
	allowMethodsStr := strings.Join(cfg.AllowMethods, ", ")
	allowHeadersStr := strings.Join(cfg.AllowHeaders, ", ")
	exposeHeadersStr := strings.Join(cfg.ExposeHeaders, ", ")
	maxAgeStr := strconv.Itoa(int(cfg.MaxAge.Seconds()))
	hasWildcard := slices.Contains(cfg.AllowOrigins, "*")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" || !isOriginAllowed(origin, &cfg, hasWildcard) {
				next.ServeHTTP(w, r)
				return
			}

			headers := w.Header()
			headers.Add("Vary", "Origin")

			if cfg.AllowCredentials || !hasWildcard {
				headers.Set("Access-Control-Allow-Origin", origin)
			} else {
				headers.Set("Access-Control-Allow-Origin", "*")
			}
			if cfg.AllowCredentials {
				headers.Set("Access-Control-Allow-Credentials", "true")
			}
			if exposeHeadersStr != "" {
				headers.Set("Access-Control-Expose-Headers", exposeHeadersStr)
			}

			if r.Method != http.MethodOptions || r.Header.Get("Access-Control-Request-Method") == "" {
				next.ServeHTTP(w, r)
				return
			}

			headers.Add("Vary", "Access-Control-Request-Method")
			headers.Add("Vary", "Access-Control-Request-Headers")
			headers.Set("Access-Control-Allow-Methods", allowMethodsStr)

			// Reflect requested headers when no explicit list is configured.
			if allowHeadersStr != "" {
				headers.Set("Access-Control-Allow-Headers", allowHeadersStr)
			} else if reqHeaders := r.Header.Get("Access-Control-Request-Headers"); reqHeaders != "" {
				headers.Set("Access-Control-Allow-Headers", reqHeaders)
			}
			if cfg.MaxAge > 0 {
				headers.Set("Access-Control-Max-Age", maxAgeStr)
			}

			w.WriteHeader(http.StatusNoContent)
		})
	}
}

func isOriginAllowed(origin string, cfg *Config, hasWildcard bool) bool {
	if cfg.AllowOriginFunc != nil {
		return cfg.AllowOriginFunc(origin)
	}
	if hasWildcard {
		return true
	}
	return slices.Contains(cfg.AllowOrigins, origin)
}

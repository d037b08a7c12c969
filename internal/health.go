package internal

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
)

// Probe defaults.
const (
	defaultLivenessPath  = "/health/live"
	defaultReadinessPath = "/health/ready"
	defaultCheckTimeout  = 5 * time.Second
)

// CheckFunc reports whether a dependency the routes rely on is usable.
type CheckFunc func(ctx context.Context) error

// namedCheck is a readiness check with its report name.
type namedCheck struct {
	fn   CheckFunc
	name string
}

// HealthOption configures the probe endpoints.
type HealthOption func(*healthConfig)

type healthConfig struct {
	livenessPath  string
	readinessPath string
	checks        []namedCheck
	timeout       time.Duration
}

func newHealthConfig(opts ...HealthOption) *healthConfig {
	cfg := &healthConfig{
		livenessPath:  defaultLivenessPath,
		readinessPath: defaultReadinessPath,
		timeout:       defaultCheckTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithLivenessPath sets the liveness probe path. Defaults to "/health/live".
func WithLivenessPath(path string) HealthOption {
	return func(c *healthConfig) {
		if path != "" {
			c.livenessPath = path
		}
	}
}

// WithReadinessPath sets the readiness probe path. Defaults to "/health/ready".
func WithReadinessPath(path string) HealthOption {
	return func(c *healthConfig) {
		if path != "" {
			c.readinessPath = path
		}
	}
}

// WithReadinessCheck adds a named readiness check.
// A later check with the same name replaces the earlier one.
func WithReadinessCheck(name string, fn CheckFunc) HealthOption {
	return func(c *healthConfig) {
		if fn == nil {
			return
		}
		c.checks = slices.DeleteFunc(c.checks, func(nc namedCheck) bool { return nc.name == name })
		c.checks = append(c.checks, namedCheck{name: name, fn: fn})
	}
}

// WithCheckTimeout bounds a readiness probe run. Defaults to 5s.
func WithCheckTimeout(d time.Duration) HealthOption {
	return func(c *healthConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// probeReport is the JSON body of both probes.
type probeReport struct {
	Checks map[string]string `json:"checks,omitempty"`
	Status string            `json:"status"`
	Routes int               `json:"routes"`
}

// mount registers the probe endpoints on r.
func (h *healthConfig) mount(r chi.Router, routes int, logger *slog.Logger) {
	r.Get(h.livenessPath, func(w http.ResponseWriter, req *http.Request) {
		writeProbe(w, req, http.StatusOK, probeReport{Status: "healthy", Routes: routes})
	})
	r.Get(h.readinessPath, func(w http.ResponseWriter, req *http.Request) {
		failed, report := h.ready(req.Context(), logger)
		report.Routes = routes

		code := http.StatusOK
		if failed {
			code = http.StatusServiceUnavailable
		}
		writeProbe(w, req, code, report)
	})
}

// ready runs every check concurrently under the probe timeout.
// The report maps each check to "ok" or its error message.
func (h *healthConfig) ready(ctx context.Context, logger *slog.Logger) (bool, probeReport) {
	report := probeReport{Status: "healthy"}
	if len(h.checks) == 0 {
		return false, report
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		g       errgroup.Group
		results = make(map[string]string, len(h.checks))
	)
	for _, nc := range h.checks {
		g.Go(func() error {
			res := "ok"
			err := nc.fn(ctx)
			if err != nil {
				res = err.Error()
				logger.WarnContext(ctx, "readiness check failed", slog.String("check", nc.name), slog.Any("error", err))
			}
			mu.Lock()
			results[nc.name] = res
			mu.Unlock()
			return err
		})
	}
	failed := g.Wait() != nil

	report.Checks = results
	if failed {
		report.Status = "unhealthy"
	}
	return failed, report
}

// writeProbe answers JSON when the client asks for it and a plain status line otherwise.
func writeProbe(w http.ResponseWriter, r *http.Request, code int, report probeReport) {
	if r.URL.Query().Get("format") == "json" || strings.Contains(r.Header.Get("Accept"), "application/json") {
		_ = writeJSON(w, code, report)
		return
	}
	_ = writeBody(w, code, contentTypeText, fmt.Appendf(nil, "%s\n", http.StatusText(code)))
}

package internal

import (
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmitrymomot/treeserve/pkg/logger"
)

// Option configures the server.
type Option func(*Server)

// WithRegistry sets the registry resolving file-routed modules.
// Defaults to the process-wide registry.
func WithRegistry(r *Registry) Option {
	return func(s *Server) {
		if r != nil {
			s.registry = r
		}
	}
}

// WithSourceRoot enables automatic file routing of routesDir under fsys.
// A middleware file at the root of fsys wraps every discovered route.
//
// Example:
//
//	treeserve.New(tree,
//	    treeserve.WithSourceRoot(os.DirFS("src"), "app"),
//	)
func WithSourceRoot(fsys fs.FS, routesDir string) Option {
	return func(s *Server) {
		if fsys != nil {
			s.compileOpts = append(s.compileOpts, SourceRoot(fsys, routesDir))
		}
	}
}

// WithCompileOptions passes options through to Compile.
func WithCompileOptions(opts ...CompileOption) Option {
	return func(s *Server) {
		s.compileOpts = append(s.compileOpts, opts...)
	}
}

// WithGlobalContext sets the process-wide store used as the fallback for context reads.
// Defaults to the store returned by Global.
func WithGlobalContext(g *GlobalContext) Option {
	return func(s *Server) {
		if g != nil {
			s.global = g
		}
	}
}

// WithMaxBodySize limits the size of parsed JSON request bodies. Defaults to 1MB.
func WithMaxBodySize(n int64) Option {
	return func(s *Server) {
		s.maxBodyBytes = n
	}
}

// WithPort overrides the port of the App node.
func WithPort(port int) Option {
	return func(s *Server) {
		s.port = port
	}
}

// WithMiddleware adds HTTP middleware running before routing,
// for example middleware from the chi ecosystem.
// Middleware is applied in the order provided.
func WithMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(s *Server) {
		s.middlewares = append(s.middlewares, mw...)
	}
}

// WithStaticFiles mounts a static file handler at the given pattern.
// Directory listings are disabled. Files are served with default cache headers.
//
// Example:
//
//	//go:embed public
//	var assets embed.FS
//
//	treeserve.New(tree,
//	    treeserve.WithStaticFiles("/static/", assets, "public"),
//	)
func WithStaticFiles(pattern string, fsys fs.FS, subDir string) Option {
	return func(s *Server) {
		subFS, err := fs.Sub(fsys, subDir)
		if err != nil {
			panic(err)
		}

		fileServer := http.StripPrefix(strings.TrimSuffix(pattern, "/"), http.FileServerFS(subFS))

		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "/") {
				http.NotFound(w, r)
				return
			}

			w.Header().Set("Cache-Control", "public, max-age=3600")
			w.Header().Set("X-Content-Type-Options", "nosniff")

			fileServer.ServeHTTP(w, r)
		})

		s.staticRoutes = append(s.staticRoutes, staticRoute{handler, pattern})
	}
}

// WithErrorHandler sets a custom renderer for errors returned by handlers and middleware.
// It is not called once the response has been written.
//
// Example:
//
//	treeserve.WithErrorHandler(func(c treeserve.Context, err error) error {
//	    _, werr := c.Response().Write([]byte("something went wrong"))
//	    return werr
//	})
func WithErrorHandler(h ErrorHandler) Option {
	return func(s *Server) {
		s.errorHandler = h
	}
}

// WithHealthChecks serves liveness and readiness probes next to the routes.
// The liveness probe (/health/live) answers as long as the process serves requests.
// The readiness probe (/health/ready) runs the configured checks concurrently.
//
// Example:
//
//	treeserve.WithHealthChecks(
//	    treeserve.WithReadinessCheck("db", pingDB),
//	)
func WithHealthChecks(opts ...HealthOption) Option {
	return func(s *Server) {
		s.healthConfig = newHealthConfig(opts...)
	}
}

// WithMetrics records Prometheus metrics for every request into reg and,
// when path is not empty, serves them at path. A nil reg creates a new registry.
//
// Example:
//
//	treeserve.WithMetrics(prometheus.NewRegistry(), "/metrics")
func WithMetrics(reg *prometheus.Registry, path string) Option {
	return func(s *Server) {
		s.metrics = newMetrics(reg, defaultNamespace, path)
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider.
// Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Server) {
		s.tracerProvider = tp
	}
}

// WithRunOptions sets default runtime options used by Run and Serve.
func WithRunOptions(opts ...RunOption) Option {
	return func(s *Server) {
		s.runOpts = append(s.runOpts, opts...)
	}
}

// WithLogger creates a logger with a component name and optional extractors.
// The component name is added to every log entry for easy filtering.
// Extractors pull values from context (e.g., request_id, route).
//
// Example:
//
//	treeserve.New(tree,
//	    treeserve.WithLogger("api", middlewares.RequestIDExtractor()),
//	)
func WithLogger(component string, extractors ...logger.ContextExtractor) Option {
	return func(s *Server) {
		s.logger = logger.New(extractors...).With("component", component)
	}
}

// WithCustomLogger sets a fully custom logger.
//
// Example:
//
//	customLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))
//	treeserve.New(tree,
//	    treeserve.WithCustomLogger(customLogger),
//	)
func WithCustomLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

package internal

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmitrymomot/treeserve/pkg/cors"
	"github.com/dmitrymomot/treeserve/pkg/logger"
)

// Default server timeouts.
const (
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 30 * time.Second
	defaultIdleTimeout       = 120 * time.Second
	defaultReadHeaderTimeout = 5 * time.Second
	defaultMaxHeaderBytes    = 1 << 20 // 1MB
	defaultShutdownTimeout   = 30 * time.Second
)

// Server is a compiled node tree installed on an HTTP router.
// It is immutable after creation; all configuration is done via New.
type Server struct {
	router         *chi.Mux
	table          *RouteTable
	contexts       *contextManager
	errorHandler   ErrorHandler
	logger         *slog.Logger
	global         *GlobalContext
	registry       *Registry
	healthConfig   *healthConfig
	metrics        *metrics
	tracerProvider trace.TracerProvider
	compileOpts    []CompileOption
	middlewares    []func(http.Handler) http.Handler
	staticRoutes   []staticRoute
	runOpts        []RunOption
	maxBodyBytes   int64
	port           int
}

// staticRoute represents a static file handler mount point.
type staticRoute struct {
	handler http.Handler
	pattern string
}

// New compiles root and installs the resulting route table.
// Compilation errors are returned before anything is served.
//
// Example:
//
//	srv, err := treeserve.New(
//	    treeserve.App(treeserve.AppProps{Port: 8080},
//	        treeserve.Route(treeserve.RouteProps{Path: "/", Method: "GET"}, home),
//	    ),
//	    treeserve.WithLogger("api"),
//	)
func New(root Node, opts ...Option) (*Server, error) {
	s := &Server{
		router:   chi.NewRouter(),
		logger:   logger.NewNope(),
		global:   Global(),
		registry: DefaultRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}

	compileOpts := append([]CompileOption{ModuleRegistry(s.registry)}, s.compileOpts...)
	table, err := Compile(root, compileOpts...)
	if err != nil {
		return nil, err
	}
	s.table = table
	s.contexts = newContextManager(s.global, s.logger, s.maxBodyBytes)

	for _, w := range table.Warnings() {
		s.logger.Warn("file routing", slog.String("warning", w))
	}

	s.setupRoutes()
	return s, nil
}

// Handler returns the HTTP handler serving the compiled routes.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Routes returns the compiled route table.
func (s *Server) Routes() *RouteTable {
	return s.table
}

// Port returns the port Run listens on when no address is given.
// An explicit WithPort wins over the App node; otherwise the App node's port
// or the default applies.
func (s *Server) Port() int {
	if s.port > 0 {
		return s.port
	}
	return s.table.Config.ListenPort()
}

// Run starts the HTTP server and blocks until shutdown.
// Without an Address option the server listens on Port().
func (s *Server) Run(opts ...RunOption) error {
	cfg := buildRunConfig(append(s.runOpts, opts...)...)
	if cfg.address == "" {
		cfg.address = ":" + strconv.Itoa(s.Port())
	}
	if cfg.logger == nil {
		cfg.logger = s.logger
	}

	return runServer(s.router, cfg)
}

// setupRoutes configures engine middleware, auxiliary endpoints and the route table.
func (s *Server) setupRoutes() {
	s.router.Use(middleware.StripSlashes, middleware.GetHead)
	s.router.Use(tracing(s.tracerProvider))
	if s.metrics != nil {
		s.router.Use(s.metrics.middleware)
	}
	if policy, ok := s.table.Config.CORSPolicy(); ok {
		s.router.Use(cors.Handler(policy))
	}
	for _, mw := range s.middlewares {
		s.router.Use(mw)
	}

	for _, sr := range s.staticRoutes {
		s.router.Mount(sr.pattern, sr.handler)
	}
	if s.healthConfig != nil {
		s.healthConfig.mount(s.router, s.table.Len(), s.logger)
	}
	if s.metrics != nil && s.metrics.path != "" {
		s.router.Handle(s.metrics.path, s.metrics.handler())
	}

	d := &dispatcher{server: s, router: s.router}
	d.install(s.table)

	s.logger.Info("routes installed",
		slog.Int("routes", s.table.Len()),
		slog.String("address", fmt.Sprintf(":%d", s.Port())))
}

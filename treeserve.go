package treeserve

import (
	"context"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmitrymomot/treeserve/internal"
	"github.com/dmitrymomot/treeserve/pkg/logger"
)

// Type aliases - public API
type (
	// Node is a declarative description of an application construct.
	Node = internal.Node

	// Fragment groups sibling nodes without adding a prefix.
	Fragment = internal.Fragment

	// AppProps are the App node properties.
	AppProps = internal.AppProps

	// RouteProps are the Route node properties.
	RouteProps = internal.RouteProps

	// Context is the per-request handle passed to middleware and handlers.
	Context = internal.Context

	// HandlerFunc is the terminal handler of a route.
	HandlerFunc = internal.HandlerFunc

	// MiddlewareFunc runs before the route handler and may short-circuit the chain.
	MiddlewareFunc = internal.MiddlewareFunc

	// Next continues the middleware chain.
	Next = internal.Next

	// ErrorHandler renders errors returned from handlers and middleware.
	ErrorHandler = internal.ErrorHandler

	// ResponseNode describes the HTTP response a handler wants to send.
	ResponseNode = internal.ResponseNode

	// ResponseOption configures a ResponseNode.
	ResponseOption = internal.ResponseOption

	// ResponseWriter wraps http.ResponseWriter and tracks the written state.
	ResponseWriter = internal.ResponseWriter

	// Server is a compiled node tree installed on an HTTP router.
	Server = internal.Server

	// Option configures the server.
	Option = internal.Option

	// RunOption configures the server runtime.
	RunOption = internal.RunOption

	// CompileOption configures Compile.
	CompileOption = internal.CompileOption

	// HealthOption configures health check endpoints.
	HealthOption = internal.HealthOption

	// CheckFunc is a readiness check.
	CheckFunc = internal.CheckFunc

	// RouteTable is the flat, ordered result of compilation.
	RouteTable = internal.RouteTable

	// RouteEntry is one compiled route.
	RouteEntry = internal.RouteEntry

	// AppConfig is the configuration collected from the App node.
	AppConfig = internal.AppConfig

	// RouteModule is the set of handlers a route file exports.
	RouteModule = internal.RouteModule

	// RouteLoader builds a route module on first use.
	RouteLoader = internal.RouteLoader

	// MiddlewareLoader builds the middlewares of a middleware file on first use.
	MiddlewareLoader = internal.MiddlewareLoader

	// Registry maps file-routed convention files to Go code.
	Registry = internal.Registry

	// GlobalContext is the process-wide key-value store.
	GlobalContext = internal.GlobalContext

	// CORSConfig configures the CORS policy.
	CORSConfig = internal.CORSConfig

	// ContextExtractor extracts a slog attribute from context.
	// Used with WithLogger to add request-scoped values to logs.
	ContextExtractor = logger.ContextExtractor

	// Extractor tries multiple sources in order and returns the first match.
	Extractor = internal.Extractor

	// ExtractorSource extracts a value from the request context.
	ExtractorSource = internal.ExtractorSource

	// HTTPError is an error carrying the HTTP status and message to render.
	HTTPError = internal.HTTPError

	// CompileError is a fatal tree or file-routing problem.
	CompileError = internal.CompileError

	// DispatchError reports a route the HTTP engine could not register.
	DispatchError = internal.DispatchError

	// PanicError represents a panic recovered while handling a request.
	PanicError = internal.PanicError
)

// Scalar is the set of types Param and Query convert to.
type Scalar = internal.Scalar

// MethodAll registers a route for every HTTP method.
const MethodAll = internal.MethodAll

// Environment variables read by Serve.
const (
	EnvVar       = internal.EnvVar
	PortEnvVar   = internal.PortEnvVar
	RoutesEnvVar = internal.RoutesEnvVar
)

// Sentinel errors.
var (
	ErrNoRequestContext    = internal.ErrNoRequestContext
	ErrMissingMethod       = internal.ErrMissingMethod
	ErrModuleNotRegistered = internal.ErrModuleNotRegistered
	ErrInvalidJSONBody     = internal.ErrInvalidJSONBody
)

// Nodes

// App creates the application node.
//
// Example:
//
//	treeserve.App(treeserve.AppProps{Port: 8080, CORS: true, GlobalPrefix: "/api"},
//	    treeserve.Route(treeserve.RouteProps{Path: "/health", Method: "GET"}, health),
//	)
func App(props AppProps, children ...Node) Node {
	return internal.App(props, children...)
}

// RouteGroup prefixes and wraps every route declared below it.
func RouteGroup(prefix string, children ...Node) Node {
	return internal.RouteGroup(prefix, children...)
}

// Route declares a single endpoint. The method is required.
func Route(props RouteProps, h HandlerFunc) Node {
	return internal.Route(props, h)
}

// Middleware attaches middleware to the enclosing group.
// It applies to every sibling route, wherever it is declared among them.
func Middleware(use ...MiddlewareFunc) Node {
	return internal.Middleware(use...)
}

// Component wraps a render function and its props into a node expanded at compile time.
func Component[P any](render func(P) Node, props P) Node {
	return internal.Component(render, props)
}

// FileRoutes mounts the directory tree rooted at dir.
// An empty prefix inherits the prefix of the enclosing group.
func FileRoutes(dir, prefix string) Node {
	return internal.FileRoutes(dir, prefix)
}

// FileRoutesFS mounts the file tree of fsys, resolving modules with registry.
// A nil registry uses the server's registry.
//
// Example:
//
//	//go:embed app
//	var appFS embed.FS
//
//	sub, _ := fs.Sub(appFS, "app")
//	treeserve.FileRoutesFS(sub, "/api", registry)
func FileRoutesFS(fsys fs.FS, prefix string, registry *Registry) Node {
	n := internal.FileRoutesFS(fsys, prefix)
	n.Registry = registry
	return n
}

// Responses

// Response creates a response description.
//
// Example:
//
//	return treeserve.Response(treeserve.Status(201), treeserve.JSON(user)), nil
func Response(opts ...ResponseOption) *ResponseNode {
	return internal.Response(opts...)
}

// Status sets the response status code. Defaults to 200.
func Status(code int) ResponseOption {
	return internal.Status(code)
}

// JSON sets a body serialized as JSON.
func JSON(v any) ResponseOption {
	return internal.JSON(v)
}

// Text sets a text/plain body.
func Text(s string) ResponseOption {
	return internal.Text(s)
}

// HTML sets a text/html body.
func HTML(s string) ResponseOption {
	return internal.HTML(s)
}

// Header sets a response header.
func Header(name, value string) ResponseOption {
	return internal.Header(name, value)
}

// Headers sets several response headers.
func Headers(h map[string]string) ResponseOption {
	return internal.Headers(h)
}

// Redirect redirects the client to url. Non-3xx statuses are sent as 302.
func Redirect(url string) ResponseOption {
	return internal.Redirect(url)
}

// Hooks

// UseRoute returns the request Context carried by ctx.
// Returns ErrNoRequestContext outside of a route or middleware.
func UseRoute(ctx context.Context) (Context, error) {
	return internal.UseRoute(ctx)
}

// UseContext reads a request-scoped value, falling back to the process-wide store.
func UseContext(ctx context.Context, key string) any {
	return internal.UseContext(ctx, key)
}

// UseSetContext writes a request-scoped value, or a process-wide one outside of a request.
func UseSetContext(ctx context.Context, key string, value any) {
	internal.UseSetContext(ctx, key, value)
}

// ContextValue returns the value stored under key as T, or the zero value of T.
func ContextValue[T any](c Context, key string) T {
	return internal.ContextValue[T](c, key)
}

// Param returns the URL parameter converted to T.
func Param[T Scalar](c Context, name string) T {
	return internal.Param[T](c, name)
}

// Query returns the query parameter converted to T.
func Query[T Scalar](c Context, name string) T {
	return internal.Query[T](c, name)
}

// QueryDefault returns the query parameter converted to T, or defaultValue.
func QueryDefault[T Scalar](c Context, name string, defaultValue T) T {
	return internal.QueryDefault(c, name, defaultValue)
}

// Global returns the process-wide store.
func Global() *GlobalContext {
	return internal.Global()
}

// Chain composes middlewares into a single MiddlewareFunc.
func Chain(mws ...MiddlewareFunc) MiddlewareFunc {
	return internal.Chain(mws...)
}

// Constructors

// New compiles root and returns a server ready to Run.
//
// Example:
//
//	srv, err := treeserve.New(tree, treeserve.WithLogger("api"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = srv.Run(treeserve.ShutdownTimeout(10 * time.Second))
func New(root Node, opts ...Option) (*Server, error) {
	return internal.New(root, opts...)
}

// Serve compiles root, installs it and blocks until shutdown.
// When TREESERVE_ENV is "development" the server also stops on the first Go
// source change so that `treeserve dev` can restart it.
func Serve(root Node, opts ...Option) error {
	return internal.Serve(root, opts...)
}

// Compile walks the node tree and returns the route table without serving it.
func Compile(root Node, opts ...CompileOption) (*RouteTable, error) {
	return internal.Compile(root, opts...)
}

// DevMode reports whether the process runs in development mode.
func DevMode() bool {
	return internal.DevMode()
}

// Registry

// NewRegistry creates an empty module registry.
func NewRegistry() *Registry {
	return internal.NewRegistry()
}

// DefaultRegistry returns the registry used when none is configured.
func DefaultRegistry() *Registry {
	return internal.DefaultRegistry()
}

// RegisterRoute registers the handlers of a route file in the default registry.
// Call it from an init function in the package holding the route file.
//
// Example:
//
//	// app/users/[id]/route.go
//	func init() {
//	    treeserve.RegisterRoute("app/users/[id]/route.go", treeserve.RouteModule{
//	        GET:    getUser,
//	        DELETE: deleteUser,
//	    })
//	}
func RegisterRoute(file string, mod RouteModule) {
	internal.DefaultRegistry().Route(file, mod)
}

// RegisterMiddleware registers the middlewares of a middleware file in the default registry.
func RegisterMiddleware(file string, mws ...MiddlewareFunc) {
	internal.DefaultRegistry().Middleware(file, mws...)
}

// PathSegment returns the URL path segment a file-routed directory name maps to.
func PathSegment(dir string) string {
	return internal.PathSegment(dir)
}

// Server options

// WithRegistry sets the registry resolving file-routed modules.
func WithRegistry(r *Registry) Option {
	return internal.WithRegistry(r)
}

// WithSourceRoot enables automatic file routing of routesDir under fsys.
func WithSourceRoot(fsys fs.FS, routesDir string) Option {
	return internal.WithSourceRoot(fsys, routesDir)
}

// WithCompileOptions passes options through to Compile.
func WithCompileOptions(opts ...CompileOption) Option {
	return internal.WithCompileOptions(opts...)
}

// WithGlobalContext sets the process-wide store used as the fallback for context reads.
func WithGlobalContext(g *GlobalContext) Option {
	return internal.WithGlobalContext(g)
}

// WithMaxBodySize limits the size of parsed JSON request bodies. Defaults to 1MB.
func WithMaxBodySize(n int64) Option {
	return internal.WithMaxBodySize(n)
}

// WithPort overrides the port of the App node.
func WithPort(port int) Option {
	return internal.WithPort(port)
}

// WithMiddleware adds HTTP middleware running before routing.
func WithMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return internal.WithMiddleware(mw...)
}

// WithStaticFiles mounts a static file handler at the given pattern.
func WithStaticFiles(pattern string, fsys fs.FS, subDir string) Option {
	return internal.WithStaticFiles(pattern, fsys, subDir)
}

// WithErrorHandler sets a custom renderer for errors returned by handlers and middleware.
func WithErrorHandler(h ErrorHandler) Option {
	return internal.WithErrorHandler(h)
}

// WithHealthChecks enables liveness and readiness endpoints.
func WithHealthChecks(opts ...HealthOption) Option {
	return internal.WithHealthChecks(opts...)
}

// WithMetrics records Prometheus metrics into reg and serves them at path.
func WithMetrics(reg *prometheus.Registry, path string) Option {
	return internal.WithMetrics(reg, path)
}

// WithTracerProvider sets the OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return internal.WithTracerProvider(tp)
}

// WithRunOptions sets default runtime options used by Run and Serve.
func WithRunOptions(opts ...RunOption) Option {
	return internal.WithRunOptions(opts...)
}

// WithLogger creates a logger with a component name and optional extractors.
//
// Example:
//
//	treeserve.New(tree,
//	    treeserve.WithLogger("api", middlewares.RequestIDExtractor(), treeserve.RouteExtractor()),
//	)
func WithLogger(component string, extractors ...ContextExtractor) Option {
	return internal.WithLogger(component, extractors...)
}

// WithCustomLogger sets a fully custom logger.
func WithCustomLogger(l *slog.Logger) Option {
	return internal.WithCustomLogger(l)
}

// Health check options

// WithLivenessPath sets a custom liveness endpoint path.
func WithLivenessPath(path string) HealthOption {
	return internal.WithLivenessPath(path)
}

// WithReadinessPath sets a custom readiness endpoint path.
func WithReadinessPath(path string) HealthOption {
	return internal.WithReadinessPath(path)
}

// WithReadinessCheck adds a named readiness check.
func WithReadinessCheck(name string, fn CheckFunc) HealthOption {
	return internal.WithReadinessCheck(name, fn)
}

// WithCheckTimeout bounds a readiness probe run.
func WithCheckTimeout(d time.Duration) HealthOption {
	return internal.WithCheckTimeout(d)
}

// Compile options

// ModuleRegistry sets the registry that resolves file-routed modules.
func ModuleRegistry(r *Registry) CompileOption {
	return internal.ModuleRegistry(r)
}

// RouteFileBase sets the base name of route files. Defaults to "route".
func RouteFileBase(base string) CompileOption {
	return internal.RouteFileBase(base)
}

// BaseDir sets the directory relative FileRoutes paths are resolved against.
func BaseDir(dir string) CompileOption {
	return internal.BaseDir(dir)
}

// SourceRoot enables automatic file routing during compilation.
func SourceRoot(fsys fs.FS, routesDir string) CompileOption {
	return internal.SourceRoot(fsys, routesDir)
}

// Run options

// Address sets the HTTP server address.
func Address(addr string) RunOption {
	return internal.Address(addr)
}

// Logger sets the runtime logger.
func Logger(l *slog.Logger) RunOption {
	return internal.Logger(l)
}

// ShutdownTimeout sets the timeout for graceful shutdown.
func ShutdownTimeout(d time.Duration) RunOption {
	return internal.ShutdownTimeout(d)
}

// StartupHook registers a function to run before the server accepts requests.
func StartupHook(fn func(context.Context) error) RunOption {
	return internal.StartupHook(fn)
}

// ShutdownHook registers a cleanup function to run during shutdown.
func ShutdownHook(fn func(context.Context) error) RunOption {
	return internal.ShutdownHook(fn)
}

// WithContext sets a custom base context for signal handling.
func WithContext(ctx context.Context) RunOption {
	return internal.WithContext(ctx)
}

// OnListen registers a function called with the bound address once the server accepts connections.
func OnListen(fn func(net.Addr)) RunOption {
	return internal.OnListen(fn)
}

// WatchChanges stops the server gracefully when a source file under dir changes.
func WatchChanges(dir string, extensions ...string) RunOption {
	return internal.WatchChanges(dir, extensions...)
}

// Extractors

// NewExtractor creates an Extractor that tries the given sources in order.
func NewExtractor(sources ...ExtractorSource) Extractor {
	return internal.NewExtractor(sources...)
}

// FromHeader returns a source that reads from a request header.
func FromHeader(name string) ExtractorSource {
	return internal.FromHeader(name)
}

// FromQuery returns a source that reads from a query parameter.
func FromQuery(name string) ExtractorSource {
	return internal.FromQuery(name)
}

// FromParam returns a source that reads from a URL parameter.
func FromParam(name string) ExtractorSource {
	return internal.FromParam(name)
}

// FromContextValue returns a source that reads a request-scoped value.
func FromContextValue(key string) ExtractorSource {
	return internal.FromContextValue(key)
}

// FromBearerToken returns a source that reads a Bearer token.
func FromBearerToken() ExtractorSource {
	return internal.FromBearerToken()
}

// RouteExtractor adds the matched route pattern to request log records.
func RouteExtractor() ContextExtractor {
	return internal.RouteExtractor()
}

// ContextValueExtractor adds the request-scoped value under key to log records as attr.
func ContextValueExtractor(key, attr string) ContextExtractor {
	return internal.ContextValueExtractor(key, attr)
}

// Errors

// NewHTTPError creates an HTTPError with the given status code and message.
func NewHTTPError(code int, message string) *HTTPError {
	return internal.NewHTTPError(code, message)
}

// ErrBadRequest creates a 400 error.
func ErrBadRequest(message string) *HTTPError {
	return internal.ErrBadRequest(message)
}

// ErrUnauthorized creates a 401 error.
func ErrUnauthorized(message string) *HTTPError {
	return internal.ErrUnauthorized(message)
}

// ErrForbidden creates a 403 error.
func ErrForbidden(message string) *HTTPError {
	return internal.ErrForbidden(message)
}

// ErrNotFound creates a 404 error.
func ErrNotFound(message string) *HTTPError {
	return internal.ErrNotFound(message)
}

// ErrInternal creates a 500 error.
func ErrInternal(message string) *HTTPError {
	return internal.ErrInternal(message)
}

// AsHTTPError extracts the HTTPError from an error chain.
func AsHTTPError(err error) *HTTPError {
	return internal.AsHTTPError(err)
}

// Testing helpers

// NewRequestContext builds a request Context for testing middleware and handlers.
func NewRequestContext(w http.ResponseWriter, r *http.Request, params map[string]string) (Context, error) {
	return internal.NewRequestContext(w, r, params)
}

// Invoke runs mws and h against c and writes the result to c's response.
func Invoke(c Context, h HandlerFunc, mws ...MiddlewareFunc) error {
	return internal.Invoke(c, h, mws...)
}

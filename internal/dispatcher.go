package internal

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
)

// engineMethods are the route methods the HTTP engine accepts, besides "all".
var engineMethods = map[string]string{
	"get":     http.MethodGet,
	"post":    http.MethodPost,
	"put":     http.MethodPut,
	"patch":   http.MethodPatch,
	"delete":  http.MethodDelete,
	"options": http.MethodOptions,
	"head":    http.MethodHead,
}

// dispatcher registers a route table on a chi router and serves its routes.
type dispatcher struct {
	server        *Server
	router        *chi.Mux
	methodsByPath map[string][]string
	// claimed holds the methods already bound per chi pattern; the first
	// entry declared for a method and pattern wins.
	claimed   map[string][]string
	wildcards []RouteEntry
}

// install registers every entry of the table in order.
// Entries the engine rejects are logged and skipped.
func (d *dispatcher) install(table *RouteTable) {
	d.methodsByPath = make(map[string][]string)
	d.claimed = make(map[string][]string)
	registered := make(map[string]bool)
	for _, e := range table.entries {
		if !e.IsWildcard() {
			registered[e.Path] = true
		}
	}

	for _, e := range table.entries {
		if e.IsWildcard() {
			d.wildcards = append(d.wildcards, e)
			continue
		}
		for _, pattern := range enginePatterns(e, registered) {
			if err := d.register(e, pattern); err != nil {
				d.server.logger.Warn("route skipped",
					slog.String("method", e.Method),
					slog.String("path", e.Path),
					slog.Any("error", err))
			}
		}
	}

	d.router.NotFound(d.notFound)
	d.router.MethodNotAllowed(d.methodNotAllowed)
}

func (d *dispatcher) register(e RouteEntry, pattern string) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &DispatchError{Method: e.Method, Path: e.Path, Err: fmt.Errorf("%v", v)}
		}
	}()

	h := d.routeHandler(e)
	if e.Method == MethodAll {
		free := 0
		for _, m := range routeMethods {
			if d.claim(pattern, m) {
				d.router.Method(m, pattern, h)
				free++
			}
		}
		if free == 0 {
			return &DispatchError{Method: e.Method, Path: e.Path, Err: fmt.Errorf("every method of %s is already declared", pattern)}
		}
		return nil
	}

	method, ok := engineMethods[e.Method]
	if !ok {
		return &DispatchError{Method: e.Method, Path: e.Path, Err: fmt.Errorf("unsupported HTTP method %q", e.Method)}
	}
	if !d.claim(pattern, method) {
		return &DispatchError{Method: e.Method, Path: e.Path, Err: fmt.Errorf("duplicate route %s %s", method, pattern)}
	}
	d.router.Method(method, pattern, h)
	d.methodsByPath[pattern] = append(d.methodsByPath[pattern], method)
	return nil
}

// claim reserves method on pattern. It reports false when an earlier entry holds it.
func (d *dispatcher) claim(pattern, method string) bool {
	if slices.Contains(d.claimed[pattern], method) {
		return false
	}
	d.claimed[pattern] = append(d.claimed[pattern], method)
	return true
}

// routeHandler adapts a route entry to an http.Handler.
func (d *dispatcher) routeHandler(e RouteEntry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d.server.serve(w, r, e.Path, routeParams(r, e.CatchAll), e.Middlewares, e.Handler)
	})
}

// notFound runs the first wildcard route covering the request path and
// accepting its method, or writes the default 404.
func (d *dispatcher) notFound(w http.ResponseWriter, r *http.Request) {
	p := requestPath(r)
	for _, e := range d.wildcards {
		if !e.matchesWildcard(p) {
			continue
		}
		if e.Method == MethodAll || strings.EqualFold(e.Method, r.Method) {
			d.server.serve(w, r, e.Path, nil, e.Middlewares, e.Handler)
			return
		}
	}

	_ = writeJSON(w, http.StatusNotFound, map[string]string{
		"error":   "Not Found",
		"message": fmt.Sprintf("Route %s %s not found", r.Method, r.URL.RequestURI()),
		"path":    r.URL.RequestURI(),
		"method":  r.Method,
	})
}

// methodNotAllowed answers requests whose path matches a declared route
// registered for other methods only.
func (d *dispatcher) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	p := requestPath(r)
	allowed := d.allowedMethods(r.Method, p)
	if len(allowed) == 0 {
		d.notFound(w, r)
		return
	}

	d.server.logger.InfoContext(r.Context(), "method not allowed",
		slog.String("path", p),
		slog.String("method", r.Method),
		slog.String("allowed", strings.Join(allowed, ", ")))

	w.Header().Set("Allow", strings.Join(allowed, ", "))
	_ = writeJSON(w, http.StatusMethodNotAllowed, map[string]string{
		"error":   "Method Not Allowed",
		"message": fmt.Sprintf("Method %s is not allowed for path %s", r.Method, p),
		"path":    p,
		"method":  r.Method,
	})
}

// allowedMethods probes the router for the methods registered on the route
// matching p, in declaration order.
func (d *dispatcher) allowedMethods(method, p string) []string {
	var pattern string
	var probed []string
	for _, m := range routeMethods {
		if m == method {
			continue
		}
		rctx := chi.NewRouteContext()
		if d.router.Match(rctx, m, p) {
			probed = append(probed, m)
			if pattern == "" {
				pattern = rctx.RoutePattern()
			}
		}
	}
	if declared, ok := d.methodsByPath[pattern]; ok {
		return declared
	}
	return probed
}

// requestPath returns the path the router matched against.
func requestPath(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePath != "" {
		return rctx.RoutePath
	}
	if r.URL.RawPath != "" {
		return r.URL.RawPath
	}
	return r.URL.Path
}

// enginePatterns translates a compiled path into chi patterns.
// ":name" becomes "{name}" and a trailing catch-all becomes "*".
// An optional catch-all also registers its parent path unless another
// entry already declares it.
func enginePatterns(e RouteEntry, registered map[string]bool) []string {
	segments := strings.Split(strings.TrimPrefix(e.Path, "/"), "/")
	last := len(segments) - 1
	for i, seg := range segments {
		if !strings.HasPrefix(seg, ":") || len(seg) < 2 {
			continue
		}
		if i == last && e.CatchAll != "" && seg[1:] == e.CatchAll {
			segments[i] = "*"
			continue
		}
		segments[i] = "{" + seg[1:] + "}"
	}

	pattern := "/" + strings.Join(segments, "/")
	patterns := []string{pattern}
	if e.CatchAll != "" && e.OptionalCatchAll && segments[last] == "*" {
		parent := normalizePath(strings.TrimSuffix(e.Path, "/:"+e.CatchAll))
		if !registered[parent] {
			patterns = append(patterns, enginePatterns(RouteEntry{Path: parent}, nil)...)
		}
	}
	return patterns
}

// routeParams copies the URL parameters matched by chi.
// The catch-all value is stored under the catch-all parameter name.
func routeParams(r *http.Request, catchAll string) map[string]string {
	params := make(map[string]string)
	if catchAll != "" {
		params[catchAll] = ""
	}
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return params
	}
	for i, key := range rctx.URLParams.Keys {
		if i >= len(rctx.URLParams.Values) {
			break
		}
		if key == "*" {
			if catchAll == "" {
				continue
			}
			key = catchAll
		}
		params[key] = rctx.URLParams.Values[i]
	}
	return params
}

// serve runs the middleware chain and handler for one request and writes the result.
func (s *Server) serve(w http.ResponseWriter, r *http.Request, pattern string, params map[string]string, mws []MiddlewareFunc, h HandlerFunc) {
	c, err := s.contexts.begin(w, r, pattern, params)
	defer s.contexts.end(c)

	if err == nil {
		err = execute(c, mws, h)
	}
	if err != nil {
		s.handleError(c, err)
	}
}

// execute runs the chain and normalizes its output. Panics become *PanicError.
func execute(c Context, mws []MiddlewareFunc, h HandlerFunc) (err error) {
	defer func() {
		if v := recover(); v != nil {
			if v == http.ErrAbortHandler {
				panic(v)
			}
			err = &PanicError{Value: v, Stack: debug.Stack()}
		}
	}()

	out, err := runChain(c, mws, h)
	if err != nil {
		return err
	}
	return writeOutput(c, out)
}

// handleError renders an error returned from the chain.
// Nothing is written once the response has started.
func (s *Server) handleError(c Context, err error) {
	if httpErr := AsHTTPError(err); httpErr != nil && httpErr.Code < http.StatusInternalServerError {
		c.LogDebug("request rejected", slog.Int("status", httpErr.Code), slog.String("error", err.Error()))
	} else {
		attrs := []any{slog.Any("error", err)}
		if pe, ok := AsPanicError(err); ok {
			attrs = append(attrs, slog.String("stack", string(pe.Stack)))
		}
		c.LogError("request failed", attrs...)
	}

	if c.Written() {
		return
	}

	if s.errorHandler != nil {
		if herr := s.errorHandler(c, err); herr != nil {
			c.LogError("error handler failed", slog.Any("error", herr))
		} else {
			return
		}
		if c.Written() {
			return
		}
	}

	w := c.ResponseWriter()
	if httpErr := AsHTTPError(err); httpErr != nil && httpErr.Code > 0 {
		msg := httpErr.Message
		if msg == "" {
			msg = httpErr.StatusText()
		}
		_ = writeJSON(w, httpErr.Code, errorBody(msg))
		return
	}
	_ = writeJSON(w, http.StatusInternalServerError, errorBody(msgInternalServer))
}

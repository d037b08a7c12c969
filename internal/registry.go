package internal

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// RouteModule is the set of handlers a route file exports.
// Each field serves the HTTP method of the same name.
type RouteModule struct {
	GET     HandlerFunc
	POST    HandlerFunc
	PUT     HandlerFunc
	PATCH   HandlerFunc
	DELETE  HandlerFunc
	OPTIONS HandlerFunc
	HEAD    HandlerFunc

	// ALL serves any method without a dedicated handler.
	ALL HandlerFunc

	// Default serves GET when GET is not set.
	Default HandlerFunc
}

// RouteLoader builds the module of a route file on first use.
type RouteLoader func(ctx context.Context) (*RouteModule, error)

// MiddlewareLoader builds the middlewares of a middleware file on first use.
type MiddlewareLoader func(ctx context.Context) ([]MiddlewareFunc, error)

// Registry maps convention files found by the file route resolver to Go code.
// Keys are slash-separated paths relative to the scanned file system, with or
// without extension: "users/[id]/route" and "users/[id]/route.go" are the same file.
//
// Modules are loaded lazily on the first request that needs them and cached
// for the lifetime of the registry. Concurrent first requests share one load.
type Registry struct {
	routes      map[string]RouteLoader
	middlewares map[string]MiddlewareLoader
	routeCache  map[string]*compiledRouteFile
	mwCache     map[string][]MiddlewareFunc
	group       singleflight.Group
	mu          sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		routes:      make(map[string]RouteLoader),
		middlewares: make(map[string]MiddlewareLoader),
		routeCache:  make(map[string]*compiledRouteFile),
		mwCache:     make(map[string][]MiddlewareFunc),
	}
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the registry used when none is configured.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Route registers the handlers of a route file.
func (r *Registry) Route(file string, mod RouteModule) *Registry {
	return r.RouteLoader(file, func(context.Context) (*RouteModule, error) {
		return &mod, nil
	})
}

// RouteLoader registers a lazy loader for a route file.
// A later registration for the same file replaces the earlier one.
func (r *Registry) RouteLoader(file string, load RouteLoader) *Registry {
	key := moduleKey(file)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[key] = load
	delete(r.routeCache, key)
	return r
}

// Middleware registers the middlewares of a middleware file.
func (r *Registry) Middleware(file string, mws ...MiddlewareFunc) *Registry {
	return r.MiddlewareLoader(file, func(context.Context) ([]MiddlewareFunc, error) {
		return mws, nil
	})
}

// MiddlewareLoader registers a lazy loader for a middleware file.
func (r *Registry) MiddlewareLoader(file string, load MiddlewareLoader) *Registry {
	key := moduleKey(file)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares[key] = load
	delete(r.mwCache, key)
	return r
}

// HasRoute reports whether a module is registered for the route file.
func (r *Registry) HasRoute(file string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.routes[moduleKey(file)]
	return ok
}

// HasMiddleware reports whether a loader is registered for the middleware file.
func (r *Registry) HasMiddleware(file string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.middlewares[moduleKey(file)]
	return ok
}

// loadRoute returns the compiled module of a route file, loading it once.
// Failed loads are not cached and are retried by the next request.
func (r *Registry) loadRoute(ctx context.Context, file string) (*compiledRouteFile, error) {
	key := moduleKey(file)

	r.mu.RLock()
	cached, ok := r.routeCache[key]
	load := r.routes[key]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}
	if load == nil {
		return nil, fmt.Errorf("%w: %s", ErrModuleNotRegistered, key)
	}

	v, err, _ := r.group.Do("route:"+key, func() (any, error) {
		r.mu.RLock()
		cached, ok := r.routeCache[key]
		r.mu.RUnlock()
		if ok {
			return cached, nil
		}

		// The load outlives the request that triggered it.
		mod, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, fmt.Errorf("load route module %s: %w", key, err)
		}
		compiled := compileRouteModule(mod)

		r.mu.Lock()
		r.routeCache[key] = compiled
		r.mu.Unlock()
		return compiled, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*compiledRouteFile), nil
}

// loadMiddleware returns the middlewares of a middleware file, loading them once.
func (r *Registry) loadMiddleware(ctx context.Context, file string) ([]MiddlewareFunc, error) {
	key := moduleKey(file)

	r.mu.RLock()
	cached, ok := r.mwCache[key]
	load := r.middlewares[key]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}
	if load == nil {
		return nil, fmt.Errorf("%w: %s", ErrModuleNotRegistered, key)
	}

	v, err, _ := r.group.Do("middleware:"+key, func() (any, error) {
		r.mu.RLock()
		cached, ok := r.mwCache[key]
		r.mu.RUnlock()
		if ok {
			return cached, nil
		}

		mws, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, fmt.Errorf("load middleware module %s: %w", key, err)
		}
		mws = compact(mws)

		r.mu.Lock()
		r.mwCache[key] = mws
		r.mu.Unlock()
		return mws, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]MiddlewareFunc), nil
}

// moduleKey normalizes a file reference to its registry key.
func moduleKey(file string) string {
	p := path.Clean("/" + strings.ReplaceAll(file, "\\", "/"))
	p = strings.TrimPrefix(p, "/")
	if ext := path.Ext(p); ext != "" && !strings.HasSuffix(p, "]") && !strings.HasSuffix(p, ")") {
		p = strings.TrimSuffix(p, ext)
	}
	return p
}

func compact(mws []MiddlewareFunc) []MiddlewareFunc {
	out := make([]MiddlewareFunc, 0, len(mws))
	for _, mw := range mws {
		if mw != nil {
			out = append(out, mw)
		}
	}
	return out
}

// routeMethods is the order methods are listed in Allow headers.
var routeMethods = []string{
	http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
	http.MethodDelete, http.MethodOptions, http.MethodHead,
}

// compiledRouteFile is a loaded route module indexed by method.
type compiledRouteFile struct {
	handlers     map[string]HandlerFunc
	all          HandlerFunc
	allowed      []string
	defaultIsGet bool
}

func compileRouteModule(mod *RouteModule) *compiledRouteFile {
	f := &compiledRouteFile{handlers: make(map[string]HandlerFunc)}
	if mod == nil {
		return f
	}

	byMethod := map[string]HandlerFunc{
		http.MethodGet:     mod.GET,
		http.MethodPost:    mod.POST,
		http.MethodPut:     mod.PUT,
		http.MethodPatch:   mod.PATCH,
		http.MethodDelete:  mod.DELETE,
		http.MethodOptions: mod.OPTIONS,
		http.MethodHead:    mod.HEAD,
	}
	if mod.GET == nil && mod.Default != nil {
		byMethod[http.MethodGet] = mod.Default
		f.defaultIsGet = true
	}

	for _, m := range routeMethods {
		if h := byMethod[m]; h != nil {
			f.handlers[m] = h
			f.allowed = append(f.allowed, m)
		}
	}
	f.all = mod.ALL
	return f
}

// handlerFor returns the handler serving method.
func (f *compiledRouteFile) handlerFor(method string) (HandlerFunc, bool) {
	if h, ok := f.handlers[strings.ToUpper(method)]; ok {
		return h, true
	}
	if f.all != nil {
		return f.all, true
	}
	return nil, false
}

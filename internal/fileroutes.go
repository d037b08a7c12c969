package internal

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"slices"
	"strings"
)

// Default convention file base names.
const (
	DefaultRouteFileBase  = "route"
	DefaultMiddlewareFile = "middleware"
	// LegacyMiddlewareFile is accepted when no "middleware" file exists.
	LegacyMiddlewareFile = "_middleware"
)

// segmentKind classifies a directory name in a file-routed tree.
type segmentKind int

const (
	segmentStatic segmentKind = iota
	segmentGroup
	segmentParam
	segmentCatchAll
	segmentOptionalCatchAll
)

// parseSegment maps a directory name to its URL segment.
// Route groups "(name)" map to the empty segment.
func parseSegment(dir string) (string, string, segmentKind) {
	switch {
	case len(dir) > 2 && strings.HasPrefix(dir, "(") && strings.HasSuffix(dir, ")"):
		return "", "", segmentGroup
	case len(dir) > 5 && strings.HasPrefix(dir, "[...") && strings.HasSuffix(dir, "]") && !strings.HasSuffix(dir, "]]"):
		name := dir[4 : len(dir)-1]
		return ":" + name, name, segmentCatchAll
	case len(dir) > 7 && strings.HasPrefix(dir, "[[...") && strings.HasSuffix(dir, "]]"):
		name := dir[5 : len(dir)-2]
		return ":" + name, name, segmentOptionalCatchAll
	case len(dir) > 2 && strings.HasPrefix(dir, "[") && strings.HasSuffix(dir, "]"):
		name := dir[1 : len(dir)-1]
		return ":" + name, name, segmentParam
	default:
		return dir, "", segmentStatic
	}
}

// PathSegment returns the URL path segment a directory name maps to:
//
//	(group)      -> "" (omitted)
//	[id]         -> ":id"
//	[...slug]    -> ":slug"
//	[[...slug]]  -> ":slug"
//	users        -> "users"
func PathSegment(dir string) string {
	seg, _, _ := parseSegment(dir)
	return seg
}

// fileResolver walks a file-routed tree and emits one route entry per route file.
type fileResolver struct {
	fsys            fs.FS
	registry        *Registry
	routeFileBase   string
	middlewareFiles []string
	warnings        []string
}

func newFileResolver(fsys fs.FS, registry *Registry, routeFileBase string) *fileResolver {
	if registry == nil {
		registry = DefaultRegistry()
	}
	if routeFileBase == "" {
		routeFileBase = DefaultRouteFileBase
	}
	return &fileResolver{
		fsys:            fsys,
		registry:        registry,
		routeFileBase:   routeFileBase,
		middlewareFiles: []string{DefaultMiddlewareFile, LegacyMiddlewareFile},
	}
}

// walkState is carried down one branch of the directory tree.
type walkState struct {
	segments    []string
	middlewares []MiddlewareFunc
	catchAll    string
	optional    bool
}

// resolve returns the entries of the tree rooted at dir, mounted at prefix.
// Entries are emitted depth-first with directory entries in lexical order.
func (r *fileResolver) resolve(dir, prefix string, inherited []MiddlewareFunc) ([]RouteEntry, error) {
	info, err := fs.Stat(r.fsys, dir)
	if err != nil || !info.IsDir() {
		if err == nil {
			err = errors.New("not a directory")
		}
		return nil, &CompileError{Path: dir, Err: fmt.Errorf("file routes directory: %w", err)}
	}

	var entries []RouteEntry
	err = r.walk(dir, prefix, walkState{middlewares: inherited}, &entries)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *fileResolver) walk(dir, prefix string, st walkState, out *[]RouteEntry) error {
	items, err := fs.ReadDir(r.fsys, dir)
	if err != nil {
		return &CompileError{Path: dir, Err: err}
	}

	if key, ok := r.findMiddlewareFile(dir, items); ok {
		if !r.registry.HasMiddleware(key) {
			r.warnings = append(r.warnings, fmt.Sprintf("middleware file %s has no registered module", key))
		}
		st.middlewares = inherit(st.middlewares, r.lazyMiddleware(key))
	}

	if key, ok := r.findConventionFile(dir, items, r.routeFileBase); ok {
		if !r.registry.HasRoute(key) {
			r.warnings = append(r.warnings, fmt.Sprintf("route file %s has no registered module", key))
		}
		*out = append(*out, RouteEntry{
			Method:           MethodAll,
			Path:             joinPath(prefix, "/", strings.Join(st.segments, "/")),
			CatchAll:         st.catchAll,
			OptionalCatchAll: st.optional,
			Source:           key,
			Handler:          r.routeHandler(key),
			Middlewares:      st.middlewares,
		})
	}

	for _, item := range items {
		name := item.Name()
		if strings.HasPrefix(name, ".") || !r.isDir(dir, item) {
			continue
		}

		seg, param, kind := parseSegment(name)
		next := walkState{
			segments:    st.segments,
			middlewares: st.middlewares,
		}
		if kind != segmentGroup {
			next.segments = append(slices.Clip(st.segments), seg)
		} else {
			next.catchAll, next.optional = st.catchAll, st.optional
		}
		switch kind {
		case segmentCatchAll:
			next.catchAll, next.optional = param, false
		case segmentOptionalCatchAll:
			next.catchAll, next.optional = param, true
		}

		if err := r.walk(path.Join(dir, name), prefix, next, out); err != nil {
			return err
		}
	}
	return nil
}

// isDir follows symlinks the way os.Stat does.
func (r *fileResolver) isDir(dir string, item fs.DirEntry) bool {
	if item.IsDir() {
		return true
	}
	if item.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := fs.Stat(r.fsys, path.Join(dir, item.Name()))
	return err == nil && info.IsDir()
}

func (r *fileResolver) findMiddlewareFile(dir string, items []fs.DirEntry) (string, bool) {
	for _, base := range r.middlewareFiles {
		if key, ok := r.findConventionFile(dir, items, base); ok {
			return key, true
		}
	}
	return "", false
}

// findConventionFile returns the registry key of the file named base, with any extension.
func (r *fileResolver) findConventionFile(dir string, items []fs.DirEntry, base string) (string, bool) {
	for _, item := range items {
		name := item.Name()
		if item.IsDir() || strings.HasSuffix(name, "_test.go") {
			continue
		}
		if name == base || strings.TrimSuffix(name, path.Ext(name)) == base {
			return moduleKey(path.Join(dir, base)), true
		}
	}
	return "", false
}

// lazyMiddleware loads the middlewares of a file on first use and runs them
// as one link of the enclosing chain.
func (r *fileResolver) lazyMiddleware(key string) MiddlewareFunc {
	registry := r.registry
	return func(c Context, next Next) (any, error) {
		mws, err := registry.loadMiddleware(c, key)
		if err != nil {
			return nil, err
		}
		if len(mws) == 0 {
			return next()
		}
		return runChain(c, mws, func(Context) (any, error) { return next() })
	}
}

// routeHandler serves every method for a route file, dispatching to the
// module's handler for the request method or answering 405.
func (r *fileResolver) routeHandler(key string) HandlerFunc {
	registry := r.registry
	return func(c Context) (any, error) {
		file, err := registry.loadRoute(c, key)
		if err != nil {
			return nil, err
		}
		h, ok := file.handlerFor(c.Method())
		if !ok {
			return methodNotAllowed(c.Method(), file.allowed, "route"), nil
		}
		return h(c)
	}
}

// methodNotAllowed builds the 405 response listing the allowed methods.
func methodNotAllowed(method string, allowed []string, target string) *ResponseNode {
	body := map[string]any{
		"error":   "Method Not Allowed",
		"message": fmt.Sprintf("Method %s is not allowed for this %s", strings.ToUpper(method), target),
	}
	opts := []ResponseOption{Status(http.StatusMethodNotAllowed)}
	if len(allowed) > 0 {
		body["allowed"] = allowed
		opts = append(opts, Header("Allow", strings.Join(allowed, ", ")))
	}
	return Response(append(opts, JSON(body))...)
}

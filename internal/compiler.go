package internal

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// CompileOption configures Compile.
type CompileOption func(*compiler)

// ModuleRegistry sets the registry that resolves file-routed modules.
func ModuleRegistry(r *Registry) CompileOption {
	return func(c *compiler) {
		if r != nil {
			c.registry = r
		}
	}
}

// RouteFileBase sets the base name of route files. Defaults to "route".
func RouteFileBase(base string) CompileOption {
	return func(c *compiler) {
		if base != "" {
			c.routeFileBase = base
		}
	}
}

// BaseDir sets the directory relative FileRoutes paths are resolved against.
// Defaults to the working directory.
func BaseDir(dir string) CompileOption {
	return func(c *compiler) {
		c.baseDir = dir
	}
}

// SourceRoot enables automatic file routing: after the tree is compiled,
// the routes directory under fsys is resolved with the global prefix, and a
// middleware file at the root of fsys wraps every discovered route.
// A missing routes directory is not an error.
func SourceRoot(fsys fs.FS, routesDir string) CompileOption {
	return func(c *compiler) {
		c.sourceRoot = fsys
		c.routesDir = routesDir
	}
}

type compiler struct {
	registry      *Registry
	sourceRoot    fs.FS
	routeFileBase string
	baseDir       string
	routesDir     string
	config        AppConfig
	entries       []RouteEntry
	warnings      []string
}

// Compile walks the node tree and produces the route table.
// Routes are emitted depth-first in declaration order.
func Compile(root Node, opts ...CompileOption) (*RouteTable, error) {
	c := &compiler{
		registry:      DefaultRegistry(),
		routeFileBase: DefaultRouteFileBase,
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.walk(root, "", nil); err != nil {
		return nil, err
	}
	if c.sourceRoot != nil {
		if err := c.discover(); err != nil {
			return nil, err
		}
	}

	return &RouteTable{
		entries:  c.entries,
		warnings: c.warnings,
		Config:   c.config,
	}, nil
}

func (c *compiler) walk(n Node, prefix string, mws []MiddlewareFunc) error {
	switch n := n.(type) {
	case nil:
		return nil

	case Fragment:
		for _, child := range n {
			if err := c.walk(child, prefix, mws); err != nil {
				return err
			}
		}
		return nil

	case *ComponentNode:
		if n == nil || n.Expand == nil {
			return nil
		}
		return c.walk(n.Expand(), prefix, mws)

	case *AppNode:
		if n == nil {
			return nil
		}
		// The last App node wins.
		c.config = AppConfig{
			CORSConfig:   n.CORSConfig,
			GlobalPrefix: n.GlobalPrefix,
			Port:         n.Port,
			CORS:         n.CORS,
			Declared:     true,
		}
		return c.walkScope(n.Children, prefix+n.GlobalPrefix, mws)

	case *GroupNode:
		if n == nil {
			return nil
		}
		return c.walkScope(n.Children, prefix+n.Prefix, mws)

	case *RouteNode:
		if n == nil {
			return nil
		}
		return c.emitRoute(n, prefix, mws)

	case *FileRoutesNode:
		if n == nil {
			return nil
		}
		return c.mountFileRoutes(n, prefix, mws)

	case *MiddlewareNode, *ResponseNode:
		// Middleware is collected by the enclosing scope; responses only have
		// meaning as handler output.
		return nil

	default:
		return &CompileError{Path: prefix, Err: fmt.Errorf("unsupported node %T", n)}
	}
}

// walkScope compiles the children of an App or RouteGroup node.
// Middleware declared anywhere among the direct children applies to every
// sibling route, regardless of declaration order.
func (c *compiler) walkScope(children []Node, prefix string, mws []MiddlewareFunc) error {
	scoped := inherit(mws, collectMiddleware(children)...)
	for _, child := range children {
		if err := c.walk(child, prefix, scoped); err != nil {
			return err
		}
	}
	return nil
}

// collectMiddleware returns the middleware of the MiddlewareNode children in
// declaration order. Fragments are flattened; other nodes are not descended.
func collectMiddleware(children []Node) []MiddlewareFunc {
	var out []MiddlewareFunc
	for _, child := range children {
		switch n := child.(type) {
		case *MiddlewareNode:
			if n != nil {
				out = append(out, compact(n.Use)...)
			}
		case Fragment:
			out = append(out, collectMiddleware(n)...)
		}
	}
	return out
}

func (c *compiler) emitRoute(n *RouteNode, prefix string, mws []MiddlewareFunc) error {
	full := joinPath(prefix, n.Path)
	if strings.TrimSpace(n.Method) == "" {
		return &CompileError{Path: full, Err: ErrMissingMethod}
	}
	if n.Handler == nil {
		return &CompileError{Path: full, Err: errors.New("route has no handler")}
	}

	own := strings.TrimSpace(n.Path)
	c.entries = append(c.entries, RouteEntry{
		Method:      strings.ToLower(strings.TrimSpace(n.Method)),
		Path:        full,
		Wildcard:    own == "*" || own == "/*",
		Source:      "tree",
		Handler:     n.Handler,
		Middlewares: inherit(mws, compact(n.Middleware)...),
	})
	return nil
}

func (c *compiler) mountFileRoutes(n *FileRoutesNode, prefix string, mws []MiddlewareFunc) error {
	fsys, dir := n.FS, n.Dir
	if fsys == nil {
		abs, err := c.absDir(dir)
		if err != nil {
			return &CompileError{Path: dir, Err: err}
		}
		info, err := os.Stat(abs)
		if err != nil {
			return &CompileError{Path: abs, Err: fmt.Errorf("file routes directory: %w", err)}
		}
		if !info.IsDir() {
			return &CompileError{Path: abs, Err: errors.New("file routes directory: not a directory")}
		}
		fsys, dir = os.DirFS(abs), "."
	}
	if dir == "" {
		dir = "."
	}

	mount := prefix
	if n.Prefix != "" {
		mount = n.Prefix
	}

	registry := n.Registry
	if registry == nil {
		registry = c.registry
	}
	res := newFileResolver(fsys, registry, c.routeFileBase)
	entries, err := res.resolve(dir, mount, mws)
	if err != nil {
		return err
	}
	c.entries = append(c.entries, entries...)
	c.warnings = append(c.warnings, res.warnings...)
	return nil
}

// discover resolves the routes directory of the source root.
func (c *compiler) discover() error {
	routesDir := c.routesDir
	if routesDir == "" {
		routesDir = "app"
	}
	info, err := fs.Stat(c.sourceRoot, routesDir)
	if err != nil || !info.IsDir() {
		return nil
	}

	res := newFileResolver(c.sourceRoot, c.registry, c.routeFileBase)
	items, err := fs.ReadDir(c.sourceRoot, ".")
	if err != nil {
		return &CompileError{Path: ".", Err: err}
	}
	var global []MiddlewareFunc
	if key, ok := res.findMiddlewareFile(".", items); ok {
		global = []MiddlewareFunc{res.lazyMiddleware(key)}
	}

	entries, err := res.resolve(routesDir, c.config.GlobalPrefix, global)
	if err != nil {
		return err
	}
	c.entries = append(c.entries, entries...)
	c.warnings = append(c.warnings, res.warnings...)
	return nil
}

func (c *compiler) absDir(dir string) (string, error) {
	if filepath.IsAbs(dir) {
		return dir, nil
	}
	base := c.baseDir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		base = wd
	}
	return filepath.Join(base, dir), nil
}

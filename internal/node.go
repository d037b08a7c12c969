package internal

import "io/fs"

// Node is a declarative description of an application construct.
// The set of node kinds is closed: only types in this package implement it.
type Node interface {
	node()
}

// Fragment groups sibling nodes. The compiler flattens fragments in place.
type Fragment []Node

// AppNode configures the application and holds the top-level tree.
type AppNode struct {
	// CORSConfig is passed to the CORS policy verbatim when non-nil.
	CORSConfig   *CORSConfig
	GlobalPrefix string
	Children     []Node
	Port         int
	// CORS enables the default CORS policy.
	CORS bool
}

// GroupNode prefixes and wraps every route declared below it.
type GroupNode struct {
	Prefix   string
	Children []Node
}

// RouteNode declares a single endpoint.
type RouteNode struct {
	Handler    HandlerFunc
	Path       string
	Method     string
	Middleware []MiddlewareFunc
}

// MiddlewareNode attaches middleware to the enclosing group.
type MiddlewareNode struct {
	Use []MiddlewareFunc
}

// ComponentNode is a user-defined composition expanded at compile time.
type ComponentNode struct {
	Expand func() Node
}

// FileRoutesNode mounts a file-routed directory inside the tree.
// When FS is nil, Dir is opened from the operating system.
type FileRoutesNode struct {
	FS fs.FS
	// Registry resolves the convention files of this mount.
	// Nil uses the registry passed to Compile.
	Registry *Registry
	Dir      string
	Prefix   string
}

func (Fragment) node()        {}
func (*AppNode) node()        {}
func (*GroupNode) node()      {}
func (*RouteNode) node()      {}
func (*MiddlewareNode) node() {}
func (*ComponentNode) node()  {}
func (*FileRoutesNode) node() {}
func (*ResponseNode) node()   {}

// AppProps are the App node properties.
type AppProps struct {
	CORSConfig   *CORSConfig
	GlobalPrefix string
	Port         int
	CORS         bool
}

// App creates the application node.
func App(props AppProps, children ...Node) *AppNode {
	return &AppNode{
		Port:         props.Port,
		CORS:         props.CORS,
		CORSConfig:   props.CORSConfig,
		GlobalPrefix: props.GlobalPrefix,
		Children:     children,
	}
}

// RouteGroup creates a group node with the given path prefix.
func RouteGroup(prefix string, children ...Node) *GroupNode {
	return &GroupNode{Prefix: prefix, Children: children}
}

// RouteProps are the Route node properties.
type RouteProps struct {
	Path       string
	Method     string
	Middleware []MiddlewareFunc
}

// Route creates a route node. The method is required; Compile rejects routes without one.
func Route(props RouteProps, h HandlerFunc) *RouteNode {
	return &RouteNode{
		Path:       props.Path,
		Method:     props.Method,
		Middleware: props.Middleware,
		Handler:    h,
	}
}

// Middleware creates a middleware node applied to the enclosing group.
func Middleware(use ...MiddlewareFunc) *MiddlewareNode {
	return &MiddlewareNode{Use: use}
}

// Component wraps a render function and its props into a node expanded at compile time.
//
// Example:
//
//	func UserRoutes(p UserRoutesProps) treeserve.Node {
//	    return treeserve.RouteGroup(p.Prefix, ...)
//	}
//
//	treeserve.Component(UserRoutes, UserRoutesProps{Prefix: "/users"})
func Component[P any](render func(P) Node, props P) *ComponentNode {
	return &ComponentNode{
		Expand: func() Node { return render(props) },
	}
}

// FileRoutes mounts the directory tree rooted at dir.
// An empty prefix inherits the prefix of the enclosing group.
func FileRoutes(dir, prefix string) *FileRoutesNode {
	return &FileRoutesNode{Dir: dir, Prefix: prefix}
}

// FileRoutesFS mounts the file tree of fsys, for example an embed.FS subtree.
func FileRoutesFS(fsys fs.FS, prefix string) *FileRoutesNode {
	return &FileRoutesNode{FS: fsys, Dir: ".", Prefix: prefix}
}

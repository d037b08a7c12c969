package internal

import (
	"slices"
	"strings"

	"github.com/dmitrymomot/treeserve/pkg/cors"
)

// MethodAll registers a route for every HTTP method.
const MethodAll = "all"

// Default ports used when no port is configured.
const (
	defaultAppPort   = 9000
	defaultNoAppPort = 6969
)

// RouteEntry is one compiled route ready for registration.
type RouteEntry struct {
	Handler HandlerFunc `json:"-" yaml:"-"`

	// Method is the lowercased HTTP verb or "all".
	Method string `json:"method" yaml:"method"`

	// Path is the engine path pattern, e.g. "/api/users/:id".
	Path string `json:"path" yaml:"path"`

	// CatchAll names the trailing parameter that captures the rest of the path.
	// Empty for routes without a catch-all segment.
	CatchAll string `json:"catchAll,omitempty" yaml:"catchAll,omitempty"`

	// Source names the origin of the entry: "tree" or the route file it was resolved from.
	Source string `json:"source" yaml:"source"`

	// Middlewares run in order: outer groups first, route-level last.
	Middlewares []MiddlewareFunc `json:"-" yaml:"-"`

	// OptionalCatchAll also matches the path without the catch-all segment.
	OptionalCatchAll bool `json:"optionalCatchAll,omitempty" yaml:"optionalCatchAll,omitempty"`

	// Wildcard marks a route declared with path "*". It serves unmatched
	// requests below the prefix it was declared under.
	Wildcard bool `json:"wildcard,omitempty" yaml:"wildcard,omitempty"`
}

// IsWildcard reports whether the entry is a user-declared fallback route.
func (e RouteEntry) IsWildcard() bool {
	return e.Wildcard || e.Path == "*" || e.Path == "/*"
}

// matchesWildcard reports whether the fallback entry covers request path p.
func (e RouteEntry) matchesWildcard(p string) bool {
	prefix := strings.TrimRight(strings.TrimSuffix(e.Path, "*"), "/")
	return prefix == "" || strings.HasPrefix(p, prefix)
}

// AppConfig is the application configuration collected from the App node.
type AppConfig struct {
	CORSConfig   *CORSConfig
	GlobalPrefix string
	Port         int
	CORS         bool
	// Declared reports whether an App node was found.
	Declared bool
}

// ListenPort returns the configured port or the default.
func (c AppConfig) ListenPort() int {
	if c.Port > 0 {
		return c.Port
	}
	if c.Declared {
		return defaultAppPort
	}
	return defaultNoAppPort
}

// CORSPolicy returns the policy to install, or false when CORS is disabled.
func (c AppConfig) CORSPolicy() (CORSConfig, bool) {
	if c.CORSConfig != nil {
		return *c.CORSConfig, true
	}
	if c.CORS {
		return cors.Default(), true
	}
	return CORSConfig{}, false
}

// RouteTable is the flat, ordered result of compilation.
// It is not modified after Compile returns.
type RouteTable struct {
	entries  []RouteEntry
	warnings []string
	Config   AppConfig
}

// Entries returns a copy of the compiled entries in registration order.
func (t *RouteTable) Entries() []RouteEntry {
	if t == nil {
		return nil
	}
	out := make([]RouteEntry, len(t.entries))
	for i, e := range t.entries {
		e.Middlewares = slices.Clone(e.Middlewares)
		out[i] = e
	}
	return out
}

// Len returns the number of entries.
func (t *RouteTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Warnings returns non-fatal problems found during compilation,
// such as convention files without a registered module.
func (t *RouteTable) Warnings() []string {
	if t == nil {
		return nil
	}
	return slices.Clone(t.warnings)
}

// Merge returns a new table with the entries of other appended after t's.
// The configuration of t is kept.
func (t *RouteTable) Merge(other *RouteTable) *RouteTable {
	merged := &RouteTable{Config: t.Config}
	merged.entries = append(slices.Clip(t.entries), other.entries...)
	merged.warnings = append(slices.Clip(t.warnings), other.warnings...)
	return merged
}

// joinPath concatenates path parts and collapses duplicate separators.
// The result always starts with "/" unless it is the bare wildcard "*".
func joinPath(parts ...string) string {
	joined := strings.Join(parts, "")
	if joined == "*" {
		return joined
	}
	return normalizePath(joined)
}

// normalizePath collapses runs of "/" and guarantees a leading slash.
// A trailing slash is dropped except for the root path.
func normalizePath(p string) string {
	if p == "" {
		return "/"
	}

	var b strings.Builder
	b.Grow(len(p) + 1)
	if p[0] != '/' {
		b.WriteByte('/')
	}
	prevSlash := false
	for i := 0; i < len(p); i++ {
		ch := p[i]
		if ch == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			prevSlash = false
		}
		b.WriteByte(ch)
	}

	out := b.String()
	if len(out) > 1 && strings.HasSuffix(out, "/") {
		out = out[:len(out)-1]
	}
	return out
}

// inherit returns a new slice holding base followed by extra.
// Callers never share backing arrays between sibling subtrees.
func inherit(base []MiddlewareFunc, extra ...MiddlewareFunc) []MiddlewareFunc {
	out := make([]MiddlewareFunc, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}

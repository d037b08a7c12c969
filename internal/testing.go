package internal

import (
	"net/http"

	"github.com/dmitrymomot/treeserve/pkg/logger"
)

// NewRequestContext builds a request Context outside of a running server,
// for exercising middleware and handlers in isolation.
// The error reports a JSON body that could not be parsed; the context is usable either way.
func NewRequestContext(w http.ResponseWriter, r *http.Request, params map[string]string) (Context, error) {
	m := newContextManager(Global(), logger.NewNope(), 0)
	return m.begin(w, r, r.URL.Path, params)
}

// Invoke runs mws and h against c and writes the result to c's response,
// the same way the dispatcher does for a matched route.
// Errors returned by the chain are returned, not rendered.
func Invoke(c Context, h HandlerFunc, mws ...MiddlewareFunc) error {
	return execute(c, mws, h)
}

package internal

import "github.com/dmitrymomot/treeserve/pkg/cors"

// HandlerFunc is the terminal handler of a route.
// The returned value is normalized into the HTTP response: a *ResponseNode,
// a primitive written as the body, or nil for "no response".
// A non-nil error aborts the request and is rendered by the error handler.
type HandlerFunc func(c Context) (any, error)

// Next continues the middleware chain and returns the downstream output.
type Next func() (any, error)

// MiddlewareFunc runs before the route handler.
// Returning next() continues the chain; returning anything else short-circuits it.
//
// Example:
//
//	func RequireToken(c treeserve.Context, next treeserve.Next) (any, error) {
//	    if c.Header("Authorization") != "Bearer valid-token" {
//	        return treeserve.Response(treeserve.Status(401), treeserve.JSON(map[string]string{"error": "Unauthorized"})), nil
//	    }
//	    c.Set("user", "admin")
//	    return next()
//	}
type MiddlewareFunc func(c Context, next Next) (any, error)

// ErrorHandler renders errors returned from handlers and middleware.
type ErrorHandler func(c Context, err error) error

// CORSConfig configures the CORS policy applied by the HTTP engine.
type CORSConfig = cors.Config

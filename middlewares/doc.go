// Package middlewares provides ready-made middleware for treeserve trees.
//
// Every constructor returns a treeserve.MiddlewareFunc for use in a
// Middleware node. A Middleware node placed directly under App wraps every route.
//
// # Request ID
//
// RequestID assigns an ID to each request, reusing an upstream X-Request-ID
// header when present and generating a UUID otherwise. Pair it with
// RequestIDExtractor to get request_id on every log record:
//
//	tree := treeserve.App(treeserve.AppProps{Port: 8080},
//	    treeserve.Middleware(middlewares.RequestID(), middlewares.Logger()),
//	    treeserve.RouteGroup("/api", routes...),
//	)
//	err := treeserve.Serve(tree, treeserve.WithLogger("api", middlewares.RequestIDExtractor()))
//
// # Access Log
//
// Logger writes one record per request with method, path, status and duration.
//
// # Recover
//
// Recover turns panics into *PanicError values rendered as 500 responses.
//
// # Timeout
//
// Timeout gives handlers a deadline through GetTimeoutContext and answers 503
// when the chain returns late without having written anything.
//
// # Token Authentication
//
// TokenAuth rejects requests without a valid token and stores the principal
// for handlers:
//
//	treeserve.RouteGroup("/admin",
//	    treeserve.Middleware(middlewares.TokenAuth(middlewares.StaticToken("valid-token", "admin"))),
//	    treeserve.Route(treeserve.RouteProps{Path: "/me", Method: "GET"}, me),
//	)
package middlewares

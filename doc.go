// Package treeserve builds HTTP backends from a declarative tree of nodes.
//
// An application is described with App, RouteGroup, Route and Middleware
// nodes, optionally mixed with directories mounted through file routing.
// The tree is compiled once into a flat route table and installed on a chi
// router; nothing is re-evaluated per request.
//
// # Quick Start
//
//	func main() {
//	    tree := treeserve.App(treeserve.AppProps{Port: 8080, CORS: true},
//	        treeserve.RouteGroup("/api",
//	            treeserve.Middleware(requireToken),
//	            treeserve.Route(treeserve.RouteProps{Path: "/users/:id", Method: "GET"}, getUser),
//	        ),
//	        treeserve.Route(treeserve.RouteProps{Path: "*", Method: treeserve.MethodAll}, notFound),
//	    )
//
//	    if err := treeserve.Serve(tree, treeserve.WithLogger("api")); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//
// # Handlers and Middleware
//
// A handler returns the response it wants to send:
//
//	func getUser(c treeserve.Context) (any, error) {
//	    user, err := repo.Find(c, c.Param("id"))
//	    if err != nil {
//	        return nil, treeserve.ErrNotFound("user not found")
//	    }
//	    return treeserve.Response(treeserve.JSON(user)), nil
//	}
//
// Returned values are normalized: a *ResponseNode is applied as described,
// strings, numbers, booleans and fmt.Stringer values become a text body, and
// nil means no response (a 500 unless the handler wrote to c.Response()).
//
// Middleware continues the chain by returning next(); returning anything else
// short-circuits it:
//
//	func requireToken(c treeserve.Context, next treeserve.Next) (any, error) {
//	    if c.Header("Authorization") != "Bearer valid-token" {
//	        return treeserve.Response(treeserve.Status(401), treeserve.JSON(map[string]string{"error": "Unauthorized"})), nil
//	    }
//	    c.Set("user", "admin")
//	    return next()
//	}
//
// Group middleware runs before route middleware, outer groups before inner ones.
//
// # Request Context
//
// Context implements context.Context. Values stored with Set or UseSetContext
// are visible only to the current request. UseContext falls back to the
// process-wide store, which is also what UseSetContext writes to outside of a
// request.
//
// # File Routing
//
// Directories map to path segments: "users" is static, "[id]" is a parameter,
// "[...slug]" captures the rest of the path, "[[...slug]]" also matches the
// parent path and "(group)" adds no segment. A directory containing a route
// file ("route.go" by default) becomes an endpoint; "middleware.go" or
// "_middleware.go" wraps every route below it.
//
// Go code is linked to those files through a Registry:
//
//	// app/users/[id]/route.go
//	func init() {
//	    treeserve.RegisterRoute("app/users/[id]/route.go", treeserve.RouteModule{
//	        GET: getUser,
//	    })
//	}
//
// Methods a route file does not export are answered with 405 and an Allow header.
//
// # Errors
//
// Return an *HTTPError to send a JSON error with a specific status. Other
// errors and recovered panics become {"error":"Internal server error"} with
// status 500. WithErrorHandler replaces the default rendering.
//
// # Development Mode
//
// When TREESERVE_ENV is "development", Serve watches Go sources and stops on
// the first change with a nil error; `treeserve dev` restarts the process.
package treeserve

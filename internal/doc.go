// Package internal implements the tree compiler and the request runtime.
//
// Import "github.com/dmitrymomot/treeserve" instead, which re-exports the public API.
//
// # Compilation
//
// Compile walks the node tree depth-first in declaration order and produces a
// RouteTable. Path prefixes are concatenated and normalized; middleware is
// inherited as outer groups first, then inner groups, then the route's own.
// FileRoutes nodes and the optional source root are resolved by fileResolver,
// which emits one "all" entry per route file and dispatches on the request
// method once the module is loaded from the Registry.
//
// # Dispatch
//
// The dispatcher installs the table on a chi router. Compiled paths use ":name"
// segments and are translated into chi patterns at registration. Requests for
// a known path with an undeclared method get a 405 with an Allow header;
// everything else unmatched goes to the user's wildcard route or the default
// 404 body.
//
// Each request gets its own requestContext stored in the request's
// context.Context. The middleware chain runs with a cursor local to the call,
// and the handler output is normalized by writeOutput.
package internal

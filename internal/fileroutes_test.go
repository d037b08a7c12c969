package internal_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/treeserve/internal"
)

func appFS() fstest.MapFS {
	file := &fstest.MapFile{Data: []byte("package app\n")}
	return fstest.MapFS{
		"route.go":                     file,
		"middleware.go":                file,
		"users/route.go":               file,
		"users/[id]/route.go":          file,
		"users/[id]/route_test.go":     file,
		"(marketing)/about/route.go":   file,
		"docs/[...slug]/route.go":      file,
		"shop/[[...path]]/route.go":    file,
		"admin/_middleware.go":         file,
		"admin/route.go":               file,
		".cache/route.go":              file,
		"components/button.go":         file,
		"users/[id]/settings/notes.md": file,
	}
}

type compiledRoute struct {
	path     string
	source   string
	catchAll string
	optional bool
}

func compiledRoutes(table *internal.RouteTable) []compiledRoute {
	var out []compiledRoute
	for _, e := range table.Entries() {
		out = append(out, compiledRoute{path: e.Path, source: e.Source, catchAll: e.CatchAll, optional: e.OptionalCatchAll})
	}
	return out
}

func TestPathSegment(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"users":       "users",
		"[id]":        ":id",
		"[...slug]":   ":slug",
		"[[...slug]]": ":slug",
		"(admin)":     "",
		"[]":          "[]",
		"()":          "()",
	}
	for dir, want := range tests {
		t.Run(dir, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, want, internal.PathSegment(dir))
		})
	}
}

func TestFileRoutes_Resolve(t *testing.T) {
	t.Parallel()

	table, err := internal.Compile(
		internal.FileRoutesFS(appFS(), "/"),
		internal.ModuleRegistry(internal.NewRegistry()),
	)
	require.NoError(t, err)

	require.Equal(t, []compiledRoute{
		{path: "/", source: "route"},
		{path: "/about", source: "(marketing)/about/route"},
		{path: "/admin", source: "admin/route"},
		{path: "/docs/:slug", source: "docs/[...slug]/route", catchAll: "slug"},
		{path: "/shop/:path", source: "shop/[[...path]]/route", catchAll: "path", optional: true},
		{path: "/users", source: "users/route"},
		{path: "/users/:id", source: "users/[id]/route"},
	}, compiledRoutes(table))

	for _, e := range table.Entries() {
		require.Equal(t, internal.MethodAll, e.Method)
	}
}

func TestFileRoutes_Prefix(t *testing.T) {
	t.Parallel()

	t.Run("explicit prefix", func(t *testing.T) {
		t.Parallel()
		table, err := internal.Compile(internal.FileRoutesFS(fstest.MapFS{
			"users/route.go": {Data: []byte("x")},
		}, "/api/v2"))
		require.NoError(t, err)
		require.Equal(t, "/api/v2/users", table.Entries()[0].Path)
	})

	t.Run("inherits group prefix", func(t *testing.T) {
		t.Parallel()
		table, err := internal.Compile(internal.RouteGroup("/api",
			internal.FileRoutesFS(fstest.MapFS{"users/route.go": {Data: []byte("x")}}, ""),
		))
		require.NoError(t, err)
		require.Equal(t, "/api/users", table.Entries()[0].Path)
	})
}

func TestFileRoutes_Warnings(t *testing.T) {
	t.Parallel()

	registry := internal.NewRegistry().
		Route("users/route.go", internal.RouteModule{GET: ok("users")})

	table, err := internal.Compile(internal.FileRoutesFS(fstest.MapFS{
		"users/route.go":         {Data: []byte("x")},
		"users/middleware.go":    {Data: []byte("x")},
		"users/[id]/route.go":    {Data: []byte("x")},
		"users/[id]/route.go.md": {Data: []byte("x")},
	}, "/"), internal.ModuleRegistry(registry))
	require.NoError(t, err)
	require.ElementsMatch(t, []string{
		"middleware file users/middleware has no registered module",
		"route file users/[id]/route has no registered module",
	}, table.Warnings())
}

func TestFileRoutes_CustomRouteFileBase(t *testing.T) {
	t.Parallel()

	table, err := internal.Compile(internal.FileRoutesFS(fstest.MapFS{
		"users/route.go":   {Data: []byte("x")},
		"posts/handler.go": {Data: []byte("x")},
	}, "/"), internal.RouteFileBase("handler"))
	require.NoError(t, err)
	require.Len(t, table.Entries(), 1)
	require.Equal(t, "/posts", table.Entries()[0].Path)
}

func TestFileRoutes_MiddlewareInheritance(t *testing.T) {
	t.Parallel()

	var calls []string
	registry := internal.NewRegistry().
		Middleware("middleware", recordingMiddleware("root", &calls)).
		Middleware("admin/_middleware", recordingMiddleware("admin", &calls)).
		Route("admin/users/route", internal.RouteModule{
			GET: func(internal.Context) (any, error) {
				calls = append(calls, "handler")
				return "ok", nil
			},
		})

	table, err := internal.Compile(internal.FileRoutesFS(fstest.MapFS{
		"middleware.go":        {Data: []byte("x")},
		"admin/_middleware.go": {Data: []byte("x")},
		"admin/users/route.go": {Data: []byte("x")},
	}, "/"), internal.ModuleRegistry(registry))
	require.NoError(t, err)

	entries := table.Entries()
	require.Len(t, entries, 1)
	require.Len(t, entries[0].Middlewares, 2)

	w := runEntry(t, entries[0])
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []string{"root", "admin", "handler"}, calls)
}

func TestFileRoutes_TreeMiddlewareWrapsFileMiddleware(t *testing.T) {
	t.Parallel()

	var calls []string
	registry := internal.NewRegistry().
		Middleware("middleware", recordingMiddleware("file", &calls)).
		Route("route", internal.RouteModule{GET: ok("ok")})

	table, err := internal.Compile(internal.RouteGroup("/app",
		internal.Middleware(recordingMiddleware("tree", &calls)),
		internal.FileRoutesFS(fstest.MapFS{
			"middleware.go": {Data: []byte("x")},
			"route.go":      {Data: []byte("x")},
		}, ""),
	), internal.ModuleRegistry(registry))
	require.NoError(t, err)

	runEntry(t, table.Entries()[0])
	require.Equal(t, []string{"tree", "file"}, calls)
}

func TestFileRoutes_NodeRegistry(t *testing.T) {
	t.Parallel()

	own := internal.NewRegistry().Route("route", internal.RouteModule{GET: ok("own")})
	node := internal.FileRoutesFS(fstest.MapFS{"route.go": {Data: []byte("x")}}, "/own")
	node.Registry = own

	table, err := internal.Compile(node, internal.ModuleRegistry(internal.NewRegistry()))
	require.NoError(t, err)
	require.Empty(t, table.Warnings())

	w := runEntry(t, table.Entries()[0])
	require.Equal(t, "own", w.Body.String())
}

func TestFileRoutes_MethodDispatch(t *testing.T) {
	t.Parallel()

	registry := internal.NewRegistry().
		Route("users/route", internal.RouteModule{GET: ok("list"), POST: ok("create")}).
		Route("legacy/route", internal.RouteModule{Default: ok("default")}).
		Route("any/route", internal.RouteModule{GET: ok("get"), ALL: ok("all")})

	table, err := internal.Compile(internal.FileRoutesFS(fstest.MapFS{
		"users/route.go":  {Data: []byte("x")},
		"legacy/route.go": {Data: []byte("x")},
		"any/route.go":    {Data: []byte("x")},
	}, "/"), internal.ModuleRegistry(registry))
	require.NoError(t, err)

	byPath := map[string]internal.RouteEntry{}
	for _, e := range table.Entries() {
		byPath[e.Path] = e
	}

	serveMethod := func(t *testing.T, e internal.RouteEntry, method string) *httptest.ResponseRecorder {
		t.Helper()
		w := httptest.NewRecorder()
		c, err := internal.NewRequestContext(w, httptest.NewRequest(method, e.Path, nil), nil)
		require.NoError(t, err)
		require.NoError(t, internal.Invoke(c, e.Handler, e.Middlewares...))
		return w
	}

	t.Run("declared method", func(t *testing.T) {
		t.Parallel()
		w := serveMethod(t, byPath["/users"], http.MethodPost)
		require.Equal(t, "create", w.Body.String())
	})

	t.Run("undeclared method is 405", func(t *testing.T) {
		t.Parallel()
		w := serveMethod(t, byPath["/users"], http.MethodDelete)
		require.Equal(t, http.StatusMethodNotAllowed, w.Code)
		require.Equal(t, "GET, POST", w.Header().Get("Allow"))
		require.JSONEq(t, `{
			"error": "Method Not Allowed",
			"message": "Method DELETE is not allowed for this route",
			"allowed": ["GET", "POST"]
		}`, w.Body.String())
	})

	t.Run("default export serves GET", func(t *testing.T) {
		t.Parallel()
		w := serveMethod(t, byPath["/legacy"], http.MethodGet)
		require.Equal(t, "default", w.Body.String())

		w = serveMethod(t, byPath["/legacy"], http.MethodPut)
		require.Equal(t, http.StatusMethodNotAllowed, w.Code)
		require.Equal(t, "GET", w.Header().Get("Allow"))
	})

	t.Run("ALL catches remaining methods", func(t *testing.T) {
		t.Parallel()
		require.Equal(t, "get", serveMethod(t, byPath["/any"], http.MethodGet).Body.String())
		require.Equal(t, "all", serveMethod(t, byPath["/any"], http.MethodPatch).Body.String())
	})
}

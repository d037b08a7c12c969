package internal_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/treeserve/internal"
)

func recordingMiddleware(name string, calls *[]string) internal.MiddlewareFunc {
	return func(c internal.Context, next internal.Next) (any, error) {
		*calls = append(*calls, name)
		return next()
	}
}

func TestInvoke_MiddlewareOrder(t *testing.T) {
	t.Parallel()

	var calls []string
	handler := func(c internal.Context) (any, error) {
		calls = append(calls, "handler")
		return "done", nil
	}

	w := httptest.NewRecorder()
	c, err := internal.NewRequestContext(w, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	require.NoError(t, err)

	err = internal.Invoke(c, handler,
		recordingMiddleware("outer", &calls),
		recordingMiddleware("inner", &calls),
	)
	require.NoError(t, err)
	require.Equal(t, []string{"outer", "inner", "handler"}, calls)
	require.Equal(t, "done", w.Body.String())
}

func TestInvoke_ShortCircuit(t *testing.T) {
	t.Parallel()

	var handlerCalls, laterCalls int
	deny := func(c internal.Context, next internal.Next) (any, error) {
		return internal.Response(
			internal.Status(http.StatusUnauthorized),
			internal.JSON(map[string]string{"error": "Unauthorized"}),
		), nil
	}
	later := func(c internal.Context, next internal.Next) (any, error) {
		laterCalls++
		return next()
	}
	handler := func(c internal.Context) (any, error) {
		handlerCalls++
		return "ok", nil
	}

	w := httptest.NewRecorder()
	c, err := internal.NewRequestContext(w, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	require.NoError(t, err)

	require.NoError(t, internal.Invoke(c, handler, deny, later))
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.JSONEq(t, `{"error":"Unauthorized"}`, w.Body.String())
	require.Zero(t, handlerCalls)
	require.Zero(t, laterCalls)
}

func TestInvoke_MiddlewareSeesDownstreamOutput(t *testing.T) {
	t.Parallel()

	var seen any
	observe := func(c internal.Context, next internal.Next) (any, error) {
		out, err := next()
		seen = out
		return out, err
	}

	c, err := internal.NewRequestContext(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), nil)
	require.NoError(t, err)

	require.NoError(t, internal.Invoke(c, func(internal.Context) (any, error) { return 42, nil }, observe))
	require.Equal(t, 42, seen)
}

func TestInvoke_PanicBecomesError(t *testing.T) {
	t.Parallel()

	c, err := internal.NewRequestContext(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), nil)
	require.NoError(t, err)

	err = internal.Invoke(c, func(internal.Context) (any, error) { panic("boom") })
	pe, ok := internal.AsPanicError(err)
	require.True(t, ok)
	require.Equal(t, "boom", pe.Value)
	require.NotEmpty(t, pe.Stack)
}

func TestChain(t *testing.T) {
	t.Parallel()

	var calls []string
	composed := internal.Chain(recordingMiddleware("a", &calls), nil, recordingMiddleware("b", &calls))
	c, err := internal.NewRequestContext(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), nil)
	require.NoError(t, err)

	require.NoError(t, internal.Invoke(c, func(internal.Context) (any, error) {
		calls = append(calls, "handler")
		return "ok", nil
	}, composed, recordingMiddleware("c", &calls)))
	require.Equal(t, []string{"a", "b", "c", "handler"}, calls)
}

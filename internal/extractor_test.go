package internal_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/treeserve/internal"
	"github.com/dmitrymomot/treeserve/pkg/logger"
)

func newContext(t *testing.T, r *http.Request, params map[string]string) internal.Context {
	t.Helper()
	c, err := internal.NewRequestContext(httptest.NewRecorder(), r, params)
	require.NoError(t, err)
	return c
}

func TestExtractor(t *testing.T) {
	t.Parallel()

	t.Run("first match wins", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodGet, "/?token=from-query", nil)
		r.Header.Set("X-Token", "from-header")
		c := newContext(t, r, nil)

		ext := internal.NewExtractor(internal.FromHeader("X-Token"), internal.FromQuery("token"))
		v, ok := ext.Extract(c)
		require.True(t, ok)
		require.Equal(t, "from-header", v)
	})

	t.Run("falls through empty sources", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodGet, "/?token=from-query", nil)
		c := newContext(t, r, nil)

		ext := internal.NewExtractor(internal.FromHeader("X-Token"), internal.FromQuery("token"))
		v, ok := ext.Extract(c)
		require.True(t, ok)
		require.Equal(t, "from-query", v)
	})

	t.Run("no sources", func(t *testing.T) {
		t.Parallel()
		c := newContext(t, httptest.NewRequest(http.MethodGet, "/", nil), nil)
		_, ok := internal.NewExtractor().Extract(c)
		require.False(t, ok)
	})
}

func TestFromParam(t *testing.T) {
	t.Parallel()

	c := newContext(t, httptest.NewRequest(http.MethodGet, "/users/42", nil), map[string]string{"id": "42"})

	v, ok := internal.FromParam("id")(c)
	require.True(t, ok)
	require.Equal(t, "42", v)

	_, ok = internal.FromParam("missing")(c)
	require.False(t, ok)
}

func TestFromContextValue(t *testing.T) {
	t.Parallel()

	c := newContext(t, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	c.Set("user", "admin")
	c.Set("attempts", 3)

	v, ok := internal.FromContextValue("user")(c)
	require.True(t, ok)
	require.Equal(t, "admin", v)

	v, ok = internal.FromContextValue("attempts")(c)
	require.True(t, ok)
	require.Equal(t, "3", v)

	_, ok = internal.FromContextValue("extractor-test-missing")(c)
	require.False(t, ok)
}

func TestFromBearerToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header string
		want   string
		ok     bool
	}{
		{name: "bearer", header: "Bearer abc", want: "abc", ok: true},
		{name: "case insensitive", header: "bearer abc", want: "abc", ok: true},
		{name: "basic", header: "Basic abc", ok: false},
		{name: "empty token", header: "Bearer ", ok: false},
		{name: "missing", header: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			v, ok := internal.FromBearerToken()(newContext(t, r, nil))
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, v)
		})
	}
}

func TestLogExtractors(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.NewWithOptions(logger.Options{Output: &buf, Format: logger.FormatJSON},
		internal.RouteExtractor(),
		internal.ContextValueExtractor("requestId", "request_id"),
	)

	r := httptest.NewRequest(http.MethodGet, "/users/7", nil)
	c := newContext(t, r, map[string]string{"id": "7"})
	c.Set("requestId", "req-1")

	log.InfoContext(c, "inside request")
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "/users/7", rec["route"])
	require.Equal(t, "req-1", rec["request_id"])

	buf.Reset()
	log.LogAttrs(context.Background(), slog.LevelInfo, "outside request")
	rec = nil
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.NotContains(t, rec, "route")
	require.NotContains(t, rec, "request_id")
}

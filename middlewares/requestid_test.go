package middlewares_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/treeserve/internal"
	"github.com/dmitrymomot/treeserve/middlewares"
	"github.com/dmitrymomot/treeserve/pkg/logger"
)

func TestRequestID(t *testing.T) {
	t.Parallel()

	t.Run("generates new request ID when not present", func(t *testing.T) {
		t.Parallel()

		c, rec := newContext(t, httptest.NewRequest(http.MethodGet, "/", nil))

		var seen string
		err := internal.Invoke(c, func(c internal.Context) (any, error) {
			seen = middlewares.GetRequestID(c)
			return "ok", nil
		}, middlewares.RequestID())
		require.NoError(t, err)

		require.NotEmpty(t, seen)
		require.Equal(t, seen, rec.Header().Get("X-Request-ID"))
		_, err = uuid.Parse(seen)
		require.NoError(t, err)
	})

	t.Run("uses existing request ID from header", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Correlation-ID", "existing-request-id-123")
		c, rec := newContext(t, r)

		require.NoError(t, internal.Invoke(c, okHandler, middlewares.RequestID()))
		require.Equal(t, "existing-request-id-123", rec.Header().Get("X-Request-ID"))
		require.Equal(t, "existing-request-id-123", middlewares.GetRequestID(c))
	})

	t.Run("custom headers and generator", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Request-ID", "ignored")
		c, rec := newContext(t, r)

		mw := middlewares.RequestID(
			middlewares.WithRequestIDHeaders("X-Trace-ID"),
			middlewares.WithRequestIDGenerator(func() string { return "generated" }),
			middlewares.WithRequestIDResponseHeader("X-Trace-ID"),
		)
		require.NoError(t, internal.Invoke(c, okHandler, mw))
		require.Equal(t, "generated", rec.Header().Get("X-Trace-ID"))
		require.Empty(t, rec.Header().Get("X-Request-ID"))
	})

	t.Run("empty response header disables echo", func(t *testing.T) {
		t.Parallel()

		c, rec := newContext(t, httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, internal.Invoke(c, okHandler, middlewares.RequestID(middlewares.WithRequestIDResponseHeader(""))))
		require.Empty(t, rec.Header().Get("X-Request-ID"))
		require.NotEmpty(t, middlewares.GetRequestID(c))
	})

	t.Run("GetRequestID without middleware", func(t *testing.T) {
		t.Parallel()

		c, _ := newContext(t, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Empty(t, middlewares.GetRequestID(c))
	})
}

func TestRequestIDExtractor(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(logger.NewContextHandler(slog.NewJSONHandler(&buf, nil), middlewares.RequestIDExtractor()))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Request-ID", "req-42")
	c, _ := newContext(t, r)

	err := internal.Invoke(c, func(c internal.Context) (any, error) {
		log.InfoContext(c, "handled")
		return "ok", nil
	}, middlewares.RequestID())
	require.NoError(t, err)
	require.Contains(t, buf.String(), `"request_id":"req-42"`)

	buf.Reset()
	log.InfoContext(context.Background(), "outside")
	require.NotContains(t, buf.String(), "request_id")
}

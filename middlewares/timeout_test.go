package middlewares_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/treeserve/internal"
	"github.com/dmitrymomot/treeserve/middlewares"
)

func TestTimeout(t *testing.T) {
	t.Parallel()

	t.Run("passes through when handler completes in time", func(t *testing.T) {
		t.Parallel()

		c, rec := newContext(t, httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, internal.Invoke(c, okHandler, middlewares.Timeout(time.Second)))
		require.Equal(t, "ok", rec.Body.String())
	})

	t.Run("returns 503 TimeoutError when handler exceeds timeout", func(t *testing.T) {
		t.Parallel()

		c, rec := newContext(t, httptest.NewRequest(http.MethodGet, "/", nil))
		err := internal.Invoke(c, func(c internal.Context) (any, error) {
			<-middlewares.GetTimeoutContext(c).Done()
			return "late", nil
		}, middlewares.Timeout(10*time.Millisecond))
		require.Error(t, err)
		require.True(t, middlewares.IsTimeoutError(err))

		te, ok := middlewares.AsTimeoutError(err)
		require.True(t, ok)
		require.Equal(t, 10*time.Millisecond, te.Duration)

		httpErr := internal.AsHTTPError(err)
		require.NotNil(t, httpErr)
		require.Equal(t, http.StatusServiceUnavailable, httpErr.Code)
		require.Equal(t, "Request timeout", httpErr.Message)
		require.Zero(t, rec.Body.Len())
	})

	t.Run("keeps a response written before the deadline", func(t *testing.T) {
		t.Parallel()

		c, rec := newContext(t, httptest.NewRequest(http.MethodGet, "/", nil))
		err := internal.Invoke(c, func(c internal.Context) (any, error) {
			c.Response().WriteHeader(http.StatusAccepted)
			<-middlewares.GetTimeoutContext(c).Done()
			return nil, nil
		}, middlewares.Timeout(10*time.Millisecond))
		require.NoError(t, err)
		require.Equal(t, http.StatusAccepted, rec.Code)
	})

	t.Run("custom message", func(t *testing.T) {
		t.Parallel()

		c, _ := newContext(t, httptest.NewRequest(http.MethodGet, "/", nil))
		err := internal.Invoke(c, func(c internal.Context) (any, error) {
			time.Sleep(20 * time.Millisecond)
			return "late", nil
		}, middlewares.Timeout(time.Millisecond, middlewares.WithTimeoutMessage("too slow")))
		require.Equal(t, "too slow", internal.AsHTTPError(err).Message)
	})

	t.Run("uses default timeout when zero provided", func(t *testing.T) {
		t.Parallel()

		c, _ := newContext(t, httptest.NewRequest(http.MethodGet, "/", nil))
		err := internal.Invoke(c, func(c internal.Context) (any, error) {
			deadline, ok := middlewares.GetTimeoutContext(c).Deadline()
			require.True(t, ok)
			require.WithinDuration(t, time.Now().Add(middlewares.DefaultTimeout), deadline, time.Second)
			return "ok", nil
		}, middlewares.Timeout(0))
		require.NoError(t, err)
	})

	t.Run("GetTimeoutContext without middleware", func(t *testing.T) {
		t.Parallel()

		c, _ := newContext(t, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, c, middlewares.GetTimeoutContext(c))
	})
}

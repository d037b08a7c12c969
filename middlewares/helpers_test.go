package middlewares_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/treeserve/internal"
)

func newContext(t *testing.T, r *http.Request) (internal.Context, *httptest.ResponseRecorder) {
	t.Helper()
	rec := httptest.NewRecorder()
	c, err := internal.NewRequestContext(rec, r, nil)
	require.NoError(t, err)
	return c, rec
}

func okHandler(c internal.Context) (any, error) {
	return "ok", nil
}

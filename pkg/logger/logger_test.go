package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/treeserve/pkg/logger"
)

type ctxKey struct{}

func fromCtx(ctx context.Context) (slog.Attr, bool) {
	v, ok := ctx.Value(ctxKey{}).(string)
	if !ok {
		return slog.Attr{}, false
	}
	return slog.String("request_id", v), true
}

func TestNewWithOptions(t *testing.T) {
	t.Parallel()

	t.Run("json with extractors", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.NewWithOptions(logger.Options{Output: &buf, Level: slog.LevelDebug}, fromCtx, nil)

		ctx := context.WithValue(context.Background(), ctxKey{}, "abc")
		log.With("component", "api").DebugContext(ctx, "hello", "n", 1)

		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
		require.Equal(t, "hello", rec["msg"])
		require.Equal(t, "abc", rec["request_id"])
		require.Equal(t, "api", rec["component"])
		require.EqualValues(t, 1, rec["n"])
	})

	t.Run("text format and level", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.NewWithOptions(logger.Options{Output: &buf, Format: logger.FormatText, Level: slog.LevelWarn})
		log.Info("dropped")
		log.Warn("kept")
		require.NotContains(t, buf.String(), "dropped")
		require.Contains(t, buf.String(), "msg=kept")
	})

	t.Run("extractor without value", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.NewWithOptions(logger.Options{Output: &buf}, fromCtx)
		log.InfoContext(context.Background(), "plain")
		require.NotContains(t, buf.String(), "request_id")
	})
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	require.Equal(t, slog.LevelDebug, logger.ParseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, logger.ParseLevel(" warning "))
	require.Equal(t, slog.LevelError, logger.ParseLevel("error"))
	require.Equal(t, slog.LevelInfo, logger.ParseLevel("verbose"))
}

func TestNewNope(t *testing.T) {
	t.Parallel()

	log := logger.NewNope()
	require.False(t, log.Enabled(context.Background(), slog.LevelError))
	log.Error("ignored")
}

func TestNewWithSentryWithoutDSN(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.NewWithSentry(logger.SentryConfig{}, logger.Options{Output: &buf}, fromCtx)
	log.ErrorContext(context.WithValue(context.Background(), ctxKey{}, "r1"), "failed")
	require.Contains(t, buf.String(), `"request_id":"r1"`)
}

func TestNewContextHandlerFlattens(t *testing.T) {
	t.Parallel()

	other := func(context.Context) (slog.Attr, bool) { return slog.String("route", "/users/:id"), true }

	var buf bytes.Buffer
	h := logger.NewContextHandler(logger.NewContextHandler(slog.NewJSONHandler(&buf, nil), fromCtx), other)
	slog.New(h).InfoContext(context.WithValue(context.Background(), ctxKey{}, "x"), "both")

	require.Equal(t, 1, bytes.Count(buf.Bytes(), []byte(`"request_id"`)))
	require.Contains(t, buf.String(), `"route":"/users/:id"`)
}

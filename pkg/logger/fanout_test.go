package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("remote down") }

func TestFanoutHandler(t *testing.T) {
	t.Parallel()

	t.Run("delivers past a failing destination", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		local := slog.NewJSONHandler(&buf, nil)
		h := newFanoutHandler(failingHandler{local}, local)

		err := h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "still delivered", 0))
		require.EqualError(t, err, "remote down")
		require.Contains(t, buf.String(), "still delivered")
	})

	t.Run("enabled if any destination is", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		h := newFanoutHandler(
			slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelError}),
			slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
		require.True(t, h.Enabled(context.Background(), slog.LevelInfo))
		require.False(t, h.Enabled(context.Background(), slog.LevelDebug))
	})

	t.Run("attrs and groups reach every destination", func(t *testing.T) {
		t.Parallel()

		var a, b bytes.Buffer
		h := newFanoutHandler(slog.NewJSONHandler(&a, nil), slog.NewJSONHandler(&b, nil)).
			WithAttrs([]slog.Attr{slog.String("component", "api")}).
			WithGroup("req")

		rec := slog.NewRecord(time.Now(), slog.LevelWarn, "slow", 0)
		rec.AddAttrs(slog.Int("ms", 900))
		require.NoError(t, h.Handle(context.Background(), rec))

		for _, out := range []string{a.String(), b.String()} {
			require.Contains(t, out, `"component":"api"`)
			require.Contains(t, out, `"req":{"ms":900}`)
		}
	})
}

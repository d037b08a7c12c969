package middlewares

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime"

	"github.com/dmitrymomot/treeserve/internal"
)

// DefaultStackSize bounds the stack captured by Recover, in bytes.
const DefaultStackSize = 4096

// RecoverConfig configures Recover.
type RecoverConfig struct {
	StackSize         int
	DisablePrintStack bool
}

// RecoverOption configures RecoverConfig.
type RecoverOption func(*RecoverConfig)

// WithRecoverStackSize changes the stack capture limit.
func WithRecoverStackSize(size int) RecoverOption {
	return func(cfg *RecoverConfig) { cfg.StackSize = size }
}

// WithRecoverDisablePrintStack skips stack capture entirely.
func WithRecoverDisablePrintStack() RecoverOption {
	return func(cfg *RecoverConfig) { cfg.DisablePrintStack = true }
}

// Recover turns a panic below it into a *PanicError, logged with the request
// attributes where it happened. The error handler renders it as a 500.
// http.ErrAbortHandler is re-raised so the server can drop the connection.
func Recover(opts ...RecoverOption) internal.MiddlewareFunc {
	cfg := RecoverConfig{StackSize: DefaultStackSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	captureStack := !cfg.DisablePrintStack && cfg.StackSize > 0

	return func(c internal.Context, next internal.Next) (out any, err error) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if e, ok := v.(error); ok && errors.Is(e, http.ErrAbortHandler) {
				panic(v)
			}

			pe := &PanicError{Value: v}
			attrs := []any{slog.Any("panic", v)}
			if captureStack {
				buf := make([]byte, cfg.StackSize)
				pe.Stack = buf[:runtime.Stack(buf, false)]
				attrs = append(attrs, slog.String("stack", string(pe.Stack)))
			}
			c.LogError("panic recovered", attrs...)

			out, err = nil, pe
		}()

		return next()
	}
}

package middlewares

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrymomot/treeserve/internal"
)

// DefaultTimeout is the default request timeout.
const DefaultTimeout = 30 * time.Second

// timeoutContextKey is the request state key holding the deadline context.
const timeoutContextKey = "middlewares.timeout"

// TimeoutConfig configures the timeout middleware.
type TimeoutConfig struct {
	Timeout time.Duration
	Message string // Body message of the 503 response
}

// TimeoutOption configures TimeoutConfig.
type TimeoutOption func(*TimeoutConfig)

// WithTimeoutMessage sets the message rendered when the deadline passes.
func WithTimeoutMessage(msg string) TimeoutOption {
	return func(cfg *TimeoutConfig) {
		cfg.Message = msg
	}
}

// Timeout returns middleware that gives the rest of the chain a deadline.
// Handlers observe it through GetTimeoutContext. When the chain returns after
// the deadline without having written a response, its output is discarded and
// a 503 HTTPError wrapping a *TimeoutError is returned instead.
//
// The chain runs on the request goroutine, so a handler that ignores the
// deadline still runs to completion.
func Timeout(timeout time.Duration, opts ...TimeoutOption) internal.MiddlewareFunc {
	cfg := &TimeoutConfig{
		Timeout: timeout,
		Message: "Request timeout",
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return func(c internal.Context, next internal.Next) (any, error) {
		ctx, cancel := context.WithTimeout(c, cfg.Timeout)
		defer cancel()

		c.Set(timeoutContextKey, ctx)

		out, err := next()
		if !errors.Is(ctx.Err(), context.DeadlineExceeded) || c.Written() {
			return out, err
		}

		c.LogWarn("request timeout", "timeout", cfg.Timeout.String())
		return nil, &internal.HTTPError{
			Code:    http.StatusServiceUnavailable,
			Message: cfg.Message,
			Err:     &TimeoutError{Duration: cfg.Timeout},
		}
	}
}

// GetTimeoutContext returns the deadline context set by Timeout,
// or c itself when the middleware is not applied.
func GetTimeoutContext(c internal.Context) context.Context {
	if v, ok := c.Get(timeoutContextKey).(context.Context); ok {
		return v
	}
	return c
}

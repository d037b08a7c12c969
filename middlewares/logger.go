package middlewares

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/treeserve/internal"
)

// LoggerConfig configures the access log middleware.
type LoggerConfig struct {
	Level     slog.Level          // Level of successful requests (default: Info)
	SkipPaths map[string]struct{} // Request paths that are not logged
}

// LoggerOption configures LoggerConfig.
type LoggerOption func(*LoggerConfig)

// WithLoggerLevel sets the level used for requests answered below 500.
func WithLoggerLevel(level slog.Level) LoggerOption {
	return func(cfg *LoggerConfig) {
		cfg.Level = level
	}
}

// WithLoggerSkipPaths excludes request paths from the access log.
func WithLoggerSkipPaths(paths ...string) LoggerOption {
	return func(cfg *LoggerConfig) {
		for _, p := range paths {
			cfg.SkipPaths[p] = struct{}{}
		}
	}
}

// Logger returns middleware that logs one record per request once the rest
// of the chain has returned. The status is taken from what was written to the
// response, or predicted from the returned output when nothing was written yet.
// Server errors are logged at error level.
func Logger(opts ...LoggerOption) internal.MiddlewareFunc {
	cfg := &LoggerConfig{
		Level:     slog.LevelInfo,
		SkipPaths: map[string]struct{}{},
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return func(c internal.Context, next internal.Next) (any, error) {
		if _, skip := cfg.SkipPaths[c.Path()]; skip {
			return next()
		}

		start := time.Now()
		out, err := next()

		status := resultStatus(c, out, err)
		attrs := []any{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
		}
		if err != nil {
			attrs = append(attrs, slog.Any("error", err))
		}

		level := cfg.Level
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		c.Logger().Log(c, level, "request", attrs...)

		return out, err
	}
}

func resultStatus(c internal.Context, out any, err error) int {
	if c.Written() {
		return c.ResponseWriter().Status()
	}
	if err != nil {
		if httpErr := internal.AsHTTPError(err); httpErr != nil && httpErr.Code > 0 {
			return httpErr.Code
		}
		return http.StatusInternalServerError
	}
	switch v := out.(type) {
	case nil:
		return http.StatusInternalServerError
	case *internal.ResponseNode:
		return v.StatusCode()
	default:
		return http.StatusOK
	}
}

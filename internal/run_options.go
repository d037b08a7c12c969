package internal

import (
	"context"
	"log/slog"
	"net"
	"time"
)

// RunOption configures the server runtime.
type RunOption func(*runConfig)

type runConfig struct {
	baseCtx         context.Context
	logger          *slog.Logger
	watch           *watchConfig
	address         string
	startupHooks    []func(context.Context) error
	shutdownHooks   []func(context.Context) error
	listenHooks     []func(net.Addr)
	shutdownTimeout time.Duration
}

func buildRunConfig(opts ...RunOption) *runConfig {
	cfg := &runConfig{
		shutdownTimeout: defaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Address sets the HTTP server address.
// Defaults to ":<port>" with the port of the App node.
func Address(addr string) RunOption {
	return func(c *runConfig) {
		if addr != "" {
			c.address = addr
		}
	}
}

// Logger sets the runtime logger. Defaults to the server logger.
func Logger(l *slog.Logger) RunOption {
	return func(c *runConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// ShutdownTimeout bounds draining the server and running the shutdown hooks.
// Defaults to 30 seconds.
func ShutdownTimeout(d time.Duration) RunOption {
	return func(c *runConfig) {
		if d > 0 {
			c.shutdownTimeout = d
		}
	}
}

// StartupHook registers a function to run before the server accepts requests.
// A failing hook aborts startup.
func StartupHook(fn func(context.Context) error) RunOption {
	return func(c *runConfig) {
		if fn != nil {
			c.startupHooks = append(c.startupHooks, fn)
		}
	}
}

// ShutdownHook registers a cleanup function run after the server is drained,
// in registration order. Its context expires with the shutdown timeout.
func ShutdownHook(fn func(context.Context) error) RunOption {
	return func(c *runConfig) {
		if fn != nil {
			c.shutdownHooks = append(c.shutdownHooks, fn)
		}
	}
}

// WithContext sets the base context: cancelling it stops the server, and
// request contexts derive from it. Defaults to context.Background().
func WithContext(ctx context.Context) RunOption {
	return func(c *runConfig) {
		if ctx != nil {
			c.baseCtx = ctx
		}
	}
}

// WatchChanges stops the server gracefully when a source file under dir changes,
// so a supervising process can restart it. Run then returns nil.
// Extensions default to ".go".
func WatchChanges(dir string, extensions ...string) RunOption {
	return func(c *runConfig) {
		c.watch = &watchConfig{dir: dir, extensions: extensions}
	}
}

// OnListen registers a function called with the bound address once the
// server accepts connections. Useful with Address(":0").
func OnListen(fn func(net.Addr)) RunOption {
	return func(c *runConfig) {
		if fn != nil {
			c.listenHooks = append(c.listenHooks, fn)
		}
	}
}

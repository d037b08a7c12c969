package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrymomot/treeserve/pkg/logger"
)

// runServer serves h until SIGINT, SIGTERM, cancellation of the base context
// or, with WatchChanges, the first source change. A stop for any of these
// reasons returns nil unless shutdown itself fails.
func runServer(h http.Handler, cfg *runConfig) error {
	log := cfg.logger
	if log == nil {
		log = logger.NewNope()
	}
	if cfg.address == "" {
		cfg.address = fmt.Sprintf(":%d", defaultNoAppPort)
	}

	base := cfg.baseCtx
	if base == nil {
		base = context.Background()
	}
	ctx, stop := signal.NotifyContext(base, os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, hook := range cfg.startupHooks {
		if err := hook(ctx); err != nil {
			return fmt.Errorf("startup hook: %w", err)
		}
	}

	changed := startWatcher(ctx, cfg.watch, log)

	ln, err := net.Listen("tcp", cfg.address)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.address, err)
	}

	srv := &http.Server{
		Handler:           h,
		ReadTimeout:       defaultReadTimeout,
		WriteTimeout:      defaultWriteTimeout,
		IdleTimeout:       defaultIdleTimeout,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		MaxHeaderBytes:    defaultMaxHeaderBytes,
		BaseContext:       func(net.Listener) context.Context { return base },
	}

	serveErr := make(chan error, 1)
	go func() {
		defer close(serveErr)
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	log.Info("server started", slog.String("address", ln.Addr().String()))
	for _, fn := range cfg.listenHooks {
		fn(ln.Addr())
	}

	select {
	case err := <-serveErr:
		return err
	case file, ok := <-changed:
		if ok {
			log.Info("source changed, stopping for restart", slog.String("file", file))
		}
	case <-ctx.Done():
	}

	return shutdown(srv, cfg, log)
}

// startWatcher returns the change channel of the dev watcher, or nil when
// watching is off or cannot start.
func startWatcher(ctx context.Context, wc *watchConfig, log *slog.Logger) <-chan string {
	if wc == nil {
		return nil
	}
	ch, err := watchSource(ctx, *wc, log)
	if err != nil {
		log.Warn("file watcher disabled", slog.Any("error", err))
		return nil
	}
	log.Info("watching for source changes", slog.String("dir", wc.dir))
	return ch
}

// shutdown drains the HTTP server, then runs the shutdown hooks in
// registration order, all within the shutdown timeout.
func shutdown(srv *http.Server, cfg *runConfig, log *slog.Logger) error {
	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.shutdownTimeout)
	defer cancel()

	errs := []error{srv.Shutdown(ctx)}
	for _, hook := range cfg.shutdownHooks {
		if err := hook(ctx); err != nil {
			log.Error("shutdown hook failed", slog.Any("error", err))
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

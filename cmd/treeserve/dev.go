package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/treeserve"
	"github.com/dmitrymomot/treeserve/pkg/config"
)

// restartDelay separates a clean exit of the dev server from its restart.
const restartDelay = 50 * time.Millisecond

func devCmd(dir *string) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Run the application with restart on change",
		Long: `Run the application entry with go run in development mode.

The application watches its Go sources and exits cleanly on the
first change; dev then starts it again. Any other exit ends dev
with the application's exit code.

Examples:
  treeserve dev
  treeserve dev --port=8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDev(cmd.Context(), *dir, port)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to run on (overrides the App port)")

	return cmd
}

func runDev(ctx context.Context, dir string, port int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := loadProject(dir)
	r := appRunner(dir, cfg, config.EnvDevelopment, port)
	pkg := entryPackage(cfg)

	info("dev: go run %s", pkg)
	return restartLoop(ctx, restartDelay, func(ctx context.Context) (int, error) {
		return r.run(ctx, "go", "run", pkg)
	})
}

// restartLoop calls start until it reports a non-zero exit code or ctx is done.
// A zero exit code means the application stopped for a source change.
func restartLoop(ctx context.Context, delay time.Duration, start func(context.Context) (int, error)) error {
	for {
		code, err := start(ctx)
		if err != nil {
			return err
		}
		if code != 0 {
			return &childExitError{name: "application", code: code}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		success("restarting")
	}
}

// appRunner prepares a runner for the application process.
func appRunner(dir string, cfg config.Config, env string, port int) runner {
	r := newRunner(dir)
	r.env[treeserve.EnvVar] = env
	if port == 0 {
		port = cfg.Port
	}
	if port > 0 {
		r.env[treeserve.PortEnvVar] = strconv.Itoa(port)
	}
	return r
}

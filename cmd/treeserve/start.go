package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/treeserve/pkg/config"
)

func startCmd(dir *string) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Run the application in production mode",
		Long: `Run the application entry once with TREESERVE_ENV=production.
The exit code of the application is forwarded.

Examples:
  treeserve start
  treeserve start -p 6969`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(cmd.Context(), *dir, port)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to run on (overrides the App port)")

	return cmd
}

func runStart(ctx context.Context, dir string, port int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := loadProject(dir)
	r := appRunner(dir, cfg, config.EnvProduction, port)

	code, err := r.run(ctx, "go", "run", entryPackage(cfg))
	if err != nil {
		return err
	}
	if code != 0 {
		return &childExitError{name: "application", code: code}
	}
	return nil
}

package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/treeserve"
	"github.com/dmitrymomot/treeserve/pkg/config"
)

func routesCmd(dir *string) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Print the compiled route table",
		Long: `Compile the application's tree and print the route table
without starting the server. The application must start through
treeserve.Serve.

Examples:
  treeserve routes
  treeserve routes --format=yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case "json", "yaml":
			default:
				return fmt.Errorf("unsupported format %q: use json or yaml", format)
			}
			return runRoutes(cmd.Context(), *dir, format, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json or yaml")

	return cmd
}

func runRoutes(ctx context.Context, dir, format string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg := loadProject(dir)
	r := appRunner(dir, cfg, config.EnvProduction, 0)
	r.env[treeserve.RoutesEnvVar] = format

	var buf bytes.Buffer
	r.stdout = &buf
	r.stderr = os.Stderr

	code, err := r.run(ctx, "go", "run", entryPackage(cfg))
	if err != nil {
		return err
	}
	if code != 0 {
		return &childExitError{name: "application", code: code}
	}

	_, err = io.Copy(out, &buf)
	return err
}

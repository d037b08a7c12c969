package main

import (
	"context"

	"github.com/spf13/cobra"
)

func buildCmd(dir *string) *cobra.Command {
	var (
		emit   bool
		output string
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Check the project, optionally building a binary",
		Long: `Run go vet on the project. With --emit the application
entry is also compiled to --output.

Examples:
  treeserve build
  treeserve build --emit --output=bin/server`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), *dir, emit, output)
		},
	}

	cmd.Flags().BoolVar(&emit, "emit", false, "Compile the application binary")
	cmd.Flags().StringVarP(&output, "output", "o", "bin/server", "Binary path used with --emit")

	return cmd
}

func runBuild(ctx context.Context, dir string, emit bool, output string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg := loadProject(dir)
	r := newRunner(dir)

	steps := [][]string{{"vet", "./..."}}
	if emit {
		steps = append(steps, []string{"build", "-o", output, entryPackage(cfg)})
	}

	for _, args := range steps {
		info("go %s", args[0])
		code, err := r.run(ctx, "go", args...)
		if err != nil {
			return err
		}
		if code != 0 {
			return &childExitError{name: "go " + args[0], code: code}
		}
	}

	if emit {
		success("built %s", output)
	} else {
		success("no problems found")
	}
	return nil
}

// Command treeserve runs, checks and inspects treeserve applications.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(execute(newRootCmd()))
}

func newRootCmd() *cobra.Command {
	var dir string

	rootCmd := &cobra.Command{
		Use:   "treeserve",
		Short: "Run and inspect treeserve applications",
		Long: `treeserve runs Go backends declared as a tree of routes.

Commands read treeserve.yaml (or .json/.toml) from the project
directory; TREESERVE_* environment variables override it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&dir, "dir", "C", ".", "Project directory")

	rootCmd.AddCommand(
		devCmd(&dir),
		startCmd(&dir),
		buildCmd(&dir),
		routesCmd(&dir),
		versionCmd(),
	)
	return rootCmd
}

// execute runs the command tree and maps the result to a process exit code.
// A child process failure is forwarded with the child's own code.
func execute(cmd *cobra.Command) int {
	err := cmd.Execute()
	if err == nil {
		return 0
	}

	var exitErr *childExitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}

	errorMsg("%s", err)
	return 1
}

// childExitError reports a child process that exited with a non-zero code.
type childExitError struct {
	name string
	code int
}

func (e *childExitError) Error() string {
	return fmt.Sprintf("%s exited with code %d", e.name, e.code)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "  %s\n", fmt.Sprintf(format, args...))
}

// errorMsg prints an error message.
func errorMsg(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "\033[31m✗\033[0m %s\n", fmt.Sprintf(format, args...))
}

package internal

import (
	"os"
	"strconv"
	"strings"
)

// Environment variables set by the treeserve CLI for the application process.
const (
	// EnvVar selects the runtime mode: "development" for `treeserve dev`,
	// "production" for `treeserve start`.
	EnvVar = "TREESERVE_ENV"
	// PortEnvVar overrides the App node's port.
	PortEnvVar = "TREESERVE_PORT"
	// RoutesEnvVar makes Serve print the route table in the given format and
	// return instead of listening. Used by `treeserve routes`.
	RoutesEnvVar = "TREESERVE_ROUTES"
)

// DevMode reports whether the process runs in development mode.
func DevMode() bool {
	return strings.EqualFold(os.Getenv(EnvVar), "development")
}

// Serve compiles root, installs it and blocks until shutdown.
// In development mode the working directory is watched and the server
// stops with a nil error on the first Go source change.
//
// Example:
//
//	func main() {
//	    if err := treeserve.Serve(tree, treeserve.WithLogger("api")); err != nil {
//	        log.Fatal(err)
//	    }
//	}
func Serve(root Node, opts ...Option) error {
	if p, err := strconv.Atoi(os.Getenv(PortEnvVar)); err == nil && p > 0 {
		opts = append([]Option{WithPort(p)}, opts...)
	}

	s, err := New(root, opts...)
	if err != nil {
		return err
	}

	if format := os.Getenv(RoutesEnvVar); format != "" {
		return s.Routes().Dump(os.Stdout, format)
	}

	var runOpts []RunOption
	if DevMode() {
		runOpts = append(runOpts, WatchChanges("."))
	}
	return s.Run(runOpts...)
}

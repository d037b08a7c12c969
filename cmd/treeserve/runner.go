package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dmitrymomot/treeserve/pkg/config"
	"github.com/dmitrymomot/treeserve/pkg/logger"
)

// childStopTimeout bounds how long a child gets to exit after an interrupt.
const childStopTimeout = 10 * time.Second

// runner starts go toolchain commands in the project directory.
type runner struct {
	stdout io.Writer
	stderr io.Writer
	env    map[string]string
	dir    string
}

func newRunner(dir string) runner {
	return runner{
		dir:    dir,
		stdout: os.Stdout,
		stderr: os.Stderr,
		env:    map[string]string{},
	}
}

// loadProject reads the project configuration, warning on stderr when it cannot be parsed.
func loadProject(dir string) config.Config {
	log := logger.NewWithOptions(logger.Options{Output: os.Stderr, Format: logger.FormatText, Level: slog.LevelWarn})
	return config.LoadOrDefault(dir, log)
}

// run executes name with args and returns its exit code.
// The error is non-nil only when the process could not be started.
// Cancelling ctx interrupts the process and waits up to childStopTimeout.
func (r runner) run(ctx context.Context, name string, args ...string) (int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.dir
	cmd.Stdin = os.Stdin
	cmd.Stdout = r.stdout
	cmd.Stderr = r.stderr
	cmd.Env = mergeEnv(os.Environ(), r.env)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = childStopTimeout

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code > 0 {
			return code, nil
		}
		// Killed by a signal.
		if ctx.Err() != nil {
			return 0, nil
		}
		return 1, nil
	}
	return 0, err
}

// mergeEnv returns base with overrides applied, overridden keys replaced in place.
func mergeEnv(base []string, overrides map[string]string) []string {
	out := make([]string, 0, len(base)+len(overrides))
	seen := make(map[string]bool, len(overrides))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if v, ok := overrides[key]; ok {
			out = append(out, key+"="+v)
			seen[key] = true
			continue
		}
		out = append(out, kv)
	}

	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, k+"="+overrides[k])
	}
	return out
}

// entryPackage returns the package path passed to the go tool for cfg.Entry.
func entryPackage(cfg config.Config) string {
	entry := cfg.Entry
	if entry == "" || entry == "." {
		return "."
	}
	if filepath.IsAbs(entry) || strings.HasPrefix(entry, ".") {
		return entry
	}
	return "./" + entry
}

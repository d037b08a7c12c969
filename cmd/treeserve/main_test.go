package main

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/treeserve/pkg/config"
)

func TestRestartLoop(t *testing.T) {
	t.Parallel()

	t.Run("restarts on clean exit and forwards failure code", func(t *testing.T) {
		t.Parallel()

		codes := []int{0, 0, 3}
		var calls int
		err := restartLoop(context.Background(), time.Millisecond, func(context.Context) (int, error) {
			code := codes[calls]
			calls++
			return code, nil
		})

		var exitErr *childExitError
		require.ErrorAs(t, err, &exitErr)
		require.Equal(t, 3, exitErr.code)
		require.Equal(t, 3, calls)
	})

	t.Run("stops when context is done", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		var calls int
		err := restartLoop(ctx, time.Hour, func(context.Context) (int, error) {
			calls++
			cancel()
			return 0, nil
		})
		require.NoError(t, err)
		require.Equal(t, 1, calls)
	})

	t.Run("start failure", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("go not found")
		err := restartLoop(context.Background(), time.Millisecond, func(context.Context) (int, error) {
			return 0, boom
		})
		require.ErrorIs(t, err, boom)
	})
}

func TestMergeEnv(t *testing.T) {
	t.Parallel()

	got := mergeEnv(
		[]string{"PATH=/bin", "TREESERVE_ENV=production", "HOME=/root"},
		map[string]string{"TREESERVE_ENV": "development", "TREESERVE_PORT": "8080"},
	)
	require.Equal(t, []string{
		"PATH=/bin",
		"TREESERVE_ENV=development",
		"HOME=/root",
		"TREESERVE_PORT=8080",
	}, got)
}

func TestEntryPackage(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"":          ".",
		".":         ".",
		"cmd/api":   "./cmd/api",
		"./cmd/api": "./cmd/api",
		"/abs/api":  "/abs/api",
	}
	for entry, want := range cases {
		cfg := config.Default()
		cfg.Entry = entry
		require.Equal(t, want, entryPackage(cfg), entry)
	}
}

func TestAppRunner(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Port = 7000

	r := appRunner("proj", cfg, config.EnvDevelopment, 0)
	require.Equal(t, "proj", r.dir)
	require.Equal(t, "development", r.env["TREESERVE_ENV"])
	require.Equal(t, "7000", r.env["TREESERVE_PORT"])

	r = appRunner("proj", cfg, config.EnvProduction, 9090)
	require.Equal(t, "production", r.env["TREESERVE_ENV"])
	require.Equal(t, "9090", r.env["TREESERVE_PORT"])

	r = appRunner("proj", config.Default(), config.EnvProduction, 0)
	_, ok := r.env["TREESERVE_PORT"]
	require.False(t, ok)
}

func TestRunnerRun(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("requires sh")
	}

	t.Run("exit code and environment", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		r := newRunner(t.TempDir())
		r.stdout = &out
		r.env["TREESERVE_ENV"] = "development"

		code, err := r.run(context.Background(), "sh", "-c", `echo "$TREESERVE_ENV"; exit 4`)
		require.NoError(t, err)
		require.Equal(t, 4, code)
		require.Equal(t, "development", strings.TrimSpace(out.String()))
	})

	t.Run("missing binary", func(t *testing.T) {
		t.Parallel()

		_, err := newRunner(t.TempDir()).run(context.Background(), "treeserve-no-such-binary")
		require.Error(t, err)
	})
}

func TestExecute(t *testing.T) {
	t.Parallel()

	t.Run("version", func(t *testing.T) {
		t.Parallel()

		cmd := newRootCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"version", "--short"})
		require.Equal(t, 0, execute(cmd))
		require.Equal(t, version+"\n", out.String())
	})

	t.Run("unsupported routes format", func(t *testing.T) {
		t.Parallel()

		cmd := newRootCmd()
		cmd.SetArgs([]string{"routes", "--format", "xml"})
		require.Equal(t, 1, execute(cmd))
	})

	t.Run("child exit code is forwarded", func(t *testing.T) {
		t.Parallel()

		cmd := newRootCmd()
		cmd.RunE = func(*cobra.Command, []string) error {
			return &childExitError{name: "application", code: 7}
		}
		cmd.SetArgs([]string{})
		require.Equal(t, 7, execute(cmd))
	})
}

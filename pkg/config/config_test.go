package config_test

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/treeserve/pkg/config"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoad(t *testing.T) {
	t.Run("defaults without file", func(t *testing.T) {
		cfg, err := config.Load(t.TempDir())
		require.NoError(t, err)
		require.Equal(t, "src", cfg.SourceRoot)
		require.Equal(t, ".", cfg.Entry)
		require.Equal(t, "route", cfg.RouteFileBase)
		require.Equal(t, "app", cfg.RoutesDir)
		require.Equal(t, filepath.Join("src", "app"), cfg.RoutesRoot())
		require.False(t, cfg.IsDevelopment())
	})

	t.Run("yaml file", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "treeserve.yaml", `
sourceRoot: backend
routeFileBase: handler
port: 8080
env: Development
sentry:
  dsn: ""
`)
		cfg, err := config.Load(dir)
		require.NoError(t, err)
		require.Equal(t, "backend", cfg.SourceRoot)
		require.Equal(t, "handler", cfg.RouteFileBase)
		require.Equal(t, "app", cfg.RoutesDir)
		require.Equal(t, 8080, cfg.Port)
		require.True(t, cfg.IsDevelopment())
		require.Equal(t, "development", cfg.Sentry.Environment)
	})

	t.Run("json file", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "treeserve.json", `{"entry": "./cmd/api", "logLevel": "debug"}`)
		cfg, err := config.Load(dir)
		require.NoError(t, err)
		require.Equal(t, "./cmd/api", cfg.Entry)
		require.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "treeserve.toml", "port = 7000\nenv = \"production\"\n")
		t.Setenv("TREESERVE_PORT", "6969")
		t.Setenv("TREESERVE_ENV", "development")
		t.Setenv("TREESERVE_SENTRY_DSN", "https://key@example.invalid/1")

		cfg, err := config.Load(dir)
		require.NoError(t, err)
		require.Equal(t, 6969, cfg.Port)
		require.True(t, cfg.IsDevelopment())
		require.Equal(t, "https://key@example.invalid/1", cfg.Sentry.DSN)
	})

	t.Run("malformed file", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "treeserve.yaml", "port: [1, 2\n")
		cfg, err := config.Load(dir)
		require.Error(t, err)
		require.Equal(t, config.Default(), cfg)
	})
}

func TestLoadOrDefault(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "treeserve.yaml", "port: [1, 2\n")

	var buf bytes.Buffer
	cfg := config.LoadOrDefault(dir, slog.New(slog.NewTextHandler(&buf, nil)))
	require.Equal(t, config.Default(), cfg)
	require.Contains(t, buf.String(), "using default configuration")

	require.Equal(t, config.Default(), config.LoadOrDefault(dir, nil))
}

func TestConfigLogger(t *testing.T) {
	cfg := config.Default()
	cfg.LogLevel = "warn"
	log := cfg.Logger()
	require.NotNil(t, log)
	require.False(t, log.Enabled(t.Context(), slog.LevelInfo))
	require.True(t, log.Enabled(t.Context(), slog.LevelWarn))
}

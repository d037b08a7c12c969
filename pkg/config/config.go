// Package config loads the project configuration shared by the treeserve CLI
// and applications: an optional treeserve.{yaml,json,toml} file in the project
// directory, overridden by TREESERVE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/dmitrymomot/treeserve/pkg/logger"
)

// FileName is the base name of the project config file, without extension.
const FileName = "treeserve"

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "TREESERVE"

// Environments.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config is the project configuration.
type Config struct {
	// SourceRoot is the directory holding the application sources.
	SourceRoot string `mapstructure:"sourceRoot" yaml:"sourceRoot" json:"sourceRoot"`
	// Entry is the package run by `treeserve dev` and `treeserve start`, relative to the project directory.
	Entry string `mapstructure:"entry" yaml:"entry" json:"entry"`
	// RouteFileBase is the file name, without extension, marking a route directory.
	RouteFileBase string `mapstructure:"routeFileBase" yaml:"routeFileBase" json:"routeFileBase"`
	// RoutesDir is the file routing root inside SourceRoot.
	RoutesDir string `mapstructure:"routesDir" yaml:"routesDir" json:"routesDir"`
	// Port overrides the App node's port when non-zero.
	Port int `mapstructure:"port" yaml:"port" json:"port"`
	// Env is "development" or "production".
	Env       string `mapstructure:"env" yaml:"env" json:"env"`
	LogLevel  string `mapstructure:"logLevel" yaml:"logLevel" json:"logLevel"`
	LogFormat string `mapstructure:"logFormat" yaml:"logFormat" json:"logFormat"`

	Sentry logger.SentryConfig `mapstructure:"sentry" yaml:"sentry" json:"sentry"`
}

// Default returns the configuration used when nothing is configured.
func Default() Config {
	return Config{
		SourceRoot:    "src",
		Entry:         ".",
		RouteFileBase: "route",
		RoutesDir:     "app",
		Env:           EnvProduction,
		LogLevel:      "info",
		LogFormat:     string(logger.FormatJSON),
	}
}

// Load reads the configuration for the project in dir.
// A missing config file is not an error; environment variables and defaults still apply.
func Load(dir string) (Config, error) {
	v := newViper(dir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Default(), fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Default(), fmt.Errorf("decode config: %w", err)
	}
	cfg.Env = strings.ToLower(strings.TrimSpace(cfg.Env))
	if cfg.Sentry.Environment == "" {
		cfg.Sentry.Environment = cfg.Env
	}
	return cfg, nil
}

// LoadOrDefault is Load that logs failures as a warning and falls back to defaults.
func LoadOrDefault(dir string, log *slog.Logger) Config {
	cfg, err := Load(dir)
	if err != nil {
		if log == nil {
			log = logger.NewNope()
		}
		log.Warn("using default configuration", slog.String("dir", dir), slog.Any("error", err))
	}
	return cfg
}

func newViper(dir string) *viper.Viper {
	v := viper.New()
	v.SetConfigName(FileName)
	v.AddConfigPath(dir)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := Default()
	v.SetDefault("sourceRoot", d.SourceRoot)
	v.SetDefault("entry", d.Entry)
	v.SetDefault("routeFileBase", d.RouteFileBase)
	v.SetDefault("routesDir", d.RoutesDir)
	v.SetDefault("port", d.Port)
	v.SetDefault("env", d.Env)
	v.SetDefault("logLevel", d.LogLevel)
	v.SetDefault("logFormat", d.LogFormat)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "")
	return v
}

// IsDevelopment reports whether Env selects development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// RoutesRoot returns the file routing root relative to the project directory.
func (c Config) RoutesRoot() string {
	return filepath.Join(c.SourceRoot, c.RoutesDir)
}

// Logger builds the process logger from LogLevel, LogFormat and Sentry.
func (c Config) Logger(extractors ...logger.ContextExtractor) *slog.Logger {
	level := logger.ParseLevel(c.LogLevel)
	sentryCfg := c.Sentry
	sentryCfg.MinLevel = level
	return logger.NewWithSentry(sentryCfg, logger.Options{
		Level:  level,
		Format: logger.Format(strings.ToLower(c.LogFormat)),
	}, extractors...)
}

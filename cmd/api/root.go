package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"helpcenter/api/internal/config"
	"helpcenter/api/internal/theme"
)

var (
	configPath  string
	catalogPath string
)

var rootCmd = &cobra.Command{
	Use:   "helpcenter-api",
	Short: "Help-center console API",
	Long: `Runs and maintains the help-center console API: tenant accounts,
theme customization, articles, pages and customer messages.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file (environment variables take precedence)")
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "Path to a theme catalog YAML file (defaults to the built-in catalog)")
}

// loadConfig reads configuration and installs the process-wide logger.
func loadConfig() (config.Config, *slog.Logger, error) {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("error loading config: %w", err)
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func newLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// loadRegistry returns the built-in catalog unless --catalog names a file.
func loadRegistry() (*theme.Registry, error) {
	if catalogPath == "" {
		return theme.DefaultRegistry(), nil
	}
	data, err := os.ReadFile(catalogPath)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	reg, err := theme.LoadRegistry(data, theme.DefaultIcons())
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", catalogPath, err)
	}
	return reg, nil
}

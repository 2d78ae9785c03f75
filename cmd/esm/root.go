package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/khaller93/es-middleware-sub003/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPaths []string
	LogLevel    string
	LogFormat   string
}

// NewRootCommand creates the root command of the esm CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Keep derived graph representations consistent with a primary triple store",
		Long: `esm keeps a property graph, a full-text index and analytic caches
consistent with a primary RDF triple store, and reports the status of every
representation.

Configuration layers are merged in the order given with --config; ESM_*
environment variables override them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringArrayVarP(&opts.ConfigPaths, "config", "c",
		envList("ESM_CONFIG"), "configuration file, JSON or YAML, repeatable (env: ESM_CONFIG)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "",
		"log level: debug, info, warn, error (overrides log.level)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "",
		"log format: json, text (overrides log.format)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

func envList(key string) []string {
	if v := os.Getenv(key); v != "" {
		return []string{v}
	}
	return nil
}

// load resolves the configuration from the layers and the environment.
func (o *RootOptions) load(validate bool) (*config.Config, error) {
	loader := config.NewLoader()
	for _, path := range o.ConfigPaths {
		loader.AddLayer(path)
	}
	loader.EnableValidation(validate)
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		cfg.Log.Format = o.LogFormat
	}
	return cfg, nil
}

func (o *RootOptions) logger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	logger := setupLogger(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)
	return logger
}

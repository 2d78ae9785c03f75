package main

import (
	"github.com/spf13/cobra"

	"github.com/khaller93/es-middleware-sub003/service"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Boot every representation and serve the HTTP status surface",
		Long: `Boot the primary store and the derived representations, keep them
synchronized and serve /health, /status, /metrics, /triples, /sync,
/graph/vertex and /search until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := rootOpts.load(true)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.HTTP.Addr = addr
			}
			logger := rootOpts.logger(cmd, cfg)

			rt, err := service.New(cfg, service.WithLogger(logger))
			if err != nil {
				return err
			}
			logger.Info("Starting esm", "addr", cfg.HTTP.Addr, "strategy", cfg.Sync.Strategy)
			if err := rt.Run(cmd.Context()); err != nil {
				return err
			}
			logger.Info("esm shutdown complete")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (overrides http.addr)")
	return cmd
}

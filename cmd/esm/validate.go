package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var show bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := rootOpts.load(true)
			if err != nil {
				return err
			}
			if show {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), cfg.String())
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "configuration valid (strategy %s, primary %s, cache %s)\n",
				cfg.Sync.Strategy, cfg.Primary.Backend, cfg.Cache.Backend)
			return err
		},
	}

	cmd.Flags().BoolVar(&show, "show", false, "print the resolved configuration")
	return cmd
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize funnel storage",
		Long: "Create the configuration and data directories, write a default config.yaml\n" +
			"and seed an empty store from the configured fixtures.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.openStore(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Funnel initialized (%s store in %s)\n", a.cfg.Backend, a.cfg.DataDir)
			return nil
		},
	}
}

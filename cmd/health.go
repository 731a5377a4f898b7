package cmd

import (
	"errors"
	"fmt"

	"tracksync/client"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the tracker API is reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := client.New(cfg.APIBaseURL, cfg.HTTPTimeout)
		if !c.HealthCheck(cmd.Context()) {
			return errors.New("tracker API at " + c.BaseURL() + " is not healthy")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: OK\n", c.BaseURL())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

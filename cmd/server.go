package cmd

import (
	"tracksync/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the tracker API",
	Long: `Serve the tracker REST API and its change feed.

Storage is SQLite by default (SQLITE_PATH) or MySQL with DB_TYPE=mysql.
Set REDIS_ENABLED=true to cache the tracker list in Redis.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.Start(cfg)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

package cmd

import (
	"fmt"

	"tracksync/cache"
	"tracksync/db"
	"tracksync/logger"

	"github.com/spf13/cobra"
)

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Check the Redis connection used by the list cache",
	Long:  `Connect to Redis with the server configuration, then write, read and delete a probe key.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Redis: %s, DB %d\n", cfg.RedisAddr(), cfg.RedisDB)

		rdb, err := db.ConnectRedis(cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := db.CloseRedis(); err != nil {
				logger.Warn("failed to close Redis connection", logger.ErrorField(err))
			}
		}()
		fmt.Fprintln(out, "Connected.")

		if err := db.ProbeRedis(cmd.Context(), rdb); err != nil {
			return err
		}
		fmt.Fprintln(out, "Read/write probe succeeded.")

		// the server cache would use this TTL
		fmt.Fprintf(out, "Tracker list cache TTL: %s\n", cache.NewTrackerCache(rdb, cfg.CacheTTL).TTL())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
}

package cmd

import (
	"fmt"

	"tracksync/client"
	"tracksync/logger"
	"tracksync/model"
	"tracksync/store"

	"github.com/spf13/cobra"
)

var trackWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow changes made by any client",
	Long: `Load the current tracks, then print every change pushed by the tracker API
until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runTrackWatch,
}

func runTrackWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	c := client.New(cfg.APIBaseURL, cfg.HTTPTimeout)
	s := store.New(c)

	if err := s.Refresh(ctx); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Watching %d tracks on %s (Ctrl-C to stop)\n", len(s.Tracks()), c.BaseURL())

	cancel := s.Subscribe(func(snap store.Snapshot) {
		logger.Debug("track cache changed", logger.Int("count", len(snap.Tracks)))
	})
	defer cancel()

	return c.Watch(ctx, func(ev model.ChangeEvent) {
		s.ApplyChange(ev)
		fmt.Fprintln(out, describeChange(s, ev))
	})
}

func describeChange(s *store.Store, ev model.ChangeEvent) string {
	if ev.Type == model.ChangeDeleted {
		return fmt.Sprintf("deleted  #%d", ev.ID)
	}
	track, ok := s.Get(ev.ID)
	if !ok {
		return fmt.Sprintf("%-8s #%d", ev.Type, ev.ID)
	}
	return fmt.Sprintf("%-8s #%d %s [%s/%s]", ev.Type, track.ID, track.Title, track.Status, track.Priority)
}

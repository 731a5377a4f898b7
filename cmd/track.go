package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"tracksync/client"
	"tracksync/model"
	"tracksync/store"

	"github.com/spf13/cobra"
)

var (
	trackJSON bool

	listStatus   string
	listPriority string

	trackTitle       string
	trackDescription string
	trackStatus      string
	trackPriority    string
	trackTags        []string
	trackStart       string
	trackEnd         string
)

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "List, create, edit and remove tracks",
}

var trackListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every track",
	Args:  cobra.NoArgs,
	RunE:  runTrackList,
}

var trackShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one track",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrackShow,
}

var trackAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a track",
	Long: `Create a track on the tracker API.

Examples:
  tracksync track add --title "Write report" --description "Q3 numbers" --priority high --tags work,urgent
  tracksync track add --title "Gym" --description "legs" --start 2025-06-01T18:00:00+02:00`,
	Args: cobra.NoArgs,
	RunE: runTrackAdd,
}

var trackEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change fields of a track",
	Long: `Change the given fields of a track. Fields that are not passed keep their value.

Examples:
  tracksync track edit 12 --status completed --end now
  tracksync track edit 12 --tags ""`,
	Args: cobra.ExactArgs(1),
	RunE: runTrackEdit,
}

var trackRmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete a track",
	Args:    cobra.ExactArgs(1),
	RunE:    runTrackRm,
}

var trackSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find tracks by title, description or tag",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrackSearch,
}

func init() {
	trackCmd.PersistentFlags().BoolVar(&trackJSON, "json", false, "output as JSON")

	trackListCmd.Flags().StringVar(&listStatus, "status", "", "only tracks with this status")
	trackListCmd.Flags().StringVar(&listPriority, "priority", "", "only tracks with this priority")

	for _, c := range []*cobra.Command{trackAddCmd, trackEditCmd} {
		c.Flags().StringVar(&trackTitle, "title", "", "title")
		c.Flags().StringVar(&trackDescription, "description", "", "description")
		c.Flags().StringVar(&trackStatus, "status", string(model.StatusPending), "pending, in-progress or completed")
		c.Flags().StringVar(&trackPriority, "priority", string(model.PriorityMedium), "low, medium or high")
		c.Flags().StringSliceVar(&trackTags, "tags", nil, "comma-separated tags")
		c.Flags().StringVar(&trackStart, "start", "", `start time (RFC 3339, YYYY-MM-DD or "now")`)
		c.Flags().StringVar(&trackEnd, "end", "", `end time (RFC 3339, YYYY-MM-DD or "now")`)
	}

	trackCmd.AddCommand(trackListCmd, trackShowCmd, trackAddCmd, trackEditCmd, trackRmCmd, trackSearchCmd, trackWatchCmd)
	rootCmd.AddCommand(trackCmd)
}

func newStore() *store.Store {
	return store.New(client.New(cfg.APIBaseURL, cfg.HTTPTimeout))
}

func runTrackList(cmd *cobra.Command, args []string) error {
	s := newStore()
	if err := s.Refresh(cmd.Context()); err != nil {
		return err
	}

	tracks := s.Tracks()
	filtered := tracks[:0]
	for _, t := range tracks {
		if listStatus != "" && string(t.Status) != listStatus {
			continue
		}
		if listPriority != "" && string(t.Priority) != listPriority {
			continue
		}
		filtered = append(filtered, t)
	}
	return printTracks(cmd.OutOrStdout(), filtered)
}

func runTrackShow(cmd *cobra.Command, args []string) error {
	id, err := parseTrackID(args[0])
	if err != nil {
		return err
	}

	s := newStore()
	if err := s.Refresh(cmd.Context()); err != nil {
		return err
	}
	track, ok := s.Get(id)
	if !ok {
		return &store.NotFoundError{ID: id}
	}
	if trackJSON {
		return writeJSON(cmd.OutOrStdout(), track)
	}
	printTrack(cmd.OutOrStdout(), track)
	return nil
}

func runTrackAdd(cmd *cobra.Command, args []string) error {
	draft, err := draftFromFlags(time.Now())
	if err != nil {
		return err
	}
	if err := store.ValidateDraft(draft); err != nil {
		return err
	}

	track, err := newStore().Create(cmd.Context(), draft)
	if err != nil {
		return err
	}
	if trackJSON {
		return writeJSON(cmd.OutOrStdout(), track)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created track %d\n", track.ID)
	return nil
}

func runTrackEdit(cmd *cobra.Command, args []string) error {
	id, err := parseTrackID(args[0])
	if err != nil {
		return err
	}
	patch, err := patchFromFlags(cmd, time.Now())
	if err != nil {
		return err
	}
	if err := store.ValidatePatch(patch); err != nil {
		return err
	}

	// Update merges onto the cached record, so the cache is filled first
	s := newStore()
	if err := s.Refresh(cmd.Context()); err != nil {
		return err
	}
	track, err := s.Update(cmd.Context(), id, patch)
	if err != nil {
		return err
	}
	if trackJSON {
		return writeJSON(cmd.OutOrStdout(), track)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated track %d\n", track.ID)
	return nil
}

func runTrackRm(cmd *cobra.Command, args []string) error {
	id, err := parseTrackID(args[0])
	if err != nil {
		return err
	}
	if err := newStore().Delete(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted track %d\n", id)
	return nil
}

func runTrackSearch(cmd *cobra.Command, args []string) error {
	s := newStore()
	if err := s.Refresh(cmd.Context()); err != nil {
		return err
	}
	return printTracks(cmd.OutOrStdout(), s.Search(args[0]))
}

func draftFromFlags(now time.Time) (model.TrackDraft, error) {
	draft := model.TrackDraft{
		Title:       strings.TrimSpace(trackTitle),
		Description: strings.TrimSpace(trackDescription),
		Status:      model.Status(trackStatus),
		Priority:    model.Priority(trackPriority),
		Tags:        cleanTags(trackTags),
		StartTime:   now.UTC(),
	}
	if trackStart != "" {
		start, err := parseTimeFlag(trackStart, now)
		if err != nil {
			return draft, fmt.Errorf("--start: %w", err)
		}
		draft.StartTime = start
	}
	if trackEnd != "" {
		end, err := parseTimeFlag(trackEnd, now)
		if err != nil {
			return draft, fmt.Errorf("--end: %w", err)
		}
		draft.EndTime = &end
	}
	return draft, nil
}

// patchFromFlags sets only the fields whose flags were passed.
func patchFromFlags(cmd *cobra.Command, now time.Time) (model.TrackPatch, error) {
	var patch model.TrackPatch
	flags := cmd.Flags()

	if flags.Changed("title") {
		title := strings.TrimSpace(trackTitle)
		patch.Title = &title
	}
	if flags.Changed("description") {
		desc := strings.TrimSpace(trackDescription)
		patch.Description = &desc
	}
	if flags.Changed("status") {
		status := model.Status(trackStatus)
		patch.Status = &status
	}
	if flags.Changed("priority") {
		priority := model.Priority(trackPriority)
		patch.Priority = &priority
	}
	if flags.Changed("tags") {
		tags := cleanTags(trackTags)
		patch.Tags = &tags
	}
	if flags.Changed("start") {
		start, err := parseTimeFlag(trackStart, now)
		if err != nil {
			return patch, fmt.Errorf("--start: %w", err)
		}
		patch.StartTime = &start
	}
	if flags.Changed("end") {
		end, err := parseTimeFlag(trackEnd, now)
		if err != nil {
			return patch, fmt.Errorf("--end: %w", err)
		}
		patch.EndTime = &end
	}
	return patch, nil
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

func parseTimeFlag(value string, now time.Time) (time.Time, error) {
	if strings.EqualFold(value, "now") {
		return now.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.ParseInLocation("2006-01-02", value, time.Local); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as a time", value)
}

func parseTrackID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid track id %q", raw)
	}
	return id, nil
}

func printTracks(w io.Writer, tracks []model.Track) error {
	if trackJSON {
		return writeJSON(w, tracks)
	}
	if len(tracks) == 0 {
		fmt.Fprintln(w, "No tracks.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tPRIORITY\tTITLE\tTAGS\tSTART")
	for _, t := range tracks {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.Status, t.Priority, t.Title, strings.Join(t.Tags, ","), formatTime(t.StartTime))
	}
	return tw.Flush()
}

func printTrack(w io.Writer, t model.Track) {
	end := "-"
	if t.EndTime != nil {
		end = formatTime(*t.EndTime)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%d\n", t.ID)
	fmt.Fprintf(tw, "Title:\t%s\n", t.Title)
	fmt.Fprintf(tw, "Description:\t%s\n", t.Description)
	fmt.Fprintf(tw, "Status:\t%s\n", t.Status)
	fmt.Fprintf(tw, "Priority:\t%s\n", t.Priority)
	fmt.Fprintf(tw, "Tags:\t%s\n", strings.Join(t.Tags, ", "))
	fmt.Fprintf(tw, "Start:\t%s\n", formatTime(t.StartTime))
	fmt.Fprintf(tw, "End:\t%s\n", end)
	fmt.Fprintf(tw, "Created:\t%s\n", formatTime(t.CreatedAt))
	fmt.Fprintf(tw, "Updated:\t%s\n", formatTime(t.UpdatedAt))
	tw.Flush()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

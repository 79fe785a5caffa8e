package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jfmyers9/playwait/internal/journal"
	"github.com/spf13/cobra"
)

// eventsCmd represents the events command
var eventsCmd = &cobra.Command{
	Use:   "events <session-id>",
	Short: "Show the steps and player events of a session",
	Long: `Show the steps a recorded scenario run executed, followed by every
player event emitted during it in emission order, with the media position
at the time of each event.`,
	Args: cobra.ExactArgs(1),
	RunE: runEvents,
}

func init() {
	rootCmd.AddCommand(eventsCmd)
}

func runEvents(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid session id %q: %w", args[0], err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	j, cfg, err := openJournal()
	if err != nil {
		return err
	}
	defer func() { _ = j.Close() }()

	steps, err := j.Steps(ctx, id)
	if err != nil {
		return err
	}
	events, err := j.Events(ctx, id)
	if err != nil {
		return err
	}

	return printSession(cmd.OutOrStdout(), steps, events, cfg.OutputWidth)
}

// printSession writes the step table and the event table of a session
func printSession(w io.Writer, steps []journal.StepRecord, events []journal.EventRecord, width int) error {
	if len(steps) == 0 && len(events) == 0 {
		_, err := fmt.Fprintln(w, "No steps or events recorded")
		return err
	}

	stepRows := make([][]string, 0, len(steps))
	for _, s := range steps {
		status := "ok"
		if s.Error != "" {
			status = "FAIL"
		}
		stepRows = append(stepRows, []string{
			strconv.Itoa(s.Index),
			s.Op,
			status,
			formatMillis(s.Elapsed),
			s.Error,
		})
	}
	if err := writeTable(w, []string{"#", "OP", "STATUS", "ELAPSED", "DETAIL"}, stepRows, width); err != nil {
		return err
	}

	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}

	var start time.Time
	if len(events) > 0 {
		start = events[0].Timestamp
	}
	eventRows := make([][]string, 0, len(events))
	for _, e := range events {
		eventRows = append(eventRows, []string{
			"+" + formatMillis(e.Timestamp.Sub(start)),
			formatMillis(e.MediaTime),
			e.Event,
		})
	}
	return writeTable(w, []string{"AT", "MEDIA", "EVENT"}, eventRows, width)
}

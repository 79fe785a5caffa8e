/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>

*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jfmyers9/playwait/internal/config"
	"github.com/jfmyers9/playwait/internal/journal"
	"github.com/spf13/cobra"
)

var historyLimit int

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded scenario sessions",
	Long: `List the scenario runs recorded in the journal, most recent first.

Use 'playwait events <session-id>' to see what happened during a run.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum sessions to list (0 = all)")
}

// openJournal opens the configured journal for reading
func openJournal() (*journal.Journal, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if _, err := os.Stat(cfg.JournalPath); err != nil {
		return nil, nil, fmt.Errorf("no journal at %s: %w", cfg.JournalPath, err)
	}

	j, err := journal.Open(cfg.JournalPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return j, cfg, nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	j, cfg, err := openJournal()
	if err != nil {
		return err
	}
	defer func() { _ = j.Close() }()

	sessions, err := j.Sessions(ctx, historyLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(sessions) == 0 {
		fmt.Fprintln(out, "No sessions recorded")
		return nil
	}

	return writeTable(out, []string{"ID", "STARTED", "RESULT", "NAME"}, sessionRows(sessions), cfg.OutputWidth)
}

// sessionRows formats sessions for writeTable
func sessionRows(sessions []journal.Session) [][]string {
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, []string{
			fmt.Sprintf("%d", s.ID),
			s.StartedAt.Format(time.DateTime),
			sessionResult(s),
			s.Name,
		})
	}
	return rows
}

// sessionResult summarizes a session outcome in one word
func sessionResult(s journal.Session) string {
	switch {
	case s.FinishedAt.IsZero():
		return "running"
	case s.Passed():
		return "passed"
	default:
		return "failed"
	}
}

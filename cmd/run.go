package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jfmyers9/playwait/internal/config"
	"github.com/jfmyers9/playwait/internal/scenario"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var runNoJournal bool

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <scenario.yaml>",
	Short: "Run a scenario against the simulated player",
	Long: `Run the steps of a scenario file in order against a freshly created
simulated player, waiting for each operation's future before checking the
step's expectations.

The run stops at the first failing step and exits non-zero. Every player
event and step outcome is recorded in the journal unless --no-journal is
given.

Example scenario:

  name: smoke
  media:
    - src: a.mp4
      duration: 2s
  steps:
    - op: waitForReady
    - op: setSource
      src: a.mp4
      expect: {source: a.mp4}
    - op: seekToEnd
      expect: {ended: true}`,
	Args: cobra.ExactArgs(1),
	RunE: runScenario,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runNoJournal, "no-journal", false, "Do not record the run in the journal")
}

// commandLogger builds the logger from flags, falling back to config
func commandLogger(cfg *config.Config) zerolog.Logger {
	level := logLevel
	if level == "" {
		level = cfg.LogLevel
	}
	return setupLogger(logFile, level)
}

func runScenario(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := commandLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openSession(ctx, cfg, args[0], runNoJournal, logger)
	if err != nil {
		return err
	}
	defer s.close()

	results, runErr := s.runner().Run(ctx, s.scenario)
	s.finish(runErr)

	if err := printResults(cmd.OutOrStdout(), results, len(s.scenario.Steps), cfg.OutputWidth); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	if s.journal != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "session %d\n", s.sessionID)
	}

	if runErr != nil {
		return fmt.Errorf("scenario %s failed: %w", s.scenario.Name, runErr)
	}
	return nil
}

// printResults writes one row per executed step and a summary line
func printResults(w io.Writer, results []scenario.StepResult, total int, width int) error {
	rows := make([][]string, 0, len(results))
	passed := 0
	for _, r := range results {
		status := "ok"
		detail := ""
		if r.Passed() {
			passed++
		} else {
			status = "FAIL"
			detail = r.Err.Error()
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", r.Index),
			string(r.Op),
			status,
			formatMillis(r.Elapsed),
			detail,
		})
	}

	if err := writeTable(w, []string{"#", "OP", "STATUS", "ELAPSED", "DETAIL"}, rows, width); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "%d/%d steps passed\n", passed, total)
	return err
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jfmyers9/playwait/internal/config"
	"github.com/jfmyers9/playwait/internal/tui"
	"github.com/spf13/cobra"
)

var watchNoJournal bool

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch <scenario.yaml>",
	Short: "Run a scenario and watch the player in a terminal UI",
	Long: `Run a scenario like 'playwait run' while showing the simulated player in
a terminal UI:
- Source, poster, volume and play state
- Progress bar showing the playback position
- Step results as the scenario advances
- The most recent player events

The UI stays open after the scenario finishes.
Press space to toggle play/pause through the test helpers and 'q' to quit.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().BoolVar(&watchNoJournal, "no-journal", false, "Do not record the run in the journal")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// The terminal belongs to the UI: log to a file or not at all
	logger := commandLogger(cfg)
	if logFile == "" {
		logger = setupLogger("", "disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openSession(ctx, cfg, args[0], watchNoJournal, logger)
	if err != nil {
		return err
	}
	defer s.close()

	app := tui.NewWithConfig(tui.Config{
		RefreshRate: cfg.RefreshRate,
		Title:       s.scenario.Name,
	})
	app.SetHelpers(s.helpers)
	app.SetTotalSteps(len(s.scenario.Steps))
	unwatch := app.Watch(s.player, s.player.CurrentTime)
	defer unwatch()

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	runDone := make(chan error, 1)
	go func() {
		_, runErr := s.runner(app).Run(runCtx, s.scenario)
		s.finish(runErr)
		app.Finish(runErr)
		runDone <- runErr
	}()

	if err := app.Run(ctx, s.player.Snapshot); err != nil {
		return err
	}

	// Quitting early abandons the remaining steps
	cancelRun()
	if runErr := <-runDone; runErr != nil {
		return fmt.Errorf("scenario %s failed: %w", s.scenario.Name, runErr)
	}
	return nil
}

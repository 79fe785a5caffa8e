package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/jfmyers9/playwait/internal/config"
	"github.com/jfmyers9/playwait/internal/journal"
	"github.com/jfmyers9/playwait/internal/scenario"
	"github.com/jfmyers9/playwait/internal/simplayer"
	"github.com/jfmyers9/playwait/pkg/playwait"
	"github.com/rs/zerolog"
)

// journalRetention is how long finished sessions are kept
const journalRetention = 30 * 24 * time.Hour

// session wires one scenario run: the simulated player, the adapter
// attached to it and, unless disabled, the journal recording both
type session struct {
	cfg      *config.Config
	logger   zerolog.Logger
	scenario *scenario.Scenario
	player   *simplayer.Player
	helpers  *playwait.Helpers

	journal   *journal.Journal
	recorder  *journal.Recorder
	sessionID int64
}

// openSession loads the scenario at path and builds everything needed
// to run it
func openSession(ctx context.Context, cfg *config.Config, path string, noJournal bool, logger zerolog.Logger) (*session, error) {
	sc, err := scenario.Load(path)
	if err != nil {
		return nil, err
	}
	if sc.Name == "" {
		sc.Name = filepath.Base(path)
	}

	player := simplayer.New(simplayer.Config{
		Clock:           clock.New(),
		Logger:          logger,
		TickInterval:    cfg.Player.TickInterval,
		ReadyDelay:      cfg.Player.ReadyDelay,
		LoadDelay:       cfg.Player.LoadDelay,
		DefaultDuration: cfg.Player.DefaultDuration,
		Catalog:         sc.Catalog(),
		Autoplay:        cfg.Player.Autoplay,
	})

	s := &session{
		cfg:      cfg,
		logger:   logger,
		scenario: sc,
		player:   player,
		helpers: playwait.Attach(player, playwait.Options{
			Logger:        logger,
			SeekEndOffset: cfg.SeekEndOffset,
		}),
	}

	if noJournal {
		return s, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.JournalPath), 0755); err != nil {
		s.close()
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	j, err := journal.Open(cfg.JournalPath)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	s.journal = j

	id, err := j.StartSession(ctx, sc.Name)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	s.sessionID = id
	s.recorder = journal.Attach(j, id, player, logger)

	logger.Debug().
		Int64("session", id).
		Str("journal", cfg.JournalPath).
		Msg("Recording session")

	return s, nil
}

// runner builds a scenario runner reporting to the journal and extra
func (s *session) runner(extra ...scenario.StepSink) *scenario.Runner {
	sinks := scenario.Sinks{s.stepSink()}
	sinks = append(sinks, extra...)

	return scenario.NewRunner(s.helpers, scenario.Config{
		StepTimeout: s.cfg.StepTimeout,
		Sink:        sinks,
	}, s.logger)
}

// stepSink writes step results to the journal. Nil without a journal.
func (s *session) stepSink() scenario.StepSink {
	if s.journal == nil {
		return nil
	}

	return scenario.SinkFunc(func(ctx context.Context, r scenario.StepResult) {
		rec := journal.StepRecord{
			Index:   r.Index,
			Op:      string(r.Op),
			Elapsed: r.Elapsed,
		}
		if r.Err != nil {
			rec.Error = r.Err.Error()
		}

		// The step context may already be cancelled
		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		if err := s.journal.RecordStep(writeCtx, s.sessionID, rec); err != nil {
			s.logger.Warn().Err(err).Int("step", r.Index).Msg("Failed to record step")
		}
	})
}

// finish stops recording and stores the outcome of the run
func (s *session) finish(runErr error) {
	if s.journal == nil {
		return
	}

	s.recorder.Detach()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.journal.FinishSession(ctx, s.sessionID, runErr); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to finish session")
	}
	if n := s.recorder.Failures(); n > 0 {
		s.logger.Warn().Int("failures", n).Msg("Some events were not recorded")
	}

	// Cleanup old records
	if _, err := s.journal.Cleanup(ctx, journalRetention); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to cleanup journal")
	}
}

// close releases the adapter, the player and the journal
func (s *session) close() {
	playwait.Detach(s.player)
	s.player.Close()

	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to close journal")
		}
	}
}

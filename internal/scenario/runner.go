package scenario

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/jfmyers9/playwait/pkg/playwait"
	"github.com/rs/zerolog"
)

// DefaultStepTimeout bounds a step that sets no timeout of its own
const DefaultStepTimeout = 10 * time.Second

// StepResult is the outcome of one executed step
type StepResult struct {
	Index   int
	Op      Op
	Elapsed time.Duration
	Err     error
}

// Passed reports whether the step settled without error and met its
// expectations
func (r StepResult) Passed() bool {
	return r.Err == nil
}

// StepSink receives every step result as soon as the step completes
type StepSink interface {
	StepDone(ctx context.Context, r StepResult)
}

// SinkFunc adapts a function to StepSink
type SinkFunc func(ctx context.Context, r StepResult)

func (f SinkFunc) StepDone(ctx context.Context, r StepResult) { f(ctx, r) }

// Sinks fans a result out to several sinks in order
type Sinks []StepSink

func (s Sinks) StepDone(ctx context.Context, r StepResult) {
	for _, sink := range s {
		if sink != nil {
			sink.StepDone(ctx, r)
		}
	}
}

// Config holds runner configuration
type Config struct {
	StepTimeout time.Duration // Per-step bound when the step sets none
	Sink        StepSink      // Optional
}

// Runner executes scenarios against an adapter
type Runner struct {
	helpers *playwait.Helpers
	config  Config
	logger  zerolog.Logger
}

// NewRunner creates a runner driving h
func NewRunner(h *playwait.Helpers, cfg Config, logger zerolog.Logger) *Runner {
	if cfg.StepTimeout <= 0 {
		cfg.StepTimeout = DefaultStepTimeout
	}

	return &Runner{
		helpers: h,
		config:  cfg,
		logger:  logger.With().Str("component", "scenario").Logger(),
	}
}

// Run executes the steps of sc in order and stops at the first failing
// step. The results of every executed step are returned, including the
// failing one.
func (r *Runner) Run(ctx context.Context, sc *Scenario) ([]StepResult, error) {
	r.logger.Info().
		Str("scenario", sc.Name).
		Int("steps", len(sc.Steps)).
		Msg("Starting scenario")

	results := make([]StepResult, 0, len(sc.Steps))
	for i, step := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		start := time.Now()
		err := r.runStep(ctx, step)
		res := StepResult{
			Index:   i,
			Op:      step.Op,
			Elapsed: time.Since(start),
			Err:     err,
		}
		results = append(results, res)

		if r.config.Sink != nil {
			r.config.Sink.StepDone(ctx, res)
		}

		if err != nil {
			r.logger.Warn().
				Err(err).
				Int("step", i).
				Str("op", string(step.Op)).
				Msg("Step failed")
			return results, fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}

		r.logger.Debug().
			Int("step", i).
			Str("op", string(step.Op)).
			Dur("elapsed", res.Elapsed).
			Msg("Step passed")
	}

	r.logger.Info().Str("scenario", sc.Name).Msg("Scenario passed")
	return results, nil
}

// runStep issues the operation, waits for its future within the step
// timeout and then checks expectations
func (r *Runner) runStep(ctx context.Context, step Step) error {
	timeout := r.config.StepTimeout
	if step.Timeout > 0 {
		timeout = step.Timeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	f, err := r.issue(step)
	if err != nil {
		return err
	}

	if err := f.Wait(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("not settled within %s: %w", timeout, err)
		}
		return err
	}

	if step.Expect != nil {
		return r.check(*step.Expect)
	}
	return nil
}

// issue maps a step onto its adapter operation
func (r *Runner) issue(step Step) (*playwait.Future, error) {
	h := r.helpers

	switch step.Op {
	case OpWaitForReady:
		return h.WaitForReady(), nil
	case OpWaitForEvent:
		return h.WaitForEvent(step.Event)
	case OpWaitForPlay:
		return h.WaitForPlay(), nil
	case OpWaitForTime:
		return h.WaitForTime(*step.Time)
	case OpWaitForEnd:
		return h.WaitForEnd()
	case OpPlay:
		return h.Play(), nil
	case OpPause:
		return h.Pause(), nil
	case OpMute:
		return h.Mute(), nil
	case OpUnmute:
		return h.Unmute(), nil
	case OpSetSource:
		return h.SetSource(playwait.Source{Src: step.Src, Type: step.Type}), nil
	case OpSetVolume:
		return h.SetVolume(*step.Volume)
	case OpSetPoster:
		return h.SetPoster(*step.Poster), nil
	case OpReset:
		return h.Reset(), nil
	case OpSeekToTime:
		return h.SeekToTime(*step.Time)
	case OpSeekToEnd:
		return h.SeekToEnd(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOp, step.Op)
	}
}

// check compares player state against every set expectation and reports
// all mismatches together
func (r *Runner) check(want Expect) error {
	p := r.helpers.Player()
	var result *multierror.Error

	mismatch := func(field string, got, want any) {
		result = multierror.Append(result, fmt.Errorf("%w: %s = %v, want %v", ErrExpectation, field, got, want))
	}

	if want.Paused != nil && p.Paused() != *want.Paused {
		mismatch("paused", p.Paused(), *want.Paused)
	}
	if want.Ended != nil && p.Ended() != *want.Ended {
		mismatch("ended", p.Ended(), *want.Ended)
	}
	if want.Muted != nil && p.Muted() != *want.Muted {
		mismatch("muted", p.Muted(), *want.Muted)
	}
	if want.Volume != nil && p.Volume() != *want.Volume {
		mismatch("volume", p.Volume(), *want.Volume)
	}
	if want.Poster != nil && p.Poster() != *want.Poster {
		mismatch("poster", p.Poster(), *want.Poster)
	}
	if want.Source != nil && p.CurrentSource().Src != *want.Source {
		mismatch("source", p.CurrentSource().Src, *want.Source)
	}
	if want.MinTime != nil && p.CurrentTime() < *want.MinTime {
		mismatch("time", p.CurrentTime(), ">= "+want.MinTime.String())
	}

	if result != nil {
		result.ErrorFormat = joinErrors
	}
	return result.ErrorOrNil()
}

// joinErrors renders aggregated errors on one line
func joinErrors(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

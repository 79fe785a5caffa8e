package playwait

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Helpers wraps a Player and turns its event-driven control surface into
// operations returning futures.
//
// Helpers does not serialize calls. Overlapping operations that mutate the
// same player property race at the player, as they would without the adapter.
type Helpers struct {
	player Player
	opts   Options
	logger zerolog.Logger

	// ctx bounds goroutines started by Play and SeekToEnd
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	lifecycle lifecycleTable
	resetID   ListenerID
	disposed  bool
}

// New attaches a Helpers instance to p. Unset option fields take their
// defaults. The player is not owned: Dispose releases only the adapter's
// listeners.
func New(p Player, opts Options) *Helpers {
	opts = opts.merge()
	ctx, cancel := context.WithCancel(context.Background())

	h := &Helpers{
		player: p,
		opts:   opts,
		logger: opts.Logger.With().Str("component", "playwait").Logger(),
		ctx:    ctx,
		cancel: cancel,
	}

	h.mu.Lock()
	h.lifecycle = newLifecycleTable(p)
	h.mu.Unlock()

	h.resetID = p.On(EventPlayerReset, h.onReset)

	return h
}

// Player returns the wrapped player.
func (h *Helpers) Player() Player {
	return h.player
}

// Dispose removes the reset listener and every unfired lifecycle listener,
// and stops goroutines started by pending operations. It is idempotent.
func (h *Helpers) Dispose() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.disposed {
		return
	}
	h.disposed = true

	h.player.Off(EventPlayerReset, h.resetID)
	h.lifecycle.abandon(h.player)
	h.cancel()

	h.logger.Debug().Msg("Disposed")
}

// onReset abandons the current lifecycle table and arms a fresh one, so
// waits issued after a reset observe the next occurrence.
func (h *Helpers) onReset(Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.disposed {
		return
	}

	stale := h.lifecycle.pending()
	h.lifecycle.abandon(h.player)
	h.lifecycle = newLifecycleTable(h.player)

	h.logger.Debug().
		Int("abandoned", len(stale)).
		Msg("Player reset, lifecycle events rearmed")
}

// settleIfElseAwait resolves immediately when satisfied reports true, and
// otherwise runs mutate and waits for event. The listener is registered
// before the check so a signal emitted in between is not lost. A nil
// satisfied never holds; a nil mutate only waits.
func (h *Helpers) settleIfElseAwait(satisfied func() bool, event Event, mutate func()) *Future {
	f := newFuture()
	id := h.player.Once(event, func(Event) { f.settle(nil) })

	if satisfied != nil && satisfied() {
		h.player.Off(event, id)
		f.settle(nil)
		return f
	}

	if mutate != nil {
		mutate()
	}

	return f
}

// whenTimeReached settles on the first timeupdate at or past target and
// then removes its listener.
func (h *Helpers) whenTimeReached(target time.Duration) *Future {
	f := newFuture()

	var id atomic.Uint64
	check := func(Event) {
		if h.player.CurrentTime() >= target && f.settle(nil) {
			h.player.Off(EventTimeUpdate, ListenerID(id.Load()))
		}
	}
	id.Store(uint64(h.player.On(EventTimeUpdate, check)))

	// The handler may have fired before the id was stored.
	if f.Settled() {
		h.player.Off(EventTimeUpdate, ListenerID(id.Load()))
	}

	return f
}

// WaitForEvent returns the future of the next occurrence of a lifecycle
// event in the current reset cycle. If the event already fired this cycle,
// the returned future is settled. Concurrent callers share one future.
func (h *Helpers) WaitForEvent(e Event) (*Future, error) {
	if err := precondition("WaitForEvent", "requires a lifecycle event, got "+string(e), IsLifecycleEvent(e)); err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	return h.lifecycle[e].future, nil
}

// Play starts playback and settles once the player's Play returns. It
// settles immediately if the player is not paused. Errors from the player
// are delivered unmodified.
func (h *Helpers) Play() *Future {
	if !h.player.Paused() {
		return settled(nil)
	}

	h.logger.Debug().Msg("Play requested")

	f := newFuture()
	go func() {
		f.settle(h.player.Play(h.ctx))
	}()
	return f
}

// Pause pauses the player and waits for the pause signal.
func (h *Helpers) Pause() *Future {
	return h.settleIfElseAwait(h.player.Paused, EventPause, h.player.Pause)
}

// Mute mutes the player and waits for the volume change signal.
func (h *Helpers) Mute() *Future {
	return h.settleIfElseAwait(h.player.Muted, EventVolumeChange, func() {
		h.player.SetMuted(true)
	})
}

// Unmute unmutes the player and waits for the volume change signal.
func (h *Helpers) Unmute() *Future {
	return h.settleIfElseAwait(
		func() bool { return !h.player.Muted() },
		EventVolumeChange,
		func() { h.player.SetMuted(false) },
	)
}

// SetSource sets the media source and waits for the source set signal.
// If the player rejects the source, the future settles with its error.
func (h *Helpers) SetSource(src Source) *Future {
	h.logger.Debug().Str("src", src.Src).Msg("Setting source")

	f := newFuture()
	id := h.player.Once(EventSourceSet, func(Event) { f.settle(nil) })

	if err := h.player.SetSource(src); err != nil {
		h.player.Off(EventSourceSet, id)
		f.settle(err)
	}

	return f
}

// SetVolume sets the volume and waits for the volume change signal. The
// player does not signal when the volume is unchanged, so that case settles
// immediately. Zero is a valid volume; NaN and values outside [0, 1] are
// not, since players clamp them and the wait could never settle.
func (h *Helpers) SetVolume(volume float64) (*Future, error) {
	if err := precondition("SetVolume", "requires a volume", !math.IsNaN(volume)); err != nil {
		return nil, err
	}
	if err := precondition("SetVolume", "requires a volume between 0 and 1", volume >= 0 && volume <= 1); err != nil {
		return nil, err
	}

	return h.settleIfElseAwait(
		func() bool { return h.player.Volume() == volume },
		EventVolumeChange,
		func() { h.player.SetVolume(volume) },
	), nil
}

// SetPoster sets the poster and waits for the poster change signal. The
// empty string clears the poster.
func (h *Helpers) SetPoster(poster string) *Future {
	return h.settleIfElseAwait(nil, EventPosterChange, func() {
		h.player.SetPoster(poster)
	})
}

// Reset resets the player and waits for the reset signal. Pending
// lifecycle waits are abandoned.
func (h *Helpers) Reset() *Future {
	h.logger.Debug().Msg("Reset requested")
	return h.settleIfElseAwait(nil, EventPlayerReset, h.player.Reset)
}

// SeekToTime seeks to t and settles on the first time update at or past t.
func (h *Helpers) SeekToTime(t time.Duration) (*Future, error) {
	if err := precondition("SeekToTime", "requires a non-negative time", t >= 0); err != nil {
		return nil, err
	}

	// Listen before seeking: the seek itself emits a time update.
	f := h.whenTimeReached(t)
	h.player.SetCurrentTime(t)
	return f, nil
}

// SeekToEnd seeks just before the end of the media and waits for the ended
// signal. It starts playback if paused, so that metadata loads and the
// remaining media plays out. Settles immediately if already ended.
func (h *Helpers) SeekToEnd() *Future {
	f := newFuture()
	endedID := h.player.Once(EventEnded, func(Event) { f.settle(nil) })

	if h.player.Ended() {
		h.player.Off(EventEnded, endedID)
		f.settle(nil)
		return f
	}

	if h.player.Paused() {
		go func() {
			if err := h.player.Play(h.ctx); err != nil {
				h.logger.Debug().Err(err).Msg("SeekToEnd: play failed")
				h.player.Off(EventEnded, endedID)
				f.settle(err)
			}
		}()
	}

	// The duration is only known once metadata has loaded.
	h.mu.Lock()
	metadata := h.lifecycle[EventLoadedMetadata].future
	h.mu.Unlock()

	go func() {
		select {
		case <-metadata.Done():
		case <-f.Done():
			return
		case <-h.ctx.Done():
			return
		}

		target := h.player.Duration() - h.opts.SeekEndOffset
		if target < 0 {
			target = 0
		}
		h.logger.Debug().Dur("target", target).Msg("Seeking to end")
		h.player.SetCurrentTime(target)
	}()

	return f
}

// WaitForReady waits for the ready signal, settling immediately if the
// player is already ready.
func (h *Helpers) WaitForReady() *Future {
	return h.settleIfElseAwait(h.player.IsReady, EventReady, nil)
}

// WaitForTime waits until playback reaches t. The player must be playing.
func (h *Helpers) WaitForTime(t time.Duration) (*Future, error) {
	if err := precondition("WaitForTime", "requires a non-negative time", t >= 0); err != nil {
		return nil, err
	}
	if err := precondition("WaitForTime", "requires the player to be playing", !h.player.Paused()); err != nil {
		return nil, err
	}

	return h.whenTimeReached(t), nil
}

// WaitForEnd waits for the ended signal without starting playback. The
// player must be playing or already ended; in the latter case the future is
// settled, however many times WaitForEnd is called.
func (h *Helpers) WaitForEnd() (*Future, error) {
	if err := precondition(
		"WaitForEnd",
		"requires the player to be playing or to have already ended",
		!h.player.Paused() || h.player.Ended(),
	); err != nil {
		return nil, err
	}

	return h.settleIfElseAwait(h.player.Ended, EventEnded, nil), nil
}

// WaitForPlay waits for the playing signal, settling immediately if the
// player is not paused.
func (h *Helpers) WaitForPlay() *Future {
	return h.settleIfElseAwait(func() bool { return !h.player.Paused() }, EventPlaying, nil)
}

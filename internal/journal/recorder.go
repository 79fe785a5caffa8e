package journal

import (
	"context"
	"sync"
	"time"

	"github.com/jfmyers9/playwait/pkg/playwait"
	"github.com/rs/zerolog"
)

// Observed is what a Recorder listens to: a signal source that can also
// report the media position at the time of each signal.
type Observed interface {
	playwait.Emitter
	CurrentTime() time.Duration
}

// Recorder writes every player event emitted during a session to the
// journal. Write failures are logged and never reach the player.
type Recorder struct {
	journal   *Journal
	sessionID int64
	target    Observed
	logger    zerolog.Logger

	mu        sync.Mutex
	listeners map[playwait.Event]playwait.ListenerID
	failures  int
}

// Attach subscribes to every known player event on target.
func Attach(j *Journal, sessionID int64, target Observed, logger zerolog.Logger) *Recorder {
	r := &Recorder{
		journal:   j,
		sessionID: sessionID,
		target:    target,
		logger:    logger.With().Str("component", "journal").Int64("session", sessionID).Logger(),
		listeners: make(map[playwait.Event]playwait.ListenerID, len(playwait.PlayerEvents)),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range playwait.PlayerEvents {
		r.listeners[e] = target.On(e, r.record)
	}

	return r
}

func (r *Recorder) record(e playwait.Event) {
	rec := EventRecord{
		Event:     string(e),
		MediaTime: r.target.CurrentTime(),
		Timestamp: time.Now(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.journal.RecordEvent(ctx, r.sessionID, rec); err != nil {
		r.mu.Lock()
		r.failures++
		r.mu.Unlock()
		r.logger.Warn().Err(err).Str("event", string(e)).Msg("Failed to record event")
	}
}

// Failures returns the number of events that could not be written.
func (r *Recorder) Failures() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failures
}

// Detach removes the recorder's listeners. It is idempotent.
func (r *Recorder) Detach() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for e, id := range r.listeners {
		r.target.Off(e, id)
	}
	r.listeners = map[playwait.Event]playwait.ListenerID{}
}

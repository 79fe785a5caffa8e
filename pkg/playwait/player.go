package playwait

import (
	"context"
	"time"
)

// Event is the name of a signal emitted by a player.
type Event string

// Lifecycle events fire once per media load cycle.
const (
	EventReady           Event = "ready"
	EventLoadStart       Event = "loadstart"
	EventLoadedData      Event = "loadeddata"
	EventLoadedMetadata  Event = "loadedmetadata"
	EventCanPlay         Event = "canplay"
	EventAutoplaySuccess Event = "autoplay-success"
	EventAutoplayFailure Event = "autoplay-failure"
)

// Signals the adapter waits on outside the lifecycle table.
const (
	EventPlayerReset  Event = "playerreset"
	EventPlay         Event = "play"
	EventPlaying      Event = "playing"
	EventPause        Event = "pause"
	EventEnded        Event = "ended"
	EventVolumeChange Event = "volumechange"
	EventSourceSet    Event = "sourceset"
	EventPosterChange Event = "posterchange"
	EventTimeUpdate   Event = "timeupdate"
	EventSeeking      Event = "seeking"
	EventSeeked       Event = "seeked"
)

// LifecycleEvents lists the events tracked by WaitForEvent, in load order.
var LifecycleEvents = []Event{
	EventReady,
	EventLoadStart,
	EventLoadedData,
	EventLoadedMetadata,
	EventCanPlay,
	EventAutoplaySuccess,
	EventAutoplayFailure,
}

// PlayerEvents lists every signal a player is expected to emit.
var PlayerEvents = append(append([]Event{}, LifecycleEvents...),
	EventPlayerReset,
	EventPlay,
	EventPlaying,
	EventPause,
	EventEnded,
	EventVolumeChange,
	EventSourceSet,
	EventPosterChange,
	EventTimeUpdate,
	EventSeeking,
	EventSeeked,
)

// IsLifecycleEvent reports whether e is one of LifecycleEvents.
func IsLifecycleEvent(e Event) bool {
	for _, le := range LifecycleEvents {
		if le == e {
			return true
		}
	}
	return false
}

// ListenerID identifies a registered handler so it can be removed with Off.
type ListenerID uint64

// Handler is invoked with the name of the event that fired.
type Handler func(Event)

// Emitter is the event subscription surface of a player.
type Emitter interface {
	// On registers a persistent handler.
	On(event Event, h Handler) ListenerID

	// Once registers a handler that is removed after its first call.
	Once(event Event, h Handler) ListenerID

	// Off removes a handler. Unknown ids are ignored.
	Off(event Event, id ListenerID)
}

// Source is a media source as understood by the player.
type Source struct {
	Src  string // Media URL or path; empty means no source
	Type string // Optional MIME type
}

// Player is the control surface the adapter drives.
//
// Implementations must not hold internal locks while invoking handlers:
// handlers registered by the adapter call back into the player.
type Player interface {
	Emitter

	// IsReady reports whether the ready signal has already fired
	IsReady() bool

	Paused() bool
	Ended() bool

	Muted() bool
	SetMuted(muted bool)

	Volume() float64
	SetVolume(volume float64)

	Poster() string
	SetPoster(poster string)

	CurrentTime() time.Duration
	SetCurrentTime(t time.Duration)
	Duration() time.Duration

	CurrentSource() Source
	// SetSource loads a new source, returning an error if the player rejects it
	SetSource(src Source) error

	// Play starts playback and blocks until playback has begun
	Play(ctx context.Context) error
	Pause()
	Reset()
}

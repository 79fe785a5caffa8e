package playwait

import (
	"context"
	"sync"
	"time"
)

type fakeListener struct {
	id   ListenerID
	fn   Handler
	once bool
}

// fakePlayer is a synchronous test double: mutators emit their signal on the
// calling goroutine before returning.
type fakePlayer struct {
	mu        sync.Mutex
	nextID    ListenerID
	listeners map[Event][]fakeListener
	emitted   []Event
	calls     []string

	ready       bool
	paused      bool
	ended       bool
	muted       bool
	volume      float64
	poster      string
	currentTime time.Duration
	duration    time.Duration
	source      Source

	playErr   error
	sourceErr error
}

func newFakePlayer() *fakePlayer {
	return &fakePlayer{
		listeners: make(map[Event][]fakeListener),
		paused:    true,
		volume:    1,
		duration:  10 * time.Second,
	}
}

func (p *fakePlayer) add(event Event, h Handler, once bool) ListenerID {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	p.listeners[event] = append(p.listeners[event], fakeListener{id: p.nextID, fn: h, once: once})
	return p.nextID
}

func (p *fakePlayer) On(event Event, h Handler) ListenerID   { return p.add(event, h, false) }
func (p *fakePlayer) Once(event Event, h Handler) ListenerID { return p.add(event, h, true) }

func (p *fakePlayer) Off(event Event, id ListenerID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ls := p.listeners[event]
	for i, l := range ls {
		if l.id == id {
			p.listeners[event] = append(ls[:i:i], ls[i+1:]...)
			return
		}
	}
}

func (p *fakePlayer) emit(event Event) {
	p.mu.Lock()
	p.emitted = append(p.emitted, event)
	ls := p.listeners[event]
	snapshot := make([]fakeListener, len(ls))
	copy(snapshot, ls)
	kept := ls[:0:0]
	for _, l := range ls {
		if !l.once {
			kept = append(kept, l)
		}
	}
	p.listeners[event] = kept
	p.mu.Unlock()

	for _, l := range snapshot {
		l.fn(event)
	}
}

func (p *fakePlayer) listenerCount(event Event) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.listeners[event])
}

func (p *fakePlayer) emittedCount(event Event) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.emitted {
		if e == event {
			n++
		}
	}
	return n
}

func (p *fakePlayer) callCount(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (p *fakePlayer) record(name string) {
	p.mu.Lock()
	p.calls = append(p.calls, name)
	p.mu.Unlock()
}

func (p *fakePlayer) set(fn func(p *fakePlayer)) {
	p.mu.Lock()
	fn(p)
	p.mu.Unlock()
}

func (p *fakePlayer) IsReady() bool { p.mu.Lock(); defer p.mu.Unlock(); return p.ready }
func (p *fakePlayer) Paused() bool  { p.mu.Lock(); defer p.mu.Unlock(); return p.paused }
func (p *fakePlayer) Ended() bool   { p.mu.Lock(); defer p.mu.Unlock(); return p.ended }
func (p *fakePlayer) Muted() bool   { p.mu.Lock(); defer p.mu.Unlock(); return p.muted }

func (p *fakePlayer) Volume() float64 { p.mu.Lock(); defer p.mu.Unlock(); return p.volume }
func (p *fakePlayer) Poster() string  { p.mu.Lock(); defer p.mu.Unlock(); return p.poster }

func (p *fakePlayer) CurrentTime() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentTime
}

func (p *fakePlayer) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duration
}

func (p *fakePlayer) CurrentSource() Source { p.mu.Lock(); defer p.mu.Unlock(); return p.source }

func (p *fakePlayer) SetMuted(muted bool) {
	p.record("SetMuted")
	p.mu.Lock()
	changed := p.muted != muted
	p.muted = muted
	p.mu.Unlock()
	if changed {
		p.emit(EventVolumeChange)
	}
}

func (p *fakePlayer) SetVolume(volume float64) {
	p.record("SetVolume")
	p.mu.Lock()
	changed := p.volume != volume
	p.volume = volume
	p.mu.Unlock()
	if changed {
		p.emit(EventVolumeChange)
	}
}

func (p *fakePlayer) SetPoster(poster string) {
	p.record("SetPoster")
	p.set(func(p *fakePlayer) { p.poster = poster })
	p.emit(EventPosterChange)
}

func (p *fakePlayer) SetCurrentTime(t time.Duration) {
	p.record("SetCurrentTime")
	p.set(func(p *fakePlayer) { p.currentTime = t })
	p.emit(EventTimeUpdate)
}

func (p *fakePlayer) SetSource(src Source) error {
	p.record("SetSource")
	p.mu.Lock()
	err := p.sourceErr
	if err == nil {
		p.source = src
	}
	p.mu.Unlock()
	if err != nil {
		return err
	}
	p.emit(EventSourceSet)
	return nil
}

func (p *fakePlayer) Play(ctx context.Context) error {
	p.record("Play")
	p.mu.Lock()
	err := p.playErr
	if err == nil {
		p.paused = false
		p.ended = false
	}
	p.mu.Unlock()
	if err != nil {
		return err
	}
	p.emit(EventPlay)
	p.emit(EventPlaying)
	return nil
}

func (p *fakePlayer) Pause() {
	p.record("Pause")
	p.mu.Lock()
	changed := !p.paused
	p.paused = true
	p.mu.Unlock()
	if changed {
		p.emit(EventPause)
	}
}

func (p *fakePlayer) Reset() {
	p.record("Reset")
	p.set(func(p *fakePlayer) {
		p.paused = true
		p.ended = false
		p.source = Source{}
		p.poster = ""
		p.currentTime = 0
	})
	p.emit(EventPlayerReset)
}

var _ Player = (*fakePlayer)(nil)

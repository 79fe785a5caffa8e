package journal

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jfmyers9/playwait/pkg/playwait"
	"github.com/rs/zerolog"
)

type stubListener struct {
	id playwait.ListenerID
	fn playwait.Handler
}

// stubTarget is a minimal synchronous emitter
type stubTarget struct {
	mu        sync.Mutex
	nextID    playwait.ListenerID
	listeners map[playwait.Event][]stubListener
	position  time.Duration
}

func newStubTarget() *stubTarget {
	return &stubTarget{listeners: make(map[playwait.Event][]stubListener)}
}

func (s *stubTarget) On(e playwait.Event, h playwait.Handler) playwait.ListenerID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.listeners[e] = append(s.listeners[e], stubListener{id: s.nextID, fn: h})
	return s.nextID
}

func (s *stubTarget) Once(e playwait.Event, h playwait.Handler) playwait.ListenerID {
	return s.On(e, h)
}

func (s *stubTarget) Off(e playwait.Event, id playwait.ListenerID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ls := s.listeners[e]
	for i, l := range ls {
		if l.id == id {
			s.listeners[e] = append(ls[:i:i], ls[i+1:]...)
			return
		}
	}
}

func (s *stubTarget) CurrentTime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

func (s *stubTarget) emit(e playwait.Event) {
	s.mu.Lock()
	ls := append([]stubListener(nil), s.listeners[e]...)
	s.mu.Unlock()
	for _, l := range ls {
		l.fn(e)
	}
}

func (s *stubTarget) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, ls := range s.listeners {
		n += len(ls)
	}
	return n
}

func TestRecorder(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()
	target := newStubTarget()

	id, err := j.StartSession(ctx, "recorded")
	if err != nil {
		t.Fatalf("failed to start session: %v", err)
	}

	r := Attach(j, id, target, zerolog.Nop())
	if got := target.total(); got != len(playwait.PlayerEvents) {
		t.Fatalf("expected %d listeners, got %d", len(playwait.PlayerEvents), got)
	}

	target.emit(playwait.EventPlay)
	target.position = 750 * time.Millisecond
	target.emit(playwait.EventTimeUpdate)
	target.emit(playwait.EventPause)

	r.Detach()
	r.Detach()
	if got := target.total(); got != 0 {
		t.Errorf("expected no listeners after detach, got %d", got)
	}

	// Not recorded once detached
	target.emit(playwait.EventPlay)

	events, err := j.Events(ctx, id)
	if err != nil {
		t.Fatalf("failed to list events: %v", err)
	}

	want := []string{"play", "timeupdate", "pause"}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(events))
	}
	for i, name := range want {
		if events[i].Event != name {
			t.Errorf("event %d: expected %s, got %s", i, name, events[i].Event)
		}
	}
	if events[1].MediaTime != 750*time.Millisecond {
		t.Errorf("expected media time 750ms, got %v", events[1].MediaTime)
	}
	if r.Failures() != 0 {
		t.Errorf("expected no failures, got %d", r.Failures())
	}
}

func TestRecorderWriteFailure(t *testing.T) {
	j := createTestJournal(t)
	target := newStubTarget()

	// No such session: every insert violates the foreign key
	r := Attach(j, 404, target, zerolog.Nop())
	defer r.Detach()

	target.emit(playwait.EventPlay)
	target.emit(playwait.EventPause)

	if r.Failures() != 2 {
		t.Errorf("expected 2 failures, got %d", r.Failures())
	}
}

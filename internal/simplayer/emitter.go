package simplayer

import (
	"sync"

	"github.com/jfmyers9/playwait/pkg/playwait"
)

type listener struct {
	id   playwait.ListenerID
	fn   playwait.Handler
	once bool
}

// emitter is the player's listener table. Handlers run on the emitting
// goroutine, in registration order, with no lock held.
type emitter struct {
	mu        sync.Mutex
	nextID    playwait.ListenerID
	listeners map[playwait.Event][]listener
}

func newEmitter() *emitter {
	return &emitter{listeners: make(map[playwait.Event][]listener)}
}

func (e *emitter) add(event playwait.Event, h playwait.Handler, once bool) playwait.ListenerID {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	e.listeners[event] = append(e.listeners[event], listener{id: e.nextID, fn: h, once: once})
	return e.nextID
}

func (e *emitter) On(event playwait.Event, h playwait.Handler) playwait.ListenerID {
	return e.add(event, h, false)
}

func (e *emitter) Once(event playwait.Event, h playwait.Handler) playwait.ListenerID {
	return e.add(event, h, true)
}

func (e *emitter) Off(event playwait.Event, id playwait.ListenerID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ls := e.listeners[event]
	for i, l := range ls {
		if l.id == id {
			e.listeners[event] = append(ls[:i:i], ls[i+1:]...)
			return
		}
	}
}

// emit calls every handler registered for event. Once handlers are removed
// before any handler runs.
func (e *emitter) emit(event playwait.Event) {
	e.mu.Lock()
	ls := e.listeners[event]
	snapshot := make([]listener, len(ls))
	copy(snapshot, ls)

	kept := make([]listener, 0, len(ls))
	for _, l := range ls {
		if !l.once {
			kept = append(kept, l)
		}
	}
	e.listeners[event] = kept
	e.mu.Unlock()

	for _, l := range snapshot {
		l.fn(event)
	}
}

// count returns the number of handlers registered for event.
func (e *emitter) count(event playwait.Event) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners[event])
}

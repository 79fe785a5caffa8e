package playwait

import (
	"context"
	"sync"
)

// Future is the outcome of an adapter operation. It settles exactly once.
//
// A nil error means the awaited signal fired or the requested state already
// held. A non-nil error comes unmodified from the player.
type Future struct {
	once sync.Once
	done chan struct{}
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// settled returns a future that is already resolved with err.
func settled(err error) *Future {
	f := newFuture()
	f.settle(err)
	return f
}

// settle resolves the future. It reports false if it was already settled.
func (f *Future) settle(err error) bool {
	first := false
	f.once.Do(func() {
		f.err = err
		close(f.done)
		first = true
	})
	return first
}

// Done returns a channel closed when the future settles.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Settled reports whether the future has settled.
func (f *Future) Settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Err returns the settlement error, or nil if the future has not settled.
func (f *Future) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

// Wait blocks until the future settles or ctx is done.
// Giving up on ctx does not affect the future.
func (f *Future) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Package playwait turns a media player's event-driven control surface into
// operations returning futures, so tests can wait for player state
// transitions instead of wiring listeners by hand.
//
// # Overview
//
// The adapter wraps one Player. Each operation either observes that the
// requested state already holds and returns a settled Future, or subscribes
// to the matching player signal and returns a Future that settles when the
// signal fires. The adapter adds no playback logic of its own.
//
// # Quick Start
//
//	h := playwait.Attach(player, playwait.Options{})
//	defer playwait.Detach(player)
//
//	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
//	defer cancel()
//
//	if err := h.WaitForReady().Wait(ctx); err != nil {
//	    t.Fatal(err)
//	}
//	if err := h.SetSource(playwait.Source{Src: "video-1s.mp4"}).Wait(ctx); err != nil {
//	    t.Fatal(err)
//	}
//	if err := h.Play().Wait(ctx); err != nil {
//	    t.Fatal(err)
//	}
//
// # Lifecycle Events
//
// The events in LifecycleEvents fire once per load cycle. WaitForEvent
// returns the same Future to every caller within a cycle, already settled if
// the event has fired. When the player emits playerreset, unfired waits are
// abandoned and never settle, and a fresh set is armed.
//
// # Errors
//
// Operations with preconditions (WaitForEvent, SetVolume, SeekToTime,
// WaitForTime, WaitForEnd) return a *PreconditionError synchronously instead
// of a Future. Use errors.Is(err, ErrPrecondition) to detect them. Failures
// reported by the player, such as a rejected Play, settle the Future with the
// player's error unchanged.
//
// # Cancellation
//
// Futures have no timeout. Bound a wait with Future.Wait and a context;
// abandoning the wait leaves the Future and its listener in place.
package playwait

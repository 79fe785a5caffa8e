package journal

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

// createTestJournal creates an in-memory journal for testing
func createTestJournal(t *testing.T) *Journal {
	t.Helper()

	j, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to create test journal: %v", err)
	}

	t.Cleanup(func() {
		_ = j.Close()
	})

	return j
}

func TestOpen(t *testing.T) {
	t.Run("in-memory database", func(t *testing.T) {
		j, err := Open(":memory:")
		if err != nil {
			t.Fatalf("failed to open in-memory journal: %v", err)
		}
		defer func() { _ = j.Close() }()

		if j.db == nil {
			t.Error("journal database is nil")
		}
	})

	t.Run("file-based database survives reopen", func(t *testing.T) {
		tmpfile, err := os.CreateTemp("", "playwait-journal-*.db")
		if err != nil {
			t.Fatalf("failed to create temp file: %v", err)
		}
		_ = tmpfile.Close()
		defer func() { _ = os.Remove(tmpfile.Name()) }()

		j, err := Open(tmpfile.Name())
		if err != nil {
			t.Fatalf("failed to open file journal: %v", err)
		}
		if _, err := j.StartSession(context.Background(), "smoke"); err != nil {
			t.Fatalf("failed to start session: %v", err)
		}
		_ = j.Close()

		j, err = Open(tmpfile.Name())
		if err != nil {
			t.Fatalf("failed to reopen file journal: %v", err)
		}
		defer func() { _ = j.Close() }()

		sessions, err := j.Sessions(context.Background(), 0)
		if err != nil {
			t.Fatalf("failed to list sessions: %v", err)
		}
		if len(sessions) != 1 || sessions[0].Name != "smoke" {
			t.Errorf("expected the smoke session after reopen, got %+v", sessions)
		}
	})
}

func TestSessionLifecycle(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()

	passID, err := j.StartSession(ctx, "passing")
	if err != nil {
		t.Fatalf("failed to start session: %v", err)
	}
	failID, err := j.StartSession(ctx, "failing")
	if err != nil {
		t.Fatalf("failed to start session: %v", err)
	}
	runningID, err := j.StartSession(ctx, "running")
	if err != nil {
		t.Fatalf("failed to start session: %v", err)
	}

	if err := j.FinishSession(ctx, passID, nil); err != nil {
		t.Fatalf("failed to finish session: %v", err)
	}
	if err := j.FinishSession(ctx, failID, errors.New("step 2: boom")); err != nil {
		t.Fatalf("failed to finish session: %v", err)
	}

	sessions, err := j.Sessions(ctx, 0)
	if err != nil {
		t.Fatalf("failed to list sessions: %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(sessions))
	}

	byID := make(map[int64]Session)
	for _, s := range sessions {
		byID[s.ID] = s
	}

	if !byID[passID].Passed() {
		t.Error("expected passing session to have passed")
	}
	if byID[failID].Passed() || byID[failID].Error != "step 2: boom" {
		t.Errorf("unexpected failing session: %+v", byID[failID])
	}
	if byID[runningID].Passed() || !byID[runningID].FinishedAt.IsZero() {
		t.Errorf("running session should be unfinished: %+v", byID[runningID])
	}

	// Most recent first
	if sessions[0].ID != runningID {
		t.Errorf("expected newest session first, got %d", sessions[0].ID)
	}

	limited, err := j.Sessions(ctx, 2)
	if err != nil {
		t.Fatalf("failed to list sessions: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected 2 sessions with limit, got %d", len(limited))
	}
}

func TestFinishSessionNotFound(t *testing.T) {
	j := createTestJournal(t)

	if err := j.FinishSession(context.Background(), 999, nil); err == nil {
		t.Error("expected error for unknown session")
	}
}

func TestEventsAndSteps(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()

	id, err := j.StartSession(ctx, "smoke")
	if err != nil {
		t.Fatalf("failed to start session: %v", err)
	}

	for i, name := range []string{"sourceset", "loadstart", "timeupdate"} {
		rec := EventRecord{Event: name, MediaTime: time.Duration(i) * 250 * time.Millisecond}
		if err := j.RecordEvent(ctx, id, rec); err != nil {
			t.Fatalf("failed to record event: %v", err)
		}
	}

	if err := j.RecordStep(ctx, id, StepRecord{Index: 1, Op: "play", Elapsed: 40 * time.Millisecond}); err != nil {
		t.Fatalf("failed to record step: %v", err)
	}
	if err := j.RecordStep(ctx, id, StepRecord{Index: 0, Op: "setSource", Elapsed: time.Millisecond}); err != nil {
		t.Fatalf("failed to record step: %v", err)
	}
	if err := j.RecordStep(ctx, id, StepRecord{Index: 2, Op: "waitForEnd", Error: "timed out"}); err != nil {
		t.Fatalf("failed to record step: %v", err)
	}

	events, err := j.Events(ctx, id)
	if err != nil {
		t.Fatalf("failed to list events: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Event != "sourceset" || events[2].Event != "timeupdate" {
		t.Errorf("events out of order: %+v", events)
	}
	if events[2].MediaTime != 500*time.Millisecond {
		t.Errorf("expected media time 500ms, got %v", events[2].MediaTime)
	}

	steps, err := j.Steps(ctx, id)
	if err != nil {
		t.Fatalf("failed to list steps: %v", err)
	}
	if len(steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(steps))
	}
	if steps[0].Op != "setSource" || steps[1].Op != "play" {
		t.Errorf("steps not ordered by index: %+v", steps)
	}
	if steps[1].Elapsed != 40*time.Millisecond {
		t.Errorf("expected elapsed 40ms, got %v", steps[1].Elapsed)
	}
	if steps[2].Error != "timed out" {
		t.Errorf("expected step error, got %q", steps[2].Error)
	}
}

func TestRecordEventUnknownSession(t *testing.T) {
	j := createTestJournal(t)

	err := j.RecordEvent(context.Background(), 42, EventRecord{Event: "play"})
	if err == nil {
		t.Error("expected foreign key violation for unknown session")
	}
}

func TestCleanup(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()

	finished, _ := j.StartSession(ctx, "finished")
	running, _ := j.StartSession(ctx, "running")
	if err := j.FinishSession(ctx, finished, nil); err != nil {
		t.Fatalf("failed to finish session: %v", err)
	}
	if err := j.RecordEvent(ctx, finished, EventRecord{Event: "play"}); err != nil {
		t.Fatalf("failed to record event: %v", err)
	}

	// A negative age puts the cutoff in the future
	deleted, err := j.Cleanup(ctx, -time.Hour)
	if err != nil {
		t.Fatalf("failed to cleanup: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted session, got %d", deleted)
	}

	sessions, _ := j.Sessions(ctx, 0)
	if len(sessions) != 1 || sessions[0].ID != running {
		t.Errorf("expected only the running session to remain, got %+v", sessions)
	}

	events, _ := j.Events(ctx, finished)
	if len(events) != 0 {
		t.Errorf("expected events to cascade, got %d", len(events))
	}
}

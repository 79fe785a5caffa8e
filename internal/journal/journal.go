package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Journal records scenario sessions, the player events emitted during them
// and the steps they executed, using SQLite
type Journal struct {
	db *sql.DB
}

// Session represents one scenario run
type Session struct {
	ID         int64
	Name       string
	StartedAt  time.Time
	FinishedAt time.Time // zero while running
	Error      string
}

// Passed reports whether the session finished without error
func (s Session) Passed() bool {
	return !s.FinishedAt.IsZero() && s.Error == ""
}

// EventRecord is one player signal observed during a session
type EventRecord struct {
	ID        int64
	SessionID int64
	Event     string
	MediaTime time.Duration
	Timestamp time.Time
}

// StepRecord is the outcome of one scenario step
type StepRecord struct {
	ID        int64
	SessionID int64
	Index     int
	Op        string
	Elapsed   time.Duration
	Error     string
	Timestamp time.Time
}

// Open opens (or creates) the journal at dbPath. ":memory:" is accepted.
func Open(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection keeps :memory: databases consistent across queries
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA journal_mode = WAL",
		"PRAGMA temp_store = MEMORY",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			started_at INTEGER NOT NULL,
			finished_at INTEGER,
			error TEXT
		);

		CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id INTEGER NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			event TEXT NOT NULL,
			media_time_ms INTEGER NOT NULL,
			timestamp INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS steps (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id INTEGER NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			step_index INTEGER NOT NULL,
			op TEXT NOT NULL,
			elapsed_ms INTEGER NOT NULL,
			error TEXT,
			timestamp INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id, id);
		CREATE INDEX IF NOT EXISTS idx_steps_session ON steps(session_id, step_index);
		CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the database connection
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// StartSession opens a new session and returns its id
func (j *Journal) StartSession(ctx context.Context, name string) (int64, error) {
	result, err := j.db.ExecContext(ctx,
		"INSERT INTO sessions (name, started_at) VALUES (?, ?)",
		name, time.Now().UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert session: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get insert id: %w", err)
	}

	return id, nil
}

// FinishSession marks a session finished. A nil runErr means it passed.
func (j *Journal) FinishSession(ctx context.Context, id int64, runErr error) error {
	var errMsg sql.NullString
	if runErr != nil {
		errMsg = sql.NullString{String: runErr.Error(), Valid: true}
	}

	result, err := j.db.ExecContext(ctx,
		"UPDATE sessions SET finished_at = ?, error = ? WHERE id = ?",
		time.Now().UnixNano(), errMsg, id,
	)
	if err != nil {
		return fmt.Errorf("failed to finish session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("session with id %d not found", id)
	}

	return nil
}

// RecordEvent appends a player event to a session
func (j *Journal) RecordEvent(ctx context.Context, sessionID int64, rec EventRecord) error {
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO events (session_id, event, media_time_ms, timestamp)
		VALUES (?, ?, ?, ?)
	`, sessionID, rec.Event, rec.MediaTime.Milliseconds(), ts.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	return nil
}

// RecordStep appends a step outcome to a session
func (j *Journal) RecordStep(ctx context.Context, sessionID int64, rec StepRecord) error {
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	var errMsg sql.NullString
	if rec.Error != "" {
		errMsg = sql.NullString{String: rec.Error, Valid: true}
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO steps (session_id, step_index, op, elapsed_ms, error, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sessionID, rec.Index, rec.Op, rec.Elapsed.Milliseconds(), errMsg, ts.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert step: %w", err)
	}

	return nil
}

// Sessions returns the most recent sessions first.
// A limit of zero or less returns every session.
func (j *Journal) Sessions(ctx context.Context, limit int) ([]Session, error) {
	query := `
		SELECT id, name, started_at, COALESCE(finished_at, 0), COALESCE(error, '')
		FROM sessions
		ORDER BY started_at DESC, id DESC
	`

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := j.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		var started, finished int64

		if err := rows.Scan(&s.ID, &s.Name, &started, &finished, &s.Error); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}

		s.StartedAt = time.Unix(0, started)
		if finished != 0 {
			s.FinishedAt = time.Unix(0, finished)
		}

		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return sessions, nil
}

// Events returns the events of a session in emission order
func (j *Journal) Events(ctx context.Context, sessionID int64) ([]EventRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, session_id, event, media_time_ms, timestamp
		FROM events
		WHERE session_id = ?
		ORDER BY id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []EventRecord
	for rows.Next() {
		var e EventRecord
		var mediaMs, ts int64

		if err := rows.Scan(&e.ID, &e.SessionID, &e.Event, &mediaMs, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}

		e.MediaTime = time.Duration(mediaMs) * time.Millisecond
		e.Timestamp = time.Unix(0, ts)

		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

// Steps returns the steps of a session in execution order
func (j *Journal) Steps(ctx context.Context, sessionID int64) ([]StepRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, session_id, step_index, op, elapsed_ms, COALESCE(error, ''), timestamp
		FROM steps
		WHERE session_id = ?
		ORDER BY step_index ASC, id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query steps: %w", err)
	}
	defer rows.Close()

	var steps []StepRecord
	for rows.Next() {
		var s StepRecord
		var elapsedMs, ts int64

		err := rows.Scan(&s.ID, &s.SessionID, &s.Index, &s.Op, &elapsedMs, &s.Error, &ts)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}

		s.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		s.Timestamp = time.Unix(0, ts)

		steps = append(steps, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating steps: %w", err)
	}

	return steps, nil
}

// Cleanup removes finished sessions older than maxAge, along with their
// events and steps. Running sessions are kept.
func (j *Journal) Cleanup(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge).UnixNano()

	result, err := j.db.ExecContext(ctx, `
		DELETE FROM sessions
		WHERE finished_at IS NOT NULL
		AND started_at < ?
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old sessions: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}

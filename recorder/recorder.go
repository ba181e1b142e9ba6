// recorder/recorder.go
package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"riskguard/enforce"
)

// Violation is one journaled terminal verdict.
type Violation struct {
	Login     int64
	Kind      string
	Equity    float64
	Balance   float64
	Limit     float64
	Reference float64
	EventID   string
	At        time.Time
}

// Recorder journals violations and enforcement attempts. Implementations
// must tolerate being called from concurrent enforcement goroutines.
type Recorder interface {
	RecordViolation(ctx context.Context, v Violation) error
	RecordEnforcement(ctx context.Context, login int64, attempts []enforce.Attempt) error
	Close() error
}

// SQLiteRecorder persists the journal to a local sqlite database.
type SQLiteRecorder struct {
	db *sql.DB
}

var _ Recorder = (*SQLiteRecorder)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS violations (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	ts          TEXT    NOT NULL,
	login       INTEGER NOT NULL,
	kind        TEXT    NOT NULL,
	equity      REAL    NOT NULL,
	balance     REAL    NOT NULL,
	limit_value REAL    NOT NULL,
	reference   REAL    NOT NULL,
	event_id    TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_violations_login ON violations(login);

CREATE TABLE IF NOT EXISTS enforcements (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	ts       TEXT    NOT NULL,
	login    INTEGER NOT NULL,
	target   INTEGER NOT NULL,
	strategy TEXT    NOT NULL,
	outcome  TEXT    NOT NULL,
	detail   TEXT    NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_enforcements_login ON enforcements(login);
`

// NewSQLiteRecorder opens (or creates) the journal database at path.
func NewSQLiteRecorder(path string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}
	// Single writer keeps sqlite happy under concurrent enforcement goroutines.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply journal schema: %w", err)
	}
	return &SQLiteRecorder{db: db}, nil
}

func (r *SQLiteRecorder) RecordViolation(ctx context.Context, v Violation) error {
	at := v.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO violations (ts, login, kind, equity, balance, limit_value, reference, event_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		at.UTC().Format(time.RFC3339), v.Login, v.Kind, v.Equity, v.Balance, v.Limit, v.Reference, v.EventID)
	if err != nil {
		return fmt.Errorf("failed to record violation for %d: %w", v.Login, err)
	}
	return nil
}

func (r *SQLiteRecorder) RecordEnforcement(ctx context.Context, login int64, attempts []enforce.Attempt) error {
	if len(attempts) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin journal transaction: %w", err)
	}
	defer tx.Rollback()

	ts := time.Now().UTC().Format(time.RFC3339)
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO enforcements (ts, login, target, strategy, outcome, detail) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare journal insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range attempts {
		if _, err := stmt.ExecContext(ctx, ts, login, a.Target, a.Strategy, string(a.Outcome), a.Detail); err != nil {
			return fmt.Errorf("failed to record enforcement attempt for %d: %w", login, err)
		}
	}
	return tx.Commit()
}

// ViolationCount reports the number of journaled violations for a login.
// Used by tests and ad hoc inspection.
func (r *SQLiteRecorder) ViolationCount(ctx context.Context, login int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM violations WHERE login = ?`, login).Scan(&n)
	return n, err
}

func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}

// Noop discards everything; used when no journal path is configured.
type Noop struct{}

var _ Recorder = Noop{}

func (Noop) RecordViolation(ctx context.Context, v Violation) error { return nil }
func (Noop) RecordEnforcement(ctx context.Context, login int64, attempts []enforce.Attempt) error {
	return nil
}
func (Noop) Close() error { return nil }

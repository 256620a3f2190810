// Package journal keeps an append-only SQLite log of everything the churn
// controller does to the worker pool, so a run can be reconstructed after
// the fact: which worker ran which versions when, and why it went away.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Kind classifies a journal event.
type Kind string

const (
	KindStart      Kind = "start"
	KindDisconnect Kind = "disconnect"
	KindExit       Kind = "exit"
	KindRespawn    Kind = "respawn"
	KindReconcile  Kind = "reconcile"
)

// Event is one journal entry. Worker fields are empty for pool-wide events.
type Event struct {
	ID            string
	Kind          Kind
	WorkerID      uint64
	Window        int
	NodeVersion   string
	ReportVersion string
	Detail        string
	At            time.Time
}

// Recorder accepts events.
type Recorder interface {
	Record(ctx context.Context, e Event) error
}

// Journal is a Recorder backed by a SQLite database file.
type Journal struct {
	db *sql.DB
}

// Open opens (creating if needed) the journal at path.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping journal: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	j := &Journal{db: db}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal migration failed: %w", err)
	}
	return j, nil
}

func (j *Journal) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS events (
		event_id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		worker_id INTEGER NOT NULL,
		window_index INTEGER NOT NULL,
		node_version TEXT NOT NULL,
		report_version TEXT NOT NULL,
		detail TEXT NOT NULL,
		ts DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_window ON events(window_index);
	`
	_, err := j.db.Exec(query)
	return err
}

// Record appends e. Missing ids and timestamps are filled in.
func (j *Journal) Record(ctx context.Context, e Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO events (event_id, kind, worker_id, window_index, node_version, report_version, detail, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.Kind), int64(e.WorkerID), e.Window, e.NodeVersion, e.ReportVersion, e.Detail, e.At.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record %s event: %w", e.Kind, err)
	}
	return nil
}

// Events returns all events in insertion order, optionally restricted to kind.
func (j *Journal) Events(ctx context.Context, kind Kind) ([]Event, error) {
	query := `SELECT event_id, kind, worker_id, window_index, node_version, report_version, detail, ts FROM events`
	var args []interface{}
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY rowid`

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e        Event
			k        string
			workerID int64
		)
		if err := rows.Scan(&e.ID, &k, &workerID, &e.Window, &e.NodeVersion, &e.ReportVersion, &e.Detail, &e.At); err != nil {
			return nil, err
		}
		e.Kind = Kind(k)
		e.WorkerID = uint64(workerID)
		events = append(events, e)
	}
	return events, rows.Err()
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Discard drops every event.
var Discard Recorder = discard{}

type discard struct{}

func (discard) Record(context.Context, Event) error { return nil }

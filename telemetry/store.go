package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// ErrUnknownRun is returned when a run id is not in the store.
var ErrUnknownRun = errors.New("unknown run")

const traceSchema = `
CREATE TABLE IF NOT EXISTS runs (
    id          TEXT PRIMARY KEY,
    scene       TEXT NOT NULL,
    dt          REAL NOT NULL,
    status      TEXT NOT NULL DEFAULT 'running',
    ticks       INTEGER NOT NULL DEFAULT 0,
    started_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    finished_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS samples (
    run_id   TEXT NOT NULL REFERENCES runs(id),
    tick     INTEGER NOT NULL,
    time_s   REAL NOT NULL,
    neuron   INTEGER NOT NULL,
    segment  INTEGER NOT NULL,
    label    TEXT NOT NULL DEFAULT '',
    voltage  REAL NOT NULL,
    input    REAL NOT NULL,
    g_na     REAL NOT NULL,
    g_k      REAL NOT NULL,
    g_ca     REAL NOT NULL,
    g_cl     REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS samples_by_segment ON samples(run_id, neuron, segment, tick);
`

// Run is one recorded simulation run.
type Run struct {
	ID        string
	Scene     string
	DT        float64
	Status    string
	Ticks     int64
	StartedAt time.Time
}

// TraceStore persists runs and their trace samples in SQLite.
type TraceStore struct {
	db *sql.DB
}

// NewTraceStore opens (or creates) the database at path and its schema.
func NewTraceStore(ctx context.Context, path string) (*TraceStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("trace store: open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("trace store: enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, traceSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("trace store: create schema: %w", err)
	}
	return &TraceStore{db: db}, nil
}

// BeginRun records a new run and returns its id.
func (s *TraceStore) BeginRun(ctx context.Context, scene string, dt float64) (string, error) {
	id := uuid.NewString()
	const q = `INSERT INTO runs (id, scene, dt) VALUES (?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q, id, scene, dt); err != nil {
		return "", fmt.Errorf("trace store: begin run: %w", err)
	}
	return id, nil
}

// FinishRun marks a run complete with its final tick count and status.
func (s *TraceStore) FinishRun(ctx context.Context, runID string, ticks int64, status string) error {
	const q = `UPDATE runs SET status = ?, ticks = ?, finished_at = CURRENT_TIMESTAMP WHERE id = ?`
	res, err := s.db.ExecContext(ctx, q, status, ticks, runID)
	if err != nil {
		return fmt.Errorf("trace store: finish run %s: %w", runID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("trace store: finish run %s: %w", runID, ErrUnknownRun)
	}
	return nil
}

// WriteSamples inserts samples for runID in a single transaction.
func (s *TraceStore) WriteSamples(ctx context.Context, runID string, samples []TraceSample) error {
	if len(samples) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("trace store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	const q = `
		INSERT INTO samples (run_id, tick, time_s, neuron, segment, label, voltage, input, g_na, g_k, g_ca, g_cl)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return fmt.Errorf("trace store: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, ts := range samples {
		if _, err := stmt.ExecContext(ctx, runID, ts.Tick, ts.Time, ts.Neuron, ts.Segment, ts.Label,
			ts.Voltage, ts.Input, ts.GNa, ts.GK, ts.GCa, ts.GCl); err != nil {
			return fmt.Errorf("trace store: insert sample at tick %d: %w", ts.Tick, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("trace store: commit samples: %w", err)
	}
	return nil
}

// Samples returns one segment's samples for runID in tick order.
func (s *TraceStore) Samples(ctx context.Context, runID string, neuron, segment int) ([]TraceSample, error) {
	const q = `
		SELECT tick, time_s, neuron, segment, label, voltage, input, g_na, g_k, g_ca, g_cl
		FROM samples WHERE run_id = ? AND neuron = ? AND segment = ? ORDER BY tick`
	rows, err := s.db.QueryContext(ctx, q, runID, neuron, segment)
	if err != nil {
		return nil, fmt.Errorf("trace store: query samples: %w", err)
	}
	defer rows.Close()

	var out []TraceSample
	for rows.Next() {
		var ts TraceSample
		if err := rows.Scan(&ts.Tick, &ts.Time, &ts.Neuron, &ts.Segment, &ts.Label,
			&ts.Voltage, &ts.Input, &ts.GNa, &ts.GK, &ts.GCa, &ts.GCl); err != nil {
			return nil, fmt.Errorf("trace store: scan sample: %w", err)
		}
		out = append(out, ts)
	}
	return out, rows.Err()
}

// Run returns the metadata of one run.
func (s *TraceStore) Run(ctx context.Context, runID string) (Run, error) {
	var r Run
	var ts string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, scene, dt, status, ticks, started_at FROM runs WHERE id = ?", runID,
	).Scan(&r.ID, &r.Scene, &r.DT, &r.Status, &r.Ticks, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("trace store: run %s: %w", runID, ErrUnknownRun)
	}
	if err != nil {
		return Run{}, fmt.Errorf("trace store: get run %s: %w", runID, err)
	}
	if r.StartedAt, err = parseTimestamp(ts); err != nil {
		return Run{}, fmt.Errorf("trace store: run %s: %w", runID, err)
	}
	return r, nil
}

// modernc.org/sqlite returns RFC 3339 for CURRENT_TIMESTAMP columns; the C
// library returns the space-separated form.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.DateTime,
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format: %q", s)
}

// Close closes the database.
func (s *TraceStore) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

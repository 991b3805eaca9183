// Package analytics implements the metrics engine over the training
// history log.
//
// It uses SQLite to store one row per logged set and derives training
// signals from it: volume load, RPE trends, max efforts, weekly
// frequency, weak-point flags and heuristic insights. The engine side
// is strictly read-only; writes exist for the ingestion collaborator
// and for seeding tests.
package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// ─── Types ───────────────────────────────────────────────────────────────────

// Set is one logged training set. Nullable columns are pointers; a nil
// Reps or WeightKg means the value was never logged, not zero.
type Set struct {
	RowID           int64    `json:"row_id"`
	Date            string   `json:"date"`
	Workout         string   `json:"workout"`
	Exercise        string   `json:"exercise"`
	SetNumber       int      `json:"set_number"`
	Reps            *int     `json:"reps,omitempty"`
	DurationSeconds *int     `json:"duration_seconds,omitempty"`
	WeightKg        *float64 `json:"weight_kg,omitempty"`
	MachineLevel    *float64 `json:"machine_level,omitempty"`
	WarmUp          *string  `json:"warm_up,omitempty"`
	RPE             *float64 `json:"rpe,omitempty"`
	Notes           *string  `json:"notes,omitempty"`
}

// WeightEntry is one body-weight measurement.
type WeightEntry struct {
	Date     string  `json:"date"`
	WeightKg float64 `json:"weight_kg"`
}

// ─── DB ──────────────────────────────────────────────────────────────────────

// DB owns the training-history database: schema, pragmas and the write
// path. Metric computation lives on Engine.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the training database at path and runs
// migrations. The parent directory is created if needed.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("analytics: create data dir: %w", err)
		}
	}
	return open(path)
}

// OpenMemory opens an in-memory training database, used by tests and
// ephemeral sessions.
func OpenMemory() (*DB, error) {
	return open(":memory:")
}

func open(dsn string) (*DB, error) {
	db, err := openDB("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("analytics: open database: %w", err)
	}

	// SQLite performance pragmas
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("analytics: pragma %q: %w", p, err)
		}
	}

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		return nil, fmt.Errorf("analytics: migration: %w", err)
	}
	return d, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS training_history (
			row_id           INTEGER PRIMARY KEY,
			date             TEXT    NOT NULL,
			workout          TEXT    NOT NULL,
			exercise         TEXT    NOT NULL,
			set_number       INTEGER NOT NULL,
			reps             INTEGER,
			duration_seconds INTEGER,
			weight_kg        REAL,
			machine_level    REAL,
			warm_up          TEXT,
			rpe              REAL,
			notes            TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_history_date     ON training_history(date);
		CREATE INDEX IF NOT EXISTS idx_history_exercise ON training_history(exercise, date);

		CREATE TABLE IF NOT EXISTS weight_history (
			date      TEXT PRIMARY KEY,
			weight_kg REAL NOT NULL
		);
	`
	_, err := d.db.Exec(schema)
	return err
}

// ─── Write path ──────────────────────────────────────────────────────────────

// InsertSet logs a single set, assigning the next row_id. The caller's
// RowID field is ignored.
func (d *DB) InsertSet(ctx context.Context, s Set) (int64, error) {
	ids, err := d.InsertSets(ctx, []Set{s})
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// InsertSets logs a batch of sets in one transaction, assigning
// consecutive row_ids after the current maximum. Either all rows are
// written or none.
func (d *DB) InsertSets(ctx context.Context, sets []Set) ([]int64, error) {
	if len(sets) == 0 {
		return nil, nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("analytics: begin insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var next int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(row_id), 0) FROM training_history`).Scan(&next); err != nil {
		return nil, fmt.Errorf("analytics: next row_id: %w", err)
	}

	ids := make([]int64, 0, len(sets))
	for _, s := range sets {
		next++
		_, err := tx.ExecContext(ctx, `
			INSERT INTO training_history
				(row_id, date, workout, exercise, set_number, reps, duration_seconds,
				 weight_kg, machine_level, warm_up, rpe, notes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			next, s.Date, s.Workout, s.Exercise, s.SetNumber,
			nullInt(s.Reps), nullInt(s.DurationSeconds),
			nullFloat(s.WeightKg), nullFloat(s.MachineLevel),
			nullString(s.WarmUp), nullFloat(s.RPE), nullString(s.Notes),
		)
		if err != nil {
			return nil, fmt.Errorf("analytics: insert set: %w", err)
		}
		ids = append(ids, next)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("analytics: commit insert: %w", err)
	}
	return ids, nil
}

// ReplaceAll swaps the entire training history for the given sets,
// renumbering row_ids from 1. Used by the ingestion collaborator when a
// full log is re-imported.
func (d *DB) ReplaceAll(ctx context.Context, sets []Set) (int, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("analytics: begin replace: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM training_history`); err != nil {
		return 0, fmt.Errorf("analytics: clear history: %w", err)
	}

	for i, s := range sets {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO training_history
				(row_id, date, workout, exercise, set_number, reps, duration_seconds,
				 weight_kg, machine_level, warm_up, rpe, notes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			int64(i+1), s.Date, s.Workout, s.Exercise, s.SetNumber,
			nullInt(s.Reps), nullInt(s.DurationSeconds),
			nullFloat(s.WeightKg), nullFloat(s.MachineLevel),
			nullString(s.WarmUp), nullFloat(s.RPE), nullString(s.Notes),
		)
		if err != nil {
			return 0, fmt.Errorf("analytics: insert row %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("analytics: commit replace: %w", err)
	}
	return len(sets), nil
}

// LogWeight records body weight for a date, overwriting any existing
// entry for that date.
func (d *DB) LogWeight(ctx context.Context, date string, weightKg float64) error {
	if _, err := parseDay(date); err != nil {
		return &InvalidRangeError{Start: date, End: date}
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO weight_history (date, weight_kg) VALUES (?, ?)
		ON CONFLICT (date) DO UPDATE SET weight_kg = excluded.weight_kg`,
		date, weightKg,
	)
	if err != nil {
		return fmt.Errorf("analytics: log weight: %w", err)
	}
	return nil
}

// WeightHistory returns all body-weight entries in ascending date order.
func (d *DB) WeightHistory(ctx context.Context) ([]WeightEntry, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT date, weight_kg FROM weight_history ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("analytics: weight history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []WeightEntry
	for rows.Next() {
		var e WeightEntry
		if err := rows.Scan(&e.Date, &e.WeightKg); err != nil {
			return nil, fmt.Errorf("analytics: scan weight entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func nullInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullFloat(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

// Float returns a pointer to v. Convenience for building Set literals.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }

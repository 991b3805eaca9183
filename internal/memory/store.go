// Package memory implements the append-only coaching journal.
//
// Every pipeline run that completes leaves a trace here: plan
// snapshots, finding snapshots, user feedback and coach reflections.
// Records are never updated or deleted; history is the product. The
// SQLite implementation adds an FTS5 index so past records can be
// recalled by content, with an in-memory fallback for environments
// where the database cannot be opened.
package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// timeNow is a package-level var to allow test injection.
var timeNow = time.Now

// stampFormat is the SQLite-friendly timestamp layout. Lexicographic
// order equals chronological order.
const stampFormat = "2006-01-02 15:04:05"

// --- Record type enum ---

// Allowed record types.
const (
	TypePlanSnapshot    = "plan_snapshot"
	TypeFindingSnapshot = "finding_snapshot"
	TypeUserFeedback    = "user_feedback"
	TypeReflection      = "reflection"
)

// validRecordTypes is the set of allowed record types.
var validRecordTypes = map[string]bool{
	TypePlanSnapshot:    true,
	TypeFindingSnapshot: true,
	TypeUserFeedback:    true,
	TypeReflection:      true,
}

// ValidateRecordType returns an error if the type is not recognized.
func ValidateRecordType(t string) error {
	if !validRecordTypes[t] {
		return fmt.Errorf("invalid record type %q: must be one of: plan_snapshot, finding_snapshot, user_feedback, reflection", t)
	}
	return nil
}

// --- Types ---

// Record is one journal entry. Content is the raw JSON payload that
// was persisted; callers decode it according to Type.
type Record struct {
	ID        string          `json:"id"`
	CreatedAt string          `json:"created_at"`
	Type      string          `json:"type"`
	Content   json.RawMessage `json:"content"`
	Tags      []string        `json:"tags,omitempty"`
}

// AppendParams carries one record to be written.
type AppendParams struct {
	Type    string
	Content json.RawMessage
	Tags    []string
}

// SearchOptions filters a journal search. An empty Query returns the
// most recent records matching the remaining filters.
type SearchOptions struct {
	Query string
	Type  string
	Limit int
}

// Store is the journal surface the pipeline depends on. Implementations
// must keep CreatedAt non-decreasing across Append calls.
type Store interface {
	Append(ctx context.Context, p AppendParams) (Record, error)
	Timeline(ctx context.Context, limit int) ([]Record, error)
	Search(ctx context.Context, opts SearchOptions) ([]Record, error)
	Latest(ctx context.Context, recordType string) (Record, bool, error)
	Close() error
}

// Config holds store settings.
type Config struct {
	// Path is the SQLite database file location.
	Path string
	// MaxSearchResults caps any single search response.
	MaxSearchResults int
}

// DefaultConfig returns the default store configuration, rooted under
// the user's home directory.
func DefaultConfig() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Config{
		Path:             filepath.Join(home, ".biome", "journal.db"),
		MaxSearchResults: 50,
	}
}

// --- SQLite store ---

// SQLiteStore is the durable Store implementation.
type SQLiteStore struct {
	db  *sql.DB
	cfg Config

	// mu guards lastStamp, which enforces the non-decreasing
	// created_at guarantee even if the wall clock steps backwards.
	mu        sync.Mutex
	lastStamp string
}

// Open opens (or creates) the journal database and runs migrations.
func Open(cfg Config) (*SQLiteStore, error) {
	if cfg.MaxSearchResults <= 0 {
		cfg.MaxSearchResults = DefaultConfig().MaxSearchResults
	}
	if dir := filepath.Dir(cfg.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("memory: create data dir: %w", err)
		}
	}

	db, err := openDB("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("memory: open database: %w", err)
	}

	// SQLite performance pragmas
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("memory: pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db, cfg: cfg}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("memory: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS records (
			seq        INTEGER PRIMARY KEY AUTOINCREMENT,
			id         TEXT NOT NULL UNIQUE,
			created_at TEXT NOT NULL,
			type       TEXT NOT NULL CHECK (type IN ('plan_snapshot', 'finding_snapshot', 'user_feedback', 'reflection')),
			content    TEXT NOT NULL,
			tags       TEXT NOT NULL DEFAULT '[]'
		);

		CREATE INDEX IF NOT EXISTS idx_records_created ON records(created_at DESC, seq DESC);
		CREATE INDEX IF NOT EXISTS idx_records_type    ON records(type, created_at DESC);

		CREATE VIRTUAL TABLE IF NOT EXISTS records_fts USING fts5(
			content, tags,
			content=records,
			content_rowid=seq
		);
	`); err != nil {
		return err
	}

	// Create FTS triggers (idempotent)
	var name string
	err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='trigger' AND name='records_fts_insert'",
	).Scan(&name)

	if err == sql.ErrNoRows {
		triggers := `
			CREATE TRIGGER records_fts_insert AFTER INSERT ON records BEGIN
				INSERT INTO records_fts(rowid, content, tags)
				VALUES (new.seq, new.content, new.tags);
			END;

			CREATE TRIGGER records_fts_delete AFTER DELETE ON records BEGIN
				INSERT INTO records_fts(records_fts, rowid, content, tags)
				VALUES ('delete', old.seq, old.content, old.tags);
			END;
		`
		if _, err := s.db.Exec(triggers); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	return nil
}

// nextStamp returns the timestamp for a new record, clamped so it never
// precedes the previous one. Ties are broken by seq.
func (s *SQLiteStore) nextStamp() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	stamp := timeNow().UTC().Format(stampFormat)
	if stamp < s.lastStamp {
		stamp = s.lastStamp
	}
	s.lastStamp = stamp
	return stamp
}

// Append writes one record and returns it with its assigned identity.
func (s *SQLiteStore) Append(ctx context.Context, p AppendParams) (Record, error) {
	if err := ValidateRecordType(p.Type); err != nil {
		return Record{}, fmt.Errorf("memory: %w", err)
	}
	if len(p.Content) == 0 {
		return Record{}, fmt.Errorf("memory: record content must not be empty")
	}
	if !json.Valid(p.Content) {
		return Record{}, fmt.Errorf("memory: record content must be valid JSON")
	}

	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return Record{}, fmt.Errorf("memory: marshal tags: %w", err)
	}

	rec := Record{
		ID:        uuid.NewString(),
		CreatedAt: s.nextStamp(),
		Type:      p.Type,
		Content:   p.Content,
		Tags:      tags,
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records (id, created_at, type, content, tags)
		VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.CreatedAt, rec.Type, string(rec.Content), string(tagsJSON),
	)
	if err != nil {
		return Record{}, fmt.Errorf("memory: append record: %w", err)
	}
	return rec, nil
}

// Timeline returns the most recent records, newest first.
func (s *SQLiteStore) Timeline(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, type, content, tags
		FROM records
		ORDER BY created_at DESC, seq DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("memory: timeline: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanRecords(rows)
}

// Search performs full-text search over record content and tags. An
// empty or whitespace-only query falls back to recent records.
func (s *SQLiteStore) Search(ctx context.Context, opts SearchOptions) ([]Record, error) {
	if opts.Type != "" {
		if err := ValidateRecordType(opts.Type); err != nil {
			return nil, fmt.Errorf("memory: %w", err)
		}
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	if limit > s.cfg.MaxSearchResults {
		limit = s.cfg.MaxSearchResults
	}

	ftsQuery := sanitizeFTS(opts.Query)
	if ftsQuery == "" {
		return s.searchRecent(ctx, opts.Type, limit)
	}

	query := `
		SELECT r.id, r.created_at, r.type, r.content, r.tags
		FROM records_fts fts
		JOIN records r ON r.seq = fts.rowid
		WHERE records_fts MATCH ?`
	args := []any{ftsQuery}
	if opts.Type != "" {
		query += " AND r.type = ?"
		args = append(args, opts.Type)
	}
	query += " ORDER BY fts.rank LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("memory: search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanRecords(rows)
}

// searchRecent returns the most recent records without FTS, used as
// fallback when the query is empty.
func (s *SQLiteStore) searchRecent(ctx context.Context, recordType string, limit int) ([]Record, error) {
	query := `
		SELECT id, created_at, type, content, tags
		FROM records`
	var args []any
	if recordType != "" {
		query += " WHERE type = ?"
		args = append(args, recordType)
	}
	query += " ORDER BY created_at DESC, seq DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("memory: search recent: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanRecords(rows)
}

// Latest returns the newest record of the given type, if one exists.
func (s *SQLiteStore) Latest(ctx context.Context, recordType string) (Record, bool, error) {
	if err := ValidateRecordType(recordType); err != nil {
		return Record{}, false, fmt.Errorf("memory: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, type, content, tags
		FROM records
		WHERE type = ?
		ORDER BY created_at DESC, seq DESC
		LIMIT 1`, recordType)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("memory: latest record: %w", err)
	}
	return rec, true, nil
}

// --- Scan helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var content, tags string
	if err := row.Scan(&rec.ID, &rec.CreatedAt, &rec.Type, &content, &tags); err != nil {
		return Record{}, err
	}
	rec.Content = json.RawMessage(content)
	if err := json.Unmarshal([]byte(tags), &rec.Tags); err != nil {
		return Record{}, fmt.Errorf("memory: decode tags: %w", err)
	}
	return rec, nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("memory: scan record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// sanitizeFTS wraps each word in quotes for safe FTS5 queries.
// "bench press stall" → `"bench" "press" "stall"`
func sanitizeFTS(query string) string {
	words := strings.Fields(query)
	for i, w := range words {
		w = strings.Trim(w, `"`)
		words[i] = `"` + w + `"`
	}
	return strings.Join(words, " ")
}

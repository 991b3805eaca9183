package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemStore is the volatile Store used when the journal database cannot
// be opened. Same semantics as SQLiteStore, but nothing survives a
// restart; the caller is expected to log that degradation loudly.
type MemStore struct {
	mu        sync.Mutex
	records   []Record
	lastStamp string
	maxSearch int
}

// NewMemStore returns an empty in-memory journal.
func NewMemStore() *MemStore {
	return &MemStore{maxSearch: DefaultConfig().MaxSearchResults}
}

// Close is a no-op; the records are simply dropped.
func (s *MemStore) Close() error { return nil }

// Append writes one record and returns it with its assigned identity.
func (s *MemStore) Append(ctx context.Context, p AppendParams) (Record, error) {
	if err := ValidateRecordType(p.Type); err != nil {
		return Record{}, fmt.Errorf("memory: %w", err)
	}
	if len(p.Content) == 0 {
		return Record{}, fmt.Errorf("memory: record content must not be empty")
	}
	if !json.Valid(p.Content) {
		return Record{}, fmt.Errorf("memory: record content must be valid JSON")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stamp := timeNow().UTC().Format(stampFormat)
	if stamp < s.lastStamp {
		stamp = s.lastStamp
	}
	s.lastStamp = stamp

	tags := append([]string{}, p.Tags...)
	rec := Record{
		ID:        uuid.NewString(),
		CreatedAt: stamp,
		Type:      p.Type,
		Content:   append(json.RawMessage{}, p.Content...),
		Tags:      tags,
	}
	s.records = append(s.records, rec)
	return rec, nil
}

// Timeline returns the most recent records, newest first.
func (s *MemStore) Timeline(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Record
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.records[i])
	}
	return out, nil
}

// Search filters by type and a case-insensitive substring over content
// and tags, newest first.
func (s *MemStore) Search(ctx context.Context, opts SearchOptions) ([]Record, error) {
	if opts.Type != "" {
		if err := ValidateRecordType(opts.Type); err != nil {
			return nil, fmt.Errorf("memory: %w", err)
		}
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	if limit > s.maxSearch {
		limit = s.maxSearch
	}
	needle := strings.ToLower(strings.TrimSpace(opts.Query))

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Record
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		rec := s.records[i]
		if opts.Type != "" && rec.Type != opts.Type {
			continue
		}
		if needle != "" && !recordMatches(rec, needle) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Latest returns the newest record of the given type, if one exists.
func (s *MemStore) Latest(ctx context.Context, recordType string) (Record, bool, error) {
	if err := ValidateRecordType(recordType); err != nil {
		return Record{}, false, fmt.Errorf("memory: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].Type == recordType {
			return s.records[i], true, nil
		}
	}
	return Record{}, false, nil
}

func recordMatches(rec Record, needle string) bool {
	if strings.Contains(strings.ToLower(string(rec.Content)), needle) {
		return true
	}
	for _, tag := range rec.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

package memory_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/patrickpassosb/biome/internal/memory"
)

// The journal depends on three driver features: WAL mode, busy_timeout
// and FTS5. Exercise them through a real file-backed store so a driver
// regression fails loudly here instead of deep in a pipeline run.

func TestJournalSmoke_DriverFeatures(t *testing.T) {
	s, err := memory.Open(memory.Config{Path: filepath.Join(t.TempDir(), "smoke.db")})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	var mode string
	if err := s.DB().QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("failed to query journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("expected WAL mode, got %q", mode)
	}

	var timeout int
	if err := s.DB().QueryRow("PRAGMA busy_timeout").Scan(&timeout); err != nil {
		t.Fatalf("failed to query busy_timeout: %v", err)
	}
	if timeout != 5000 {
		t.Errorf("expected busy_timeout=5000, got %d", timeout)
	}
}

func TestJournalSmoke_FTSRoundTrip(t *testing.T) {
	s, err := memory.Open(memory.Config{Path: filepath.Join(t.TempDir(), "fts.db")})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()

	seeds := []struct {
		recordType string
		content    string
	}{
		{memory.TypeFindingSnapshot, `{"message": "Bench press stalled for three sessions"}`},
		{memory.TypePlanSnapshot, `{"goal": "Rebuild pressing volume"}`},
		{memory.TypeUserFeedback, `{"feedback": "Wednesday squats felt brutal"}`},
	}
	for _, seed := range seeds {
		appendRecord(t, s, seed.recordType, seed.content)
	}

	tests := []struct {
		name    string
		query   string
		wantMin int
	}{
		{"single word", "stalled", 1},
		{"multi word", "pressing volume", 1},
		{"no match", "kettlebell", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits, err := s.Search(ctx, memory.SearchOptions{Query: tt.query})
			if err != nil {
				t.Fatalf("Search(%q) failed: %v", tt.query, err)
			}
			if len(hits) < tt.wantMin {
				t.Errorf("Search(%q) = %d hits, want at least %d", tt.query, len(hits), tt.wantMin)
			}
		})
	}
}

func TestJournalSmoke_QuerySanitization(t *testing.T) {
	s, err := memory.Open(memory.Config{Path: filepath.Join(t.TempDir(), "sanitize.db")})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()

	appendRecord(t, s, memory.TypeReflection, `{"note": "hello world test data"}`)

	// Raw FTS operators must not crash the query layer.
	queries := []string{
		"fix auth bug",
		"hello*",
		`"hello world"`,
		"hello OR world",
		"hello AND world",
		"(unbalanced",
	}
	for _, q := range queries {
		if _, err := s.Search(ctx, memory.SearchOptions{Query: q}); err != nil {
			t.Errorf("Search(%q) returned error: %v", q, err)
		}
	}
}

package memory

import (
	"database/sql"
	"time"
)

// DB exposes the internal *sql.DB for test helpers in memory_test.
// This file only compiles during `go test`.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// SetNow overrides the journal clock for tests and returns a restore func.
func SetNow(now func() time.Time) func() {
	prev := timeNow
	timeNow = now
	return func() { timeNow = prev }
}

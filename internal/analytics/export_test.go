package analytics

import "time"

// SetNow overrides the clock used by time-windowed computations and
// returns a restore func. This file only compiles during `go test`.
func SetNow(now func() time.Time) func() {
	prev := timeNow
	timeNow = now
	return func() { timeNow = prev }
}

package profile

import "time"

// SetNow swaps the clock and returns a restore func.
func SetNow(now func() time.Time) func() {
	prev := timeNow
	timeNow = now
	return func() { timeNow = prev }
}

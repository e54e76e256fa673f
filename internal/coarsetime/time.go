// Package coarsetime provides a cheap, low-resolution clock for hot paths
// such as pool bookkeeping, where time.Now() shows up in profiles.
//
// The clock is refreshed every 50ms by a background goroutine.
package coarsetime

import (
	"sync/atomic"
	"time"
)

// Resolution is the refresh interval of the clock.
const Resolution = 50 * time.Millisecond

var now atomic.Pointer[time.Time]

func init() {
	t := time.Now()
	now.Store(&t)

	ticker := time.NewTicker(Resolution)
	go func() {
		for t := range ticker.C {
			now.Store(&t)
		}
	}()
}

// Now returns the current time, up to Resolution old.
func Now() time.Time {
	return *now.Load()
}

// Since returns the coarse time elapsed since t.
func Since(t time.Time) time.Duration {
	return Now().Sub(t)
}

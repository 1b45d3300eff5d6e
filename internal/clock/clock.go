// Package clock provides a monotonic microsecond timebase that never
// rolls over. Components take a clock function so tests can substitute
// a fake timebase.
package clock

import "time"

var start = time.Now()

// Micros returns microseconds elapsed since process start.
func Micros() uint64 {
	return uint64(time.Since(start).Microseconds())
}

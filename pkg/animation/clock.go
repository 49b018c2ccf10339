package animation

import "time"

// Clock provides time for frame stepping. Tests inject a fake clock to
// control elapsed frame time deterministically.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now.
func (SystemClock) Now() time.Time { return time.Now() }

// Package animation measures the frame time fed to widget animations.
//
// Animations are advanced centrally, once per frame: the engine asks a
// Ticker for the time elapsed since the previous animation pass and hands
// it to every widget with a pending animation job. Interpolation is left to
// the widgets.
package animation

import "time"

// MaxStep caps the elapsed time reported for one frame, so a stalled loop
// does not make animations jump.
const MaxStep = 250 * time.Millisecond

// Ticker reports the time between consecutive animation passes.
//
// Ticker is not safe for concurrent use; it belongs to the frame loop.
type Ticker struct {
	clock  Clock
	last   time.Time
	active bool
}

// NewTicker creates a ticker reading clock. A nil clock reads the wall clock.
func NewTicker(clock Clock) *Ticker {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Ticker{clock: clock}
}

// Tick returns the time since the previous Tick, capped at MaxStep. The
// first Tick after NewTicker or Stop returns zero.
func (t *Ticker) Tick() time.Duration {
	now := t.clock.Now()
	if !t.active {
		t.active = true
		t.last = now
		return 0
	}
	elapsed := now.Sub(t.last)
	t.last = now
	if elapsed < 0 {
		return 0
	}
	return min(elapsed, MaxStep)
}

// Stop ends the current run of frames. Call it when no animation is pending
// so the idle gap is not reported to the next animation.
func (t *Ticker) Stop() {
	t.active = false
}

// IsActive reports whether the ticker is inside a run of frames.
func (t *Ticker) IsActive() bool {
	return t.active
}

package engine

import (
	"sync"
	"time"
)

const (
	frameTraceSamplesDefault   = 240
	defaultFrameTraceThreshold = 16667 * time.Microsecond
)

// FramePhaseTimings captures time spent in each frame phase.
type FramePhaseTimings struct {
	Dispatch time.Duration `json:"dispatch"`
	Surface  time.Duration `json:"surface"`
	Animate  time.Duration `json:"animate"`
	Layout   time.Duration `json:"layout"`
	Paint    time.Duration `json:"paint"`
}

// FrameStats describes the work one frame did.
type FrameStats struct {
	Frame       uint64            `json:"frame"`
	Deferred    int               `json:"deferred"`
	Dispatched  int               `json:"dispatched"`
	Jobs        int               `json:"jobs"`
	Animated    int               `json:"animated"`
	LayoutRoots int               `json:"layoutRoots"`
	Painted     int               `json:"painted"`
	Entities    int               `json:"entities"`
	Duration    time.Duration     `json:"duration"`
	Phases      FramePhaseTimings `json:"phases"`
}

// Idle reports whether the frame found nothing to do.
func (s FrameStats) Idle() bool {
	return s.Deferred == 0 && s.Dispatched == 0 && s.Jobs == 0 &&
		s.Animated == 0 && s.LayoutRoots == 0 && s.Painted == 0
}

// FrameTimeline is a chronological view of recent frames.
type FrameTimeline struct {
	Samples       []FrameStats  `json:"samples"`
	DroppedFrames int           `json:"droppedFrames"`
	Threshold     time.Duration `json:"threshold"`
}

// FrameTraceBuffer stores recent frame stats in a ring buffer.
type FrameTraceBuffer struct {
	mu        sync.RWMutex
	samples   []FrameStats
	index     int
	count     int
	dropped   int
	threshold time.Duration
}

// NewFrameTraceBuffer creates a new frame trace buffer. Frames slower than
// threshold count as dropped.
func NewFrameTraceBuffer(capacity int, threshold time.Duration) *FrameTraceBuffer {
	if capacity <= 0 {
		capacity = frameTraceSamplesDefault
	}
	if threshold <= 0 {
		threshold = defaultFrameTraceThreshold
	}
	return &FrameTraceBuffer{
		samples:   make([]FrameStats, capacity),
		threshold: threshold,
	}
}

// Capacity returns the buffer capacity.
func (b *FrameTraceBuffer) Capacity() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.samples)
}

// Add records a frame and updates the dropped frame count.
func (b *FrameTraceBuffer) Add(stats FrameStats) {
	b.mu.Lock()
	b.samples[b.index] = stats
	b.index = (b.index + 1) % len(b.samples)
	if b.count < len(b.samples) {
		b.count++
	}
	if stats.Duration > b.threshold {
		b.dropped++
	}
	b.mu.Unlock()
}

// Snapshot returns a chronological copy of the samples.
func (b *FrameTraceBuffer) Snapshot() FrameTimeline {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.count == 0 {
		return FrameTimeline{Threshold: b.threshold}
	}

	result := make([]FrameStats, b.count)
	if b.count < len(b.samples) {
		copy(result, b.samples[:b.count])
	} else {
		copy(result, b.samples[b.index:])
		copy(result[len(b.samples)-b.index:], b.samples[:b.index])
	}

	return FrameTimeline{
		Samples:       result,
		DroppedFrames: b.dropped,
		Threshold:     b.threshold,
	}
}

// Timeline returns the engine's recent frames. It is safe to call from any
// goroutine.
func (e *Engine) Timeline() FrameTimeline {
	return e.trace.Snapshot()
}

// Frames returns the number of frames run.
func (e *Engine) Frames() uint64 {
	return e.frames
}

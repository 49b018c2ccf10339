package testing

import (
	"time"

	"github.com/go-drift/reflow/pkg/arena"
	"github.com/go-drift/reflow/pkg/geometry"
	"github.com/go-drift/reflow/pkg/layout"
)

// Recorder is a widget that records the capabilities invoked on it.
// Configure it before registering; read the counters afterwards. It must be
// used from the engine's goroutine.
type Recorder struct {
	arena.Base

	// Size is the size Layout asks for, clamped to the constraints.
	Size geometry.Size
	// AnimationFrames is how many more animation steps report that the
	// animation is still running.
	AnimationFrames int
	// Consume makes HandleEvent report events as consumed.
	Consume bool
	// OnLayout, if set, runs at the start of every Layout.
	OnLayout func(ctx *arena.Context, c geometry.Constraints)
	// OnReconcile, if set, runs on every ReconcileChildren.
	OnReconcile func(ctx *arena.Context)
	// OnDispose, if set, runs when the widget is released.
	OnDispose func(ctx *arena.Context)

	Animations  int
	Elapsed     []time.Duration
	Reconciles  int
	Layouts     int
	Constraints []geometry.Constraints
	Paints      int
	Events      []any
	Disposed    int
}

// AdvanceAnimations records elapsed and reports whether frames remain.
func (r *Recorder) AdvanceAnimations(ctx *arena.Context, elapsed time.Duration) bool {
	r.Animations++
	r.Elapsed = append(r.Elapsed, elapsed)
	if r.AnimationFrames > 0 {
		r.AnimationFrames--
	}
	return r.AnimationFrames > 0
}

// ReconcileChildren counts the call and runs OnReconcile.
func (r *Recorder) ReconcileChildren(ctx *arena.Context) {
	r.Reconciles++
	if r.OnReconcile != nil {
		r.OnReconcile(ctx)
	}
}

// Layout records c, lays out every child within the loosened constraints,
// and returns Size clamped to c.
func (r *Recorder) Layout(ctx *arena.Context, c geometry.Constraints) geometry.Size {
	r.Layouts++
	r.Constraints = append(r.Constraints, c)
	if r.OnLayout != nil {
		r.OnLayout(ctx, c)
	}
	child := geometry.Loose(c.Biggest())
	for _, h := range ctx.Arena.Children(ctx.Handle) {
		layout.LayoutChild(ctx.Arena, h, child)
	}
	return c.Constrain(r.Size)
}

// Paint counts the call.
func (r *Recorder) Paint(ctx *arena.Context) {
	r.Paints++
}

// HandleEvent records the event and reports Consume.
func (r *Recorder) HandleEvent(ctx *arena.Context, event any) bool {
	r.Events = append(r.Events, event)
	return r.Consume
}

// Dispose counts the release and runs OnDispose.
func (r *Recorder) Dispose(ctx *arena.Context) {
	r.Disposed++
	if r.OnDispose != nil {
		r.OnDispose(ctx)
	}
}

// Reset clears the counters, keeping the configuration.
func (r *Recorder) Reset() {
	r.Animations = 0
	r.Elapsed = nil
	r.Reconciles = 0
	r.Layouts = 0
	r.Constraints = nil
	r.Paints = 0
	r.Events = nil
	r.Disposed = 0
}

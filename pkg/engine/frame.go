package engine

import (
	"slices"

	"github.com/go-drift/reflow/pkg/arena"
	"github.com/go-drift/reflow/pkg/entity"
	"github.com/go-drift/reflow/pkg/errors"
	"github.com/go-drift/reflow/pkg/jobs"
)

// maxSurfacePasses bounds how many times ProcessSurface drains jobs queued
// by the jobs it is processing. Anything left waits for the next frame.
const maxSurfacePasses = 16

// RunFrame runs one frame and returns what it did.
func (e *Engine) RunFrame() FrameStats {
	start := e.clock.Now()
	e.frames++
	stats := FrameStats{Frame: e.frames}

	phase := e.clock.Now()
	stats.Deferred = e.graph.FlushDeferred()
	callbacks := e.drainDispatchQueue()
	for _, callback := range callbacks {
		e.runDispatched(callback)
	}
	stats.Dispatched = len(callbacks)
	stats.Phases.Dispatch = e.clock.Now().Sub(phase)

	phase = e.clock.Now()
	stats.Jobs = e.ProcessSurface()
	stats.Phases.Surface = e.clock.Now().Sub(phase)

	phase = e.clock.Now()
	stats.Animated = e.animate()
	stats.Jobs += e.ProcessSurface()
	stats.Phases.Animate = e.clock.Now().Sub(phase)

	phase = e.clock.Now()
	stats.LayoutRoots = e.flushLayout()
	stats.Phases.Layout = e.clock.Now().Sub(phase)

	phase = e.clock.Now()
	stats.Painted = e.flushPaint()
	stats.Phases.Paint = e.clock.Now().Sub(phase)

	stats.Entities = e.arena.Len()
	stats.Duration = e.clock.Now().Sub(start)
	e.trace.Add(stats)

	e.log.V(1).Info("frame",
		"frame", stats.Frame,
		"deferred", stats.Deferred,
		"dispatched", stats.Dispatched,
		"jobs", stats.Jobs,
		"animated", stats.Animated,
		"layoutRoots", stats.LayoutRoots,
		"painted", stats.Painted,
		"duration", stats.Duration,
	)
	return stats
}

func (e *Engine) runDispatched(callback func()) {
	_ = errors.Catch("engine.Dispatch", errors.KindDispatch, "", callback)
}

// ProcessSurface drains every non-animation job and handles it, leaving
// animation jobs queued for the animation pass. It returns the number of
// jobs handled.
func (e *Engine) ProcessSurface() int {
	handled := 0
	for range maxSurfacePasses {
		batch := e.queue.DrainNonAnimation()
		if len(batch) == 0 {
			break
		}
		for _, j := range batch {
			e.handleJob(j)
		}
		handled += len(batch)
	}
	return handled
}

func (e *Engine) handleJob(j jobs.Job) {
	e.log.V(2).Info("job", "job", j)
	switch j.Kind {
	case jobs.Reconcile:
		e.invoke("engine.Reconcile", j.Handle, func(w arena.Widget, ctx *arena.Context) {
			w.ReconcileChildren(ctx)
		})
	case jobs.Layout:
		e.arena.MarkNeedsLayout(j.Handle)
		e.schedulePaint(j.Handle)
	case jobs.Paint:
		e.schedulePaint(j.Handle)
	case jobs.Unregister:
		// Dispose panics are already reported.
		_ = e.arena.Unregister(j.Handle)
	}
}

// animate takes every queued job and advances each animation once with the
// frame's elapsed time. Advanced widgets are painted this frame; those that
// report they are still animating get another step next frame. Other jobs
// found in the queue are handled normally.
func (e *Engine) animate() int {
	pending := e.queue.Drain()
	var steps []entity.Handle
	for _, j := range pending {
		if j.Kind != jobs.Animation {
			e.handleJob(j)
			continue
		}
		steps = append(steps, j.Handle)
	}
	if len(steps) == 0 {
		e.ticker.Stop()
		return 0
	}

	elapsed := e.ticker.Tick()
	for _, h := range steps {
		running := false
		ok := e.invoke("engine.AdvanceAnimations", h, func(w arena.Widget, ctx *arena.Context) {
			running = w.AdvanceAnimations(ctx, elapsed)
		})
		if !ok || !e.arena.Contains(h) {
			continue
		}
		e.schedulePaint(h)
		if running {
			e.queue.RequestAnimation(h, jobs.CompanionNone)
		}
	}
	return len(steps)
}

func (e *Engine) flushLayout() int {
	return e.pipeline.Flush(e.arena, e.cfg.SurfaceConstraints())
}

func (e *Engine) schedulePaint(h entity.Handle) {
	if !slices.Contains(e.paint, h) {
		e.paint = append(e.paint, h)
	}
}

// flushPaint paints the scheduled widgets parents first.
func (e *Engine) flushPaint() int {
	pending := e.paint
	e.paint = nil
	slices.SortStableFunc(pending, func(x, y entity.Handle) int {
		return e.arena.Depth(x) - e.arena.Depth(y)
	})
	painted := 0
	for _, h := range pending {
		if e.invoke("engine.Paint", h, func(w arena.Widget, ctx *arena.Context) {
			w.Paint(ctx)
		}) {
			painted++
		}
	}
	return painted
}

// invoke checks h out and calls fn with it. A panic is reported as a
// widget error naming h. It returns false if h did not resolve or fn
// panicked.
func (e *Engine) invoke(op string, h entity.Handle, fn func(w arena.Widget, ctx *arena.Context)) bool {
	ok := false
	err := errors.Catch(op, errors.KindWidget, h.String(), func() {
		ok = e.arena.WithMut(h, func(w arena.Widget) {
			fn(w, e.arena.Context(h))
		})
	})
	return ok && err == nil
}

package engine

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/go-drift/reflow/pkg/arena"
	"github.com/go-drift/reflow/pkg/config"
	"github.com/go-drift/reflow/pkg/entity"
	"github.com/go-drift/reflow/pkg/errors"
	"github.com/go-drift/reflow/pkg/geometry"
	"github.com/go-drift/reflow/pkg/jobs"
	"github.com/go-drift/reflow/pkg/reactive"
	reflowtest "github.com/go-drift/reflow/pkg/testing"
)

func newEngine(t *testing.T, opts ...Option) (*Engine, *reflowtest.FakeClock) {
	t.Helper()
	clk := reflowtest.NewFakeClock()
	e, err := New(config.Default(), append([]Option{WithClock(clk)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e, clk
}

type capturedErrors struct {
	mu   sync.Mutex
	errs []*errors.EngineError
}

func (c *capturedErrors) HandleError(err *errors.EngineError) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, err)
}

func captureErrors(t *testing.T) *capturedErrors {
	t.Helper()
	c := &capturedErrors{}
	errors.SetHandler(c)
	t.Cleanup(func() { errors.SetHandler(nil) })
	return c
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Engine.CrossThread = "sometimes"

	_, err := New(cfg)

	var engineErr *errors.EngineError
	require.True(t, stderrors.As(err, &engineErr))
	assert.Equal(t, errors.KindConfig, engineErr.Kind)
}

func TestRegisterRunsFirstFrame(t *testing.T) {
	e, _ := newEngine(t)
	rec := &reflowtest.Recorder{Size: geometry.Size{Width: 10, Height: 10}}

	h := e.Register(rec, entity.Nil)
	assert.True(t, e.Scheduler().FrameRequested())

	stats := e.RunFrame()

	assert.Equal(t, 1, rec.Reconciles)
	assert.Equal(t, 1, rec.Layouts)
	assert.Equal(t, 1, rec.Paints)
	assert.Equal(t, []geometry.Constraints{e.Config().SurfaceConstraints()}, rec.Constraints)
	assert.Equal(t, 3, stats.Jobs)
	assert.Equal(t, 1, stats.LayoutRoots)
	assert.Equal(t, 1, stats.Painted)
	assert.False(t, e.Arena().IsDirty(h))

	idle := e.RunFrame()
	assert.True(t, idle.Idle())
	assert.Equal(t, 1, rec.Layouts)
}

func TestRegisterUnderParent(t *testing.T) {
	e, _ := newEngine(t)
	parent := e.Register(&reflowtest.Recorder{}, entity.Nil)
	child := e.Register(&reflowtest.Recorder{}, parent)

	got, ok := e.Arena().Parent(child)
	require.True(t, ok)
	assert.Equal(t, parent, got)
}

func TestWatchRequestsJobOnRerun(t *testing.T) {
	e, _ := newEngine(t)
	rec := &reflowtest.Recorder{}
	h := e.Register(rec, entity.Nil)
	e.RunFrame()

	width := reactive.NewSignal(e.Graph(), 10.0)
	runs := 0
	eff := e.Watch(h, jobs.Layout, func() {
		runs++
		rec.Size.Width = width.Get()
	})
	require.NotNil(t, eff)
	assert.Equal(t, 1, runs)
	assert.Zero(t, e.Queue().Len(), "the first run requests nothing")

	width.Set(20)
	assert.Equal(t, 2, runs)
	assert.True(t, e.Queue().Contains(h, jobs.Layout))

	stats := e.RunFrame()
	assert.Equal(t, 2, rec.Layouts)
	assert.Equal(t, 1, stats.LayoutRoots)
}

func TestWatchBatchedWritesRequestOnce(t *testing.T) {
	e, _ := newEngine(t)
	h := e.Register(&reflowtest.Recorder{}, entity.Nil)
	e.RunFrame()

	s := reactive.NewSignal(e.Graph(), 0)
	runs := 0
	e.Watch(h, jobs.Paint, func() {
		runs++
		s.Get()
	})

	e.Graph().Batch(func() {
		s.Set(1)
		s.Set(2)
		s.Set(3)
		assert.Equal(t, 1, runs, "effects settle after the batch")
	})
	assert.Equal(t, 2, runs)
	assert.Equal(t, 1, e.Queue().Len())
}

func TestWatchStaleHandle(t *testing.T) {
	e, _ := newEngine(t)
	h := e.Register(&reflowtest.Recorder{}, entity.Nil)
	e.Arena().Unregister(h)

	assert.Nil(t, e.Watch(h, jobs.Layout, func() { t.Error("effect should not run") }))
}

func TestUnregisterDisposesBindings(t *testing.T) {
	e, _ := newEngine(t)
	parent := e.Register(&reflowtest.Recorder{}, entity.Nil)
	child := e.Register(&reflowtest.Recorder{}, parent)
	e.RunFrame()

	s := reactive.NewSignal(e.Graph(), 0)
	parentEff := e.Watch(parent, jobs.Paint, func() { s.Get() })
	childEff := e.Watch(child, jobs.Layout, func() { s.Get() })
	assert.Equal(t, 1, e.Bindings(child))

	e.Unregister(parent)
	e.RunFrame()

	assert.False(t, e.Arena().Contains(parent))
	assert.False(t, e.Arena().Contains(child))
	assert.True(t, parentEff.Disposed())
	assert.True(t, childEff.Disposed())
	assert.Zero(t, e.Bindings(child))
	assert.Empty(t, e.Graph().Subscribers(s.ID()))

	s.Set(1)
	assert.Zero(t, e.Queue().Len(), "disposed effects request nothing")
}

func TestAnimationPass(t *testing.T) {
	e, clk := newEngine(t)
	rec := &reflowtest.Recorder{AnimationFrames: 2}
	h := e.Register(rec, entity.Nil)
	e.RunFrame()
	rec.Reset()

	e.RequestAnimation(h, jobs.CompanionLayout)
	assert.Equal(t, 2, e.Queue().Len())

	stats := e.RunFrame()
	assert.Equal(t, 1, stats.Animated)
	assert.Equal(t, 1, rec.Animations)
	assert.Equal(t, 1, rec.Layouts, "the layout companion runs in the same frame")
	assert.Equal(t, 1, rec.Paints)
	assert.True(t, e.Queue().Contains(h, jobs.Animation), "still animating")

	clk.Advance(16 * time.Millisecond)
	stats = e.RunFrame()
	assert.Equal(t, 1, stats.Animated)
	assert.Equal(t, []time.Duration{0, 16 * time.Millisecond}, rec.Elapsed)
	assert.False(t, e.Queue().Contains(h, jobs.Animation), "animation finished")

	stats = e.RunFrame()
	assert.Zero(t, stats.Animated)
	assert.Equal(t, 2, rec.Animations)
}

func TestAnimationJobSurvivesProcessSurface(t *testing.T) {
	e, _ := newEngine(t)
	rec := &reflowtest.Recorder{}
	h := e.Register(rec, entity.Nil)
	e.RunFrame()

	e.RequestAnimation(h, jobs.CompanionPaint)
	assert.Equal(t, 1, e.ProcessSurface())
	assert.True(t, e.Queue().Contains(h, jobs.Animation))
	assert.Zero(t, rec.Animations)
}

func TestCrossGoroutineWritesReplayNextFrame(t *testing.T) {
	e, _ := newEngine(t)
	rec := &reflowtest.Recorder{}
	h := e.Register(rec, entity.Nil)
	e.RunFrame()
	e.Scheduler().TakeFrameRequested()

	s := reactive.NewSignal(e.Graph(), 0)
	runs := 0
	e.Watch(h, jobs.Layout, func() {
		runs++
		s.Get()
	})

	var g errgroup.Group
	for i := range 8 {
		g.Go(func() error {
			s.Set(i + 1)
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 1, runs, "effects never run off the owning goroutine")
	assert.True(t, e.Scheduler().TakeFrameRequested())

	stats := e.RunFrame()
	assert.Equal(t, 1, stats.Deferred)
	assert.Equal(t, 2, runs)
	assert.Equal(t, 2, rec.Layouts)
}

func TestDispatch(t *testing.T) {
	e, _ := newEngine(t)
	var g errgroup.Group
	ran := 0
	for range 4 {
		g.Go(func() error {
			e.Dispatch(func() { ran++ })
			return nil
		})
	}
	require.NoError(t, g.Wait())
	e.Dispatch(nil)

	assert.Zero(t, ran)
	stats := e.RunFrame()
	assert.Equal(t, 4, ran)
	assert.Equal(t, 4, stats.Dispatched)
}

func TestDispatchPanicIsReported(t *testing.T) {
	captured := captureErrors(t)
	e, _ := newEngine(t)
	ran := false
	e.Dispatch(func() { panic("boom") })
	e.Dispatch(func() { ran = true })

	e.RunFrame()

	assert.True(t, ran, "later callbacks still run")
	require.Len(t, captured.errs, 1)
	assert.Equal(t, "engine.Dispatch", captured.errs[0].Op)
	assert.Equal(t, errors.KindDispatch, captured.errs[0].Kind)
}

func TestReconcileRegistersChildrenInSameFrame(t *testing.T) {
	e, _ := newEngine(t)
	child := &reflowtest.Recorder{}
	parent := &reflowtest.Recorder{}
	parent.OnReconcile = func(ctx *arena.Context) {
		if len(ctx.Arena.Children(ctx.Handle)) == 0 {
			e.Register(child, ctx.Handle)
		}
	}
	e.Register(parent, entity.Nil)

	e.RunFrame()

	assert.Equal(t, 1, child.Reconciles)
	assert.Equal(t, 1, child.Layouts)
	assert.Equal(t, 1, child.Paints)
	assert.Equal(t, 1, parent.Reconciles)
}

func TestWidgetPanicIsReported(t *testing.T) {
	captured := captureErrors(t)
	e, _ := newEngine(t)
	bad := &reflowtest.Recorder{OnReconcile: func(*arena.Context) { panic("bad widget") }}
	good := &reflowtest.Recorder{}
	badH := e.Register(bad, entity.Nil)
	e.Register(good, entity.Nil)

	e.RunFrame()

	assert.Equal(t, 1, good.Reconciles)
	assert.Equal(t, 1, good.Paints)
	require.Len(t, captured.errs, 1)
	assert.Equal(t, "engine.Reconcile", captured.errs[0].Op)
	assert.Equal(t, errors.KindWidget, captured.errs[0].Kind)
	assert.Equal(t, badH.String(), captured.errs[0].Entity)
	v, _ := errors.Panicked(captured.errs[0])
	assert.Equal(t, "bad widget", v)
	assert.True(t, e.Arena().Contains(badH), "the widget is restored after a panic")
}

func TestLayoutPanicKeepsInvalidationAlive(t *testing.T) {
	captured := captureErrors(t)
	e, _ := newEngine(t)
	failOnce := true
	root := &reflowtest.Recorder{OnLayout: func(*arena.Context, geometry.Constraints) {
		if failOnce {
			failOnce = false
			panic("layout failed")
		}
	}}
	leaf := &reflowtest.Recorder{}
	rh := e.Register(root, entity.Nil)
	lh := e.Register(leaf, rh)

	stats := e.RunFrame()
	assert.Zero(t, stats.LayoutRoots)
	require.Len(t, captured.errs, 1)
	assert.Equal(t, errors.KindWidget, captured.errs[0].Kind)
	assert.Equal(t, rh.String(), captured.errs[0].Entity)
	assert.True(t, e.Arena().IsDirty(rh))
	assert.Equal(t, 1, e.Arena().PendingLayoutRoots(), "the failed root waits for the next frame")

	e.Queue().Request(lh, jobs.Layout)
	e.RunFrame()
	assert.Equal(t, 2, root.Layouts)
	assert.Equal(t, 1, leaf.Layouts)
	assert.False(t, e.Arena().IsDirty(rh))
	assert.False(t, e.Arena().IsDirty(lh))

	e.Queue().Request(lh, jobs.Layout)
	e.RunFrame()
	assert.Equal(t, 3, root.Layouts)
	assert.Equal(t, 2, leaf.Layouts)
}

func TestHandleEventBubbles(t *testing.T) {
	e, _ := newEngine(t)
	root := &reflowtest.Recorder{Consume: true}
	leaf := &reflowtest.Recorder{}
	rh := e.Register(root, entity.Nil)
	lh := e.Register(leaf, rh)

	assert.True(t, e.HandleEvent(lh, "tap"))
	assert.Equal(t, []any{"tap"}, leaf.Events)
	assert.Equal(t, []any{"tap"}, root.Events)

	root.Consume = false
	assert.False(t, e.HandleEvent(lh, "key"))

	e.Arena().Unregister(rh)
	assert.False(t, e.HandleEvent(lh, "tap"), "stale handles consume nothing")
}

func TestRunProcessesFramesUntilCancelled(t *testing.T) {
	e, _ := newEngine(t)
	rec := &reflowtest.Recorder{}
	e.Register(rec, entity.Nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var g errgroup.Group
	g.Go(func() error {
		e.Dispatch(func() {
			if rec.Paints > 0 {
				cancel()
				return
			}
			e.Dispatch(cancel)
		})
		return nil
	})

	done := make(chan error, 1)
	go func() {
		// Run from a goroutine that does not own the engine.
		done <- e.Run(context.Background())
	}()
	assert.ErrorIs(t, <-done, ErrNotOwner)

	require.NoError(t, e.Run(ctx))
	require.NoError(t, g.Wait())
	assert.Equal(t, 1, rec.Paints)
	assert.GreaterOrEqual(t, e.Frames(), uint64(1))
}

func TestWakeHook(t *testing.T) {
	var wakes int
	var mu sync.Mutex
	e, _ := newEngine(t, WithWake(func() {
		mu.Lock()
		wakes++
		mu.Unlock()
	}))

	e.Register(&reflowtest.Recorder{}, entity.Nil)
	e.RequestFrame()
	mu.Lock()
	assert.Equal(t, 1, wakes, "requests before the frame runs coalesce")
	mu.Unlock()

	e.Scheduler().TakeFrameRequested()
	e.RequestFrame()
	mu.Lock()
	assert.Equal(t, 2, wakes)
	mu.Unlock()
}

func TestCloseDisposesEverything(t *testing.T) {
	e, _ := newEngine(t)
	rec := &reflowtest.Recorder{}
	h := e.Register(rec, entity.Nil)
	e.Register(&reflowtest.Recorder{}, h)
	s := reactive.NewSignal(e.Graph(), 0)
	eff := e.Watch(h, jobs.Paint, func() { s.Get() })
	e.Dispatch(func() { t.Error("dropped callbacks must not run") })

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())

	assert.Zero(t, e.Arena().Len())
	assert.True(t, eff.Disposed())
	assert.Equal(t, 1, rec.Disposed)
	assert.Zero(t, e.Queue().Len())
	e.RunFrame()
}

func TestCloseReturnsDisposePanics(t *testing.T) {
	captured := captureErrors(t)
	e, _ := newEngine(t)
	h := e.Register(&reflowtest.Recorder{}, entity.Nil)
	child := &reflowtest.Recorder{OnDispose: func(*arena.Context) { panic("dispose failed") }}
	ch := e.Register(child, h)
	sibling := &reflowtest.Recorder{}
	e.Register(sibling, h)

	err := e.Close()

	require.Error(t, err)
	var engineErr *errors.EngineError
	require.True(t, stderrors.As(err, &engineErr))
	assert.Equal(t, "arena.Dispose", engineErr.Op)
	assert.Equal(t, ch.String(), engineErr.Entity)
	assert.Equal(t, 1, sibling.Disposed, "the cascade continues past a failing Dispose")
	assert.Zero(t, e.Arena().Len())
	assert.Len(t, captured.errs, 1)
}

func TestTimeline(t *testing.T) {
	e, _ := newEngine(t)
	e.Register(&reflowtest.Recorder{}, entity.Nil)
	e.RunFrame()
	e.RunFrame()

	timeline := e.Timeline()
	require.Len(t, timeline.Samples, 2)
	assert.Equal(t, uint64(1), timeline.Samples[0].Frame)
	assert.Equal(t, uint64(2), timeline.Samples[1].Frame)
	assert.Zero(t, timeline.DroppedFrames, "the fake clock never advances during a frame")
}

func TestFrameTraceBufferWraps(t *testing.T) {
	b := NewFrameTraceBuffer(2, time.Millisecond)
	b.Add(FrameStats{Frame: 1})
	b.Add(FrameStats{Frame: 2, Duration: 5 * time.Millisecond})
	b.Add(FrameStats{Frame: 3})

	timeline := b.Snapshot()
	require.Len(t, timeline.Samples, 2)
	assert.Equal(t, uint64(2), timeline.Samples[0].Frame)
	assert.Equal(t, uint64(3), timeline.Samples[1].Frame)
	assert.Equal(t, 1, timeline.DroppedFrames)
	assert.Equal(t, 2, b.Capacity())
}

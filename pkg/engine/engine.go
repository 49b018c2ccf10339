// Package engine runs frames over a reactive graph, a widget arena, and a
// job queue owned by one goroutine.
//
// The goroutine that calls New owns the engine. Every method except
// Dispatch, RequestFrame, and Wake must be called from it. Other goroutines
// may write signals; with the default cross-thread policy their
// notifications are replayed at the start of the next frame.
//
// A frame runs these phases in order:
//
//  1. replay deferred signal notifications
//  2. run dispatched callbacks
//  3. process reconcile, layout, paint, and unregister jobs
//  4. advance animations once for every widget with an animation job
//  5. flush the layout pipeline
//  6. paint widgets that asked for it
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-logr/logr"
	"go.uber.org/multierr"

	"github.com/go-drift/reflow/pkg/animation"
	"github.com/go-drift/reflow/pkg/arena"
	"github.com/go-drift/reflow/pkg/config"
	"github.com/go-drift/reflow/pkg/entity"
	"github.com/go-drift/reflow/pkg/errors"
	"github.com/go-drift/reflow/pkg/frame"
	"github.com/go-drift/reflow/pkg/jobs"
	"github.com/go-drift/reflow/pkg/layout"
	"github.com/go-drift/reflow/pkg/reactive"
)

// ErrNotOwner is returned by Run when called off the owning goroutine.
var ErrNotOwner = fmt.Errorf("engine: Run called off the owning goroutine")

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for the engine and the graph and arena it
// creates.
func WithLogger(log logr.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// WithClock sets the clock animation frame time is read from.
func WithClock(clock animation.Clock) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithWake registers a host wake primitive called, in addition to waking
// Run, whenever a frame becomes requested. It must be goroutine-safe.
func WithWake(fn func()) Option {
	return func(e *Engine) {
		e.hostWake = fn
	}
}

// Engine composes the reactive graph, the arena, the job queue, and the
// frame scheduler.
type Engine struct {
	cfg      config.Config
	log      logr.Logger
	clock    animation.Clock
	hostWake func()

	graph     *reactive.Graph
	arena     *arena.Arena
	queue     *jobs.Queue
	scheduler *frame.Scheduler
	waker     *frame.ChannelWaker
	pipeline  layout.Pipeline
	ticker    *animation.Ticker
	trace     *FrameTraceBuffer

	dispatchMu    sync.Mutex
	dispatchQueue []func()

	bindings       map[entity.Handle][]*reactive.Effect
	removeListener func()
	paint          []entity.Handle
	frames         uint64
	closed         bool
}

// New creates an engine owned by the calling goroutine.
func New(cfg config.Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &errors.EngineError{Op: "engine.New", Kind: errors.KindConfig, Err: err}
	}

	e := &Engine{
		cfg:       cfg,
		log:       logr.Discard(),
		clock:     animation.SystemClock{},
		scheduler: &frame.Scheduler{},
		waker:     frame.NewChannelWaker(),
		trace:     NewFrameTraceBuffer(0, 0),
		bindings:  make(map[entity.Handle][]*reactive.Effect),
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := e.scheduler.Init(e.wake); err != nil {
		return nil, &errors.EngineError{Op: "engine.New", Kind: errors.KindInit, Err: err}
	}
	e.graph = reactive.NewGraph(
		reactive.WithLogger(e.log.WithName("reactive")),
		reactive.WithCrossThreadPolicy(cfg.Policy()),
		reactive.WithMaxFlushPasses(cfg.Engine.MaxFlushPasses),
		reactive.WithDeferredNotify(e.scheduler.RequestFrame),
	)
	e.arena = arena.New(arena.WithLogger(e.log.WithName("arena")))
	e.queue = jobs.New(e.scheduler)
	e.queue.Grow(cfg.Jobs.Capacity)
	e.ticker = animation.NewTicker(e.clock)
	e.removeListener = e.arena.OnUnregister(e.unbind)
	return e, nil
}

func (e *Engine) wake() {
	e.waker.Wake()
	if e.hostWake != nil {
		e.hostWake()
	}
}

// Graph returns the engine's reactive graph.
func (e *Engine) Graph() *reactive.Graph {
	return e.graph
}

// Arena returns the engine's arena.
func (e *Engine) Arena() *arena.Arena {
	return e.arena
}

// Queue returns the engine's job queue.
func (e *Engine) Queue() *jobs.Queue {
	return e.queue
}

// Scheduler returns the engine's frame scheduler.
func (e *Engine) Scheduler() *frame.Scheduler {
	return e.scheduler
}

// Config returns the configuration the engine was created with.
func (e *Engine) Config() config.Config {
	return e.cfg
}

// Register stores w under parent, or as a root if parent is entity.Nil,
// and schedules it to be reconciled, laid out, and painted. A stale parent
// registers w as a root.
func (e *Engine) Register(w arena.Widget, parent entity.Handle) entity.Handle {
	h := e.arena.Register(w)
	if !parent.IsNil() {
		e.arena.SetParent(h, parent)
	}
	e.queue.Request(h, jobs.Reconcile)
	e.queue.Request(h, jobs.Layout)
	e.queue.Request(h, jobs.Paint)
	return h
}

// Unregister schedules h and its descendants for removal in the next frame.
func (e *Engine) Unregister(h entity.Handle) {
	e.queue.Request(h, jobs.Unregister)
}

// Watch creates an effect bound to h. fn runs immediately; every later run,
// triggered by a signal fn read, requests kind for h. The effect is disposed
// when h is unregistered. Watch returns nil if h is stale.
func (e *Engine) Watch(h entity.Handle, kind jobs.Kind, fn func()) *reactive.Effect {
	if !e.arena.Contains(h) {
		return nil
	}
	first := true
	eff := e.graph.NewEffect(func() {
		fn()
		if first {
			first = false
			return
		}
		if kind == jobs.Animation {
			e.queue.RequestAnimation(h, jobs.CompanionNone)
			return
		}
		e.queue.Request(h, kind)
	})
	e.bindings[h] = append(e.bindings[h], eff)
	return eff
}

func (e *Engine) unbind(h entity.Handle) {
	effects, ok := e.bindings[h]
	if !ok {
		return
	}
	delete(e.bindings, h)
	for _, eff := range effects {
		eff.Dispose()
	}
}

// Bindings returns the number of live effects bound to h.
func (e *Engine) Bindings(h entity.Handle) int {
	return len(e.bindings[h])
}

// RequestAnimation schedules an animation step for h with its companion job.
func (e *Engine) RequestAnimation(h entity.Handle, companion jobs.Companion) {
	e.queue.RequestAnimation(h, companion)
}

// RequestFrame asks for a frame without queueing any job. It is safe to
// call from any goroutine.
func (e *Engine) RequestFrame() {
	e.scheduler.RequestFrame()
}

// Dispatch schedules a callback to run on the owning goroutine during the
// next frame and is safe to call from any goroutine.
func (e *Engine) Dispatch(callback func()) {
	if callback == nil {
		return
	}
	e.dispatchMu.Lock()
	e.dispatchQueue = append(e.dispatchQueue, callback)
	e.dispatchMu.Unlock()
	e.scheduler.RequestFrame()
}

func (e *Engine) drainDispatchQueue() []func() {
	e.dispatchMu.Lock()
	callbacks := e.dispatchQueue
	e.dispatchQueue = nil
	e.dispatchMu.Unlock()
	return callbacks
}

// HandleEvent offers event to h and then to its ancestors until one of them
// consumes it. It reports whether the event was consumed.
func (e *Engine) HandleEvent(h entity.Handle, event any) bool {
	for cur, ok := h, e.arena.Contains(h); ok; cur, ok = e.arena.Parent(cur) {
		consumed := false
		e.invoke("engine.HandleEvent", cur, func(w arena.Widget, ctx *arena.Context) {
			consumed = w.HandleEvent(ctx, event)
		})
		if consumed {
			return true
		}
	}
	return false
}

// Run processes frames until ctx is done. It blocks on the engine's waker
// between frames, runs one frame for each taken frame request, and returns
// nil when ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	if !e.graph.OnOwner() {
		return ErrNotOwner
	}
	e.scheduler.RequestFrame()
	for {
		if ctx.Err() != nil {
			return nil
		}
		if e.scheduler.TakeFrameRequested() {
			e.RunFrame()
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-e.waker.C():
		}
	}
}

// Close unregisters every root, which disposes every bound effect, and
// drops pending dispatched callbacks. The returned error combines every
// Dispose that panicked. Close is idempotent.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true

	var err error
	for _, h := range e.arena.Handles() {
		if _, hasParent := e.arena.Parent(h); hasParent {
			continue
		}
		err = multierr.Append(err, e.arena.Unregister(h))
	}
	e.removeListener()
	for h := range e.bindings {
		e.unbind(h)
	}
	e.queue.Drain()
	if dropped := len(e.drainDispatchQueue()); dropped > 0 {
		e.log.V(1).Info("dropped dispatched callbacks on close", "count", dropped)
	}
	return err
}

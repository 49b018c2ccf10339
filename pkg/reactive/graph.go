package reactive

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/go-logr/logr"
	"github.com/petermattis/goid"

	"github.com/go-drift/reflow/pkg/errors"
)

// SignalID identifies a signal within its graph.
type SignalID uint64

// EffectID identifies an effect within its graph. Zero means "no effect".
type EffectID uint64

func (id EffectID) String() string {
	return fmt.Sprintf("effect(%d)", uint64(id))
}

// Policy controls what a signal write from a non-owning goroutine does
// after the value is stored.
type Policy int

const (
	// PolicyDefer queues the notification for the owning goroutine.
	PolicyDefer Policy = iota
	// PolicyDrop skips the notification.
	PolicyDrop
)

func (p Policy) String() string {
	switch p {
	case PolicyDefer:
		return "defer"
	case PolicyDrop:
		return "drop"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy converts a policy name ("defer" or "drop") to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "defer":
		return PolicyDefer, nil
	case "drop":
		return PolicyDrop, nil
	default:
		return PolicyDefer, fmt.Errorf("unknown cross-thread policy %q", s)
	}
}

// DefaultMaxFlushPasses bounds the number of drain passes in one flush.
const DefaultMaxFlushPasses = 10000

// Option configures a Graph.
type Option func(*Graph)

// WithLogger sets the graph's logger.
func WithLogger(log logr.Logger) Option {
	return func(g *Graph) {
		g.log = log
	}
}

// WithCrossThreadPolicy sets the policy for writes from non-owning goroutines.
func WithCrossThreadPolicy(p Policy) Option {
	return func(g *Graph) {
		g.policy = p
	}
}

// WithMaxFlushPasses bounds a single flush. Zero or less disables the bound.
func WithMaxFlushPasses(n int) Option {
	return func(g *Graph) {
		g.maxPasses = n
	}
}

// WithDeferredNotify registers a hook invoked, on the writing goroutine,
// whenever a notification is deferred. The hook must be goroutine-safe.
func WithDeferredNotify(fn func()) Option {
	return func(g *Graph) {
		g.onDeferred = fn
	}
}

// Graph owns the subscriber and dependency sets of its signals and effects.
//
// Graph is not safe for concurrent use except for the signal value paths
// described in the package documentation.
type Graph struct {
	owner      int64
	log        logr.Logger
	policy     Policy
	maxPasses  int
	onDeferred func()

	nextSignal atomic.Uint64
	nextEffect EffectID

	subscribers map[SignalID]mapset.Set[EffectID]
	effects     map[EffectID]*effectNode
	pending     mapset.Set[EffectID]
	current     EffectID
	batchDepth  int
	flushing    bool

	deferredMu sync.Mutex
	deferred   mapset.Set[SignalID]

	effectRuns atomic.Uint64
	flushes    atomic.Uint64
	deferrals  atomic.Uint64
	drops      atomic.Uint64
}

type effectNode struct {
	fn   func()
	deps mapset.Set[SignalID]
}

// NewGraph creates a graph owned by the calling goroutine.
func NewGraph(opts ...Option) *Graph {
	g := &Graph{
		owner:       goid.Get(),
		log:         logr.Discard(),
		maxPasses:   DefaultMaxFlushPasses,
		subscribers: make(map[SignalID]mapset.Set[EffectID]),
		effects:     make(map[EffectID]*effectNode),
		pending:     mapset.NewThreadUnsafeSet[EffectID](),
		deferred:    mapset.NewThreadUnsafeSet[SignalID](),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// OnOwner reports whether the calling goroutine owns the graph.
func (g *Graph) OnOwner() bool {
	return goid.Get() == g.owner
}

func (g *Graph) newSignalID() SignalID {
	return SignalID(g.nextSignal.Add(1))
}

// Batch runs fn with notifications deferred. Effects scheduled by writes
// inside fn run once, after the outermost batch returns.
func (g *Graph) Batch(fn func()) {
	g.batchDepth++
	defer func() {
		g.batchDepth--
		if g.batchDepth == 0 {
			g.flush()
		}
	}()
	fn()
}

// Untrack runs fn without recording dependencies for the current effect.
func (g *Graph) Untrack(fn func()) {
	prev := g.current
	g.current = 0
	defer func() {
		g.current = prev
	}()
	fn()
}

// track records an edge between the current effect and the signal.
func (g *Graph) track(id SignalID) {
	if g.current == 0 {
		return
	}
	node := g.effects[g.current]
	if node == nil {
		return
	}
	node.deps.Add(id)
	subs := g.subscribers[id]
	if subs == nil {
		subs = mapset.NewThreadUnsafeSet[EffectID]()
		g.subscribers[id] = subs
	}
	subs.Add(g.current)
}

// untrack removes every edge of an effect.
func (g *Graph) untrack(id EffectID, node *effectNode) {
	for _, sid := range node.deps.ToSlice() {
		if subs := g.subscribers[sid]; subs != nil {
			subs.Remove(id)
			if subs.Cardinality() == 0 {
				delete(g.subscribers, sid)
			}
		}
	}
	node.deps.Clear()
}

// notify handles a write to signal id.
func (g *Graph) notify(id SignalID) {
	if !g.OnOwner() {
		g.notifyForeign(id)
		return
	}
	g.schedule(id)
	if g.batchDepth == 0 {
		g.flush()
	}
}

// schedule copies the signal's subscribers into the pending set.
func (g *Graph) schedule(id SignalID) {
	subs := g.subscribers[id]
	if subs == nil {
		return
	}
	for _, eid := range subs.ToSlice() {
		g.pending.Add(eid)
	}
}

func (g *Graph) notifyForeign(id SignalID) {
	switch g.policy {
	case PolicyDrop:
		g.drops.Add(1)
		g.log.V(2).Info("dropped cross-goroutine notification", "signal", id)
	default:
		g.deferredMu.Lock()
		g.deferred.Add(id)
		g.deferredMu.Unlock()
		g.deferrals.Add(1)
		if g.onDeferred != nil {
			g.onDeferred()
		}
	}
}

// FlushDeferred replays notifications deferred by writes from other
// goroutines. It must be called on the owning goroutine; elsewhere it is a
// no-op. It returns the number of signals replayed.
func (g *Graph) FlushDeferred() int {
	if !g.OnOwner() {
		return 0
	}
	g.deferredMu.Lock()
	ids := g.deferred.ToSlice()
	g.deferred.Clear()
	g.deferredMu.Unlock()

	if len(ids) == 0 {
		return 0
	}
	slices.Sort(ids)
	g.Batch(func() {
		for _, id := range ids {
			g.schedule(id)
		}
	})
	g.log.V(2).Info("replayed deferred notifications", "signals", len(ids))
	return len(ids)
}

// flush drains the pending set until it stays empty.
func (g *Graph) flush() {
	if g.flushing {
		return
	}
	g.flushing = true
	defer func() {
		g.flushing = false
	}()

	passes := 0
	for g.pending.Cardinality() > 0 {
		passes++
		if g.maxPasses > 0 && passes > g.maxPasses {
			dropped := g.pending.Cardinality()
			g.pending.Clear()
			errors.Report(&errors.EngineError{
				Op:   "reactive.Flush",
				Kind: errors.KindCycle,
				Err:  fmt.Errorf("flush did not settle after %d passes, dropping %d pending effects", g.maxPasses, dropped),
			})
			return
		}

		batch := g.pending.ToSlice()
		g.pending.Clear()
		slices.Sort(batch)
		for _, id := range batch {
			g.run(id)
		}
	}
	g.flushes.Add(1)
}

// run executes an effect, rebuilding its dependency set from scratch.
func (g *Graph) run(id EffectID) {
	node := g.effects[id]
	if node == nil || node.fn == nil {
		return
	}
	g.untrack(id, node)

	prev := g.current
	g.current = id
	defer func() {
		g.current = prev
		if r := recover(); r != nil {
			errors.Report(errors.FromPanic("reactive.Effect", errors.KindEffect, id.String(), r))
		}
	}()

	g.effectRuns.Add(1)
	node.fn()
}

func (g *Graph) dispose(id EffectID) {
	node := g.effects[id]
	if node == nil {
		return
	}
	g.untrack(id, node)
	node.fn = nil
	delete(g.effects, id)
	g.pending.Remove(id)
}

// Subscribers returns the effects subscribed to a signal, in id order.
func (g *Graph) Subscribers(id SignalID) []EffectID {
	subs := g.subscribers[id]
	if subs == nil {
		return nil
	}
	out := subs.ToSlice()
	slices.Sort(out)
	return out
}

// Dependencies returns the signals an effect read on its last run, in id order.
func (g *Graph) Dependencies(id EffectID) []SignalID {
	node := g.effects[id]
	if node == nil {
		return nil
	}
	out := node.deps.ToSlice()
	slices.Sort(out)
	return out
}

// Pending reports the number of effects scheduled but not yet run.
func (g *Graph) Pending() int {
	return g.pending.Cardinality()
}

// Stats is a snapshot of graph counters.
type Stats struct {
	Effects               int
	Pending               int
	EffectRuns            uint64
	Flushes               uint64
	DeferredNotifications uint64
	DroppedNotifications  uint64
}

// Stats returns a snapshot of the graph counters. Call it on the owning
// goroutine.
func (g *Graph) Stats() Stats {
	return Stats{
		Effects:               len(g.effects),
		Pending:               g.pending.Cardinality(),
		EffectRuns:            g.effectRuns.Load(),
		Flushes:               g.flushes.Load(),
		DeferredNotifications: g.deferrals.Load(),
		DroppedNotifications:  g.drops.Load(),
	}
}

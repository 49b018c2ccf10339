package reactive

import mapset "github.com/deckarep/golang-set/v2"

// Effect is a callback re-run whenever a signal it read on its last run is
// written.
type Effect struct {
	g  *Graph
	id EffectID
}

// NewEffect registers fn and runs it once to establish its dependencies.
// Writes made by fn during that first run are batched until it returns.
func (g *Graph) NewEffect(fn func()) *Effect {
	g.nextEffect++
	id := g.nextEffect
	g.effects[id] = &effectNode{
		fn:   fn,
		deps: mapset.NewThreadUnsafeSet[SignalID](),
	}
	g.log.V(2).Info("effect created", "effect", id)

	g.Batch(func() {
		g.run(id)
	})
	return &Effect{g: g, id: id}
}

// ID returns the effect's id within its graph.
func (e *Effect) ID() EffectID {
	return e.id
}

// Run re-runs the effect now. A disposed effect does nothing.
func (e *Effect) Run() {
	e.g.Batch(func() {
		e.g.run(e.id)
	})
}

// Dispose removes the effect from every subscriber set and from the pending
// set. Calling Dispose again is a no-op.
func (e *Effect) Dispose() {
	e.g.dispose(e.id)
}

// Disposed reports whether Dispose has been called.
func (e *Effect) Disposed() bool {
	_, ok := e.g.effects[e.id]
	return !ok
}

package reactive

// Computed is a read-only signal kept current by an owned effect.
type Computed[T any] struct {
	signal *Signal[T]
	effect *Effect
}

// NewComputed creates a computed value from fn. fn runs immediately and again
// whenever a signal it read changes.
func NewComputed[T any](g *Graph, fn func() T) *Computed[T] {
	var zero T
	c := &Computed[T]{signal: NewSignal(g, zero)}
	c.effect = g.NewEffect(func() {
		c.signal.Set(fn())
	})
	return c
}

// NewComputedWithEquality is like NewComputed but only notifies readers when
// the recomputed value differs according to equal.
func NewComputedWithEquality[T any](g *Graph, fn func() T, equal func(a, b T) bool) *Computed[T] {
	var zero T
	c := &Computed[T]{signal: NewSignal(g, zero)}
	c.effect = g.NewEffect(func() {
		c.signal.Set(fn())
	})
	// Installed after the first run so the initial value is always stored.
	c.signal.equal = equal
	return c
}

// Get returns the current value, tracking it like Signal.Get.
func (c *Computed[T]) Get() T {
	return c.signal.Get()
}

// Peek returns the current value without tracking.
func (c *Computed[T]) Peek() T {
	return c.signal.Peek()
}

// SignalID returns the id of the underlying signal.
func (c *Computed[T]) SignalID() SignalID {
	return c.signal.ID()
}

// Dispose stops recomputation. The last value stays readable.
func (c *Computed[T]) Dispose() {
	c.effect.Dispose()
}

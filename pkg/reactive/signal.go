package reactive

import "sync"

// Signal is a reactive memory cell.
//
// Get, Peek, Set and Update are safe to call from any goroutine. Only Get on
// the owning goroutine records a dependency.
type Signal[T any] struct {
	g     *Graph
	id    SignalID
	mu    sync.RWMutex
	value T
	equal func(a, b T) bool
}

// NewSignal allocates a signal holding value.
func NewSignal[T any](g *Graph, value T) *Signal[T] {
	return &Signal[T]{
		g:     g,
		id:    g.newSignalID(),
		value: value,
	}
}

// NewSignalWithEquality allocates a signal that skips notification when a
// write is equal to the stored value.
func NewSignalWithEquality[T any](g *Graph, value T, equal func(a, b T) bool) *Signal[T] {
	s := NewSignal(g, value)
	s.equal = equal
	return s
}

// ID returns the signal's id within its graph.
func (s *Signal[T]) ID() SignalID {
	return s.id
}

// Get returns the value and, if an effect is running on the owning
// goroutine, subscribes that effect to the signal.
func (s *Signal[T]) Get() T {
	if s.g.OnOwner() {
		s.g.track(s.id)
	}
	return s.Peek()
}

// Peek returns the value without recording a dependency.
func (s *Signal[T]) Peek() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set stores value and notifies subscribers.
func (s *Signal[T]) Set(value T) {
	s.mu.Lock()
	if s.equal != nil && s.equal(s.value, value) {
		s.mu.Unlock()
		return
	}
	s.value = value
	s.mu.Unlock()

	s.g.notify(s.id)
}

// Update applies transform to the current value and notifies subscribers.
// The read and the write happen under one lock.
func (s *Signal[T]) Update(transform func(T) T) {
	s.mu.Lock()
	next := transform(s.value)
	if s.equal != nil && s.equal(s.value, next) {
		s.mu.Unlock()
		return
	}
	s.value = next
	s.mu.Unlock()

	s.g.notify(s.id)
}

package arena

import (
	"slices"

	"github.com/go-logr/logr"
	"go.uber.org/multierr"

	"github.com/go-drift/reflow/pkg/entity"
	"github.com/go-drift/reflow/pkg/errors"
	"github.com/go-drift/reflow/pkg/geometry"
)

type node struct {
	handle      entity.Handle
	widget      Widget
	parent      entity.Handle
	children    []entity.Handle
	dirty       bool
	boundary    bool
	checkedOut  bool
	hasLayout   bool
	constraints geometry.Constraints
	size        geometry.Size
}

type sparseEntry struct {
	dense      int
	generation uint32
	live       bool
}

// Option configures an Arena.
type Option func(*Arena)

// WithLogger sets the arena's logger.
func WithLogger(log logr.Logger) Option {
	return func(a *Arena) {
		a.log = log
	}
}

// Arena is a sparse set of widget nodes keyed by entity.Handle.
type Arena struct {
	log         logr.Logger
	nodes       []node
	sparse      []sparseEntry
	free        []uint32
	layoutRoots []entity.Handle
	listeners   []*unregisterListener
}

type unregisterListener struct {
	fn func(entity.Handle)
}

// New creates an empty arena.
func New(opts ...Option) *Arena {
	a := &Arena{log: logr.Discard()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// lookup resolves a handle to its dense index.
func (a *Arena) lookup(h entity.Handle) (int, bool) {
	if int(h.Slot) >= len(a.sparse) {
		return 0, false
	}
	e := a.sparse[h.Slot]
	if !e.live || e.generation != h.Generation {
		return 0, false
	}
	return e.dense, true
}

func (a *Arena) node(h entity.Handle) *node {
	idx, ok := a.lookup(h)
	if !ok {
		return nil
	}
	return &a.nodes[idx]
}

// Register stores w and returns its handle. A freed slot is reused with its
// generation bumped; otherwise a new slot starts at generation 1.
func (a *Arena) Register(w Widget) entity.Handle {
	var h entity.Handle
	if n := len(a.free); n > 0 {
		slot := a.free[n-1]
		a.free = a.free[:n-1]
		a.sparse[slot].generation++
		h = entity.Handle{Slot: slot, Generation: a.sparse[slot].generation}
	} else {
		slot := uint32(len(a.sparse))
		a.sparse = append(a.sparse, sparseEntry{generation: 1})
		h = entity.Handle{Slot: slot, Generation: 1}
	}

	a.sparse[h.Slot].dense = len(a.nodes)
	a.sparse[h.Slot].live = true
	a.nodes = append(a.nodes, node{handle: h, widget: w})

	w.Mount(h)
	a.log.V(2).Info("registered", "entity", h)
	return h
}

// Unregister removes h and then releases its widget and its children.
// Stale handles are ignored, so calling it twice is harmless.
//
// A Dispose that panics is reported and does not stop the cascade. The
// returned error combines every such panic under h.
func (a *Arena) Unregister(h entity.Handle) error {
	idx, ok := a.lookup(h)
	if !ok {
		return nil
	}

	n := &a.nodes[idx]
	w := n.widget
	parent := n.parent
	children := n.children
	n.children = nil

	if p := a.node(parent); p != nil {
		p.children = removeHandle(p.children, h)
	}

	last := len(a.nodes) - 1
	if idx != last {
		a.nodes[idx] = a.nodes[last]
		a.sparse[a.nodes[idx].handle.Slot].dense = idx
	}
	a.nodes[last] = node{}
	a.nodes = a.nodes[:last]

	a.sparse[h.Slot].live = false
	a.free = append(a.free, h.Slot)
	a.layoutRoots = removeHandle(a.layoutRoots, h)
	a.log.V(2).Info("unregistered", "entity", h, "children", len(children))

	for _, l := range slices.Clone(a.listeners) {
		if l.fn != nil {
			l.fn(h)
		}
	}

	// Releasing may unregister more handles; the arena is consistent here.
	err := a.release(h, w)

	for _, c := range children {
		if cn := a.node(c); cn != nil && cn.parent == h {
			err = multierr.Append(err, a.Unregister(c))
		}
	}
	return err
}

func (a *Arena) release(h entity.Handle, w Widget) error {
	d, ok := w.(Disposer)
	if !ok {
		return nil
	}
	return errors.Catch("arena.Dispose", errors.KindWidget, h.String(), func() {
		d.Dispose(&Context{Arena: a, Handle: h})
	})
}

// OnUnregister registers fn to be called with every unregistered handle,
// before its widget is released. The returned func removes the listener.
func (a *Arena) OnUnregister(fn func(entity.Handle)) (remove func()) {
	l := &unregisterListener{fn: fn}
	a.listeners = append(a.listeners, l)
	return func() {
		l.fn = nil
		for i, other := range a.listeners {
			if other == l {
				a.listeners = append(a.listeners[:i], a.listeners[i+1:]...)
				return
			}
		}
	}
}

// Contains reports whether h names a live entity.
func (a *Arena) Contains(h entity.Handle) bool {
	_, ok := a.lookup(h)
	return ok
}

// Len returns the number of live entities.
func (a *Arena) Len() int {
	return len(a.nodes)
}

// Handles returns the live handles in dense order.
func (a *Arena) Handles() []entity.Handle {
	out := make([]entity.Handle, len(a.nodes))
	for i := range a.nodes {
		out[i] = a.nodes[i].handle
	}
	return out
}

// Each calls fn for every live entity in dense order until fn returns false.
// fn must not register or unregister entities.
func (a *Arena) Each(fn func(h entity.Handle, w Widget) bool) {
	for i := range a.nodes {
		if !fn(a.nodes[i].handle, a.nodes[i].widget) {
			return
		}
	}
}

// Context returns a capability context for h.
func (a *Arena) Context(h entity.Handle) *Context {
	return &Context{Arena: a, Handle: h}
}

// With calls fn with the widget stored at h and reports whether h resolved.
// A widget that is currently checked out does not resolve.
func (a *Arena) With(h entity.Handle, fn func(w Widget)) bool {
	n := a.node(h)
	if n == nil || n.checkedOut {
		return false
	}
	fn(n.widget)
	return true
}

// WithMut checks the widget at h out of its slot, calls fn with it, and puts
// it back. fn may use the arena freely, including unregistering h; in that
// case the widget is released once fn returns instead of being restored.
// A widget that is already checked out does not resolve.
func (a *Arena) WithMut(h entity.Handle, fn func(w Widget)) bool {
	n := a.node(h)
	if n == nil || n.checkedOut {
		return false
	}
	w := n.widget
	n.widget = inert
	n.checkedOut = true

	defer func() {
		if n := a.node(h); n != nil {
			n.widget = w
			n.checkedOut = false
			return
		}
		_ = a.release(h, w)
	}()

	fn(w)
	return true
}

// Query is With with a result.
func Query[R any](a *Arena, h entity.Handle, fn func(w Widget) R) (R, bool) {
	var out R
	ok := a.With(h, func(w Widget) {
		out = fn(w)
	})
	return out, ok
}

// Update is WithMut with a result.
func Update[R any](a *Arena, h entity.Handle, fn func(w Widget) R) (R, bool) {
	var out R
	ok := a.WithMut(h, func(w Widget) {
		out = fn(w)
	})
	return out, ok
}

func removeHandle(list []entity.Handle, h entity.Handle) []entity.Handle {
	for i, other := range list {
		if other == h {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

package arena

import (
	"slices"

	"github.com/go-drift/reflow/pkg/entity"
)

// SetParent makes parent the parent of child, moving child out of its
// previous parent's child list. Children keep insertion order and appear at
// most once. It reports false if either handle is stale or the link would
// create a cycle.
func (a *Arena) SetParent(child, parent entity.Handle) bool {
	if child == parent || !a.Contains(child) || !a.Contains(parent) {
		return false
	}
	for cur := parent; !cur.IsNil(); {
		n := a.node(cur)
		if n == nil {
			break
		}
		if n.parent == child {
			return false
		}
		cur = n.parent
	}

	c := a.node(child)
	if c.parent != parent {
		if old := a.node(c.parent); old != nil {
			old.children = removeHandle(old.children, child)
		}
		c.parent = parent
	}
	p := a.node(parent)
	if !slices.Contains(p.children, child) {
		p.children = append(p.children, child)
	}
	return true
}

// ClearParent detaches child from its parent.
func (a *Arena) ClearParent(child entity.Handle) {
	c := a.node(child)
	if c == nil {
		return
	}
	if p := a.node(c.parent); p != nil {
		p.children = removeHandle(p.children, child)
	}
	c.parent = entity.Nil
}

// Parent returns the parent of h. It reports false for a root, a stale h,
// or a parent that is no longer live.
func (a *Arena) Parent(h entity.Handle) (entity.Handle, bool) {
	n := a.node(h)
	if n == nil || !a.Contains(n.parent) {
		return entity.Nil, false
	}
	return n.parent, true
}

// Children returns a copy of h's children in insertion order.
func (a *Arena) Children(h entity.Handle) []entity.Handle {
	n := a.node(h)
	if n == nil {
		return nil
	}
	return slices.Clone(n.children)
}

// Depth returns the number of live ancestors of h. Roots and stale handles
// have depth 0.
func (a *Arena) Depth(h entity.Handle) int {
	depth := 0
	for {
		p, ok := a.Parent(h)
		if !ok {
			return depth
		}
		depth++
		h = p
	}
}

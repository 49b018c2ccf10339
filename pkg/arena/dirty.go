package arena

import (
	"slices"

	"github.com/go-drift/reflow/pkg/entity"
	"github.com/go-drift/reflow/pkg/geometry"
)

// MarkNeedsLayout marks h dirty and walks up to the nearest relayout
// boundary or root, dirtying every node on the way and recording the node
// where it stopped as a layout root.
//
// The walk returns as soon as it meets a node that is already dirty: that
// node's own walk already scheduled a root. This relies on the layout pass
// clearing every node it visits.
func (a *Arena) MarkNeedsLayout(h entity.Handle) {
	current := h
	for {
		n := a.node(current)
		if n == nil {
			return
		}
		if n.dirty {
			return
		}
		n.dirty = true
		if n.boundary || n.parent.IsNil() {
			a.scheduleRoot(current)
			return
		}
		current = n.parent
	}
}

// IsDirty reports whether h needs layout.
func (a *Arena) IsDirty(h entity.Handle) bool {
	n := a.node(h)
	return n != nil && n.dirty
}

// ClearDirty clears h's dirty flag. Layout passes must call it on every node
// they lay out.
func (a *Arena) ClearDirty(h entity.Handle) {
	if n := a.node(h); n != nil {
		n.dirty = false
	}
}

// SetRelayoutBoundary marks whether h's size is independent of its
// descendants, which stops dirty propagation at h.
func (a *Arena) SetRelayoutBoundary(h entity.Handle, boundary bool) {
	if n := a.node(h); n != nil {
		n.boundary = boundary
	}
}

// IsRelayoutBoundary reports whether h is a relayout boundary.
func (a *Arena) IsRelayoutBoundary(h entity.Handle) bool {
	n := a.node(h)
	return n != nil && n.boundary
}

// CacheLayout stores the constraints h was last laid out with and the size
// it produced.
func (a *Arena) CacheLayout(h entity.Handle, c geometry.Constraints, size geometry.Size) {
	if n := a.node(h); n != nil {
		n.constraints = c
		n.size = size
		n.hasLayout = true
	}
}

// CachedConstraints returns the constraints of h's last layout.
func (a *Arena) CachedConstraints(h entity.Handle) (geometry.Constraints, bool) {
	n := a.node(h)
	if n == nil || !n.hasLayout {
		return geometry.Constraints{}, false
	}
	return n.constraints, true
}

// CachedSize returns the size of h's last layout.
func (a *Arena) CachedSize(h entity.Handle) (geometry.Size, bool) {
	n := a.node(h)
	if n == nil || !n.hasLayout {
		return geometry.Size{}, false
	}
	return n.size, true
}

// TakeLayoutRoots returns the handles scheduled for layout, in the order they
// were scheduled, and clears the set.
func (a *Arena) TakeLayoutRoots() []entity.Handle {
	roots := a.layoutRoots
	a.layoutRoots = nil
	return roots
}

// RescheduleLayoutRoot puts h back on the layout root list, for a root whose
// layout did not complete. h must still be dirty; clean or stale handles are
// ignored. Nodes below h that are still dirty are reached again through h.
func (a *Arena) RescheduleLayoutRoot(h entity.Handle) {
	if n := a.node(h); n != nil && n.dirty {
		a.scheduleRoot(h)
	}
}

func (a *Arena) scheduleRoot(h entity.Handle) {
	if !slices.Contains(a.layoutRoots, h) {
		a.layoutRoots = append(a.layoutRoots, h)
	}
}

// PendingLayoutRoots reports how many layout roots are scheduled.
func (a *Arena) PendingLayoutRoots() int {
	return len(a.layoutRoots)
}

// Package layout drives widget layout over an arena.
//
// Widgets size themselves in Layout and size their children with
// LayoutChild. LayoutChild clears the dirty flag of every node it lays out,
// which the arena's early-exit dirty propagation depends on.
package layout

import (
	"github.com/go-drift/reflow/pkg/arena"
	"github.com/go-drift/reflow/pkg/entity"
	"github.com/go-drift/reflow/pkg/geometry"
)

// LayoutChild lays out h within c and returns its size. A clean node whose
// constraints are unchanged is skipped and its cached size returned.
// A stale handle, or one that is checked out, yields a zero size.
func LayoutChild(a *arena.Arena, h entity.Handle, c geometry.Constraints) geometry.Size {
	if !a.IsDirty(h) {
		if cached, ok := a.CachedConstraints(h); ok && cached == c {
			size, _ := a.CachedSize(h)
			return size
		}
	}
	return relayout(a, h, c)
}

func relayout(a *arena.Arena, h entity.Handle, c geometry.Constraints) geometry.Size {
	size, ok := arena.Update(a, h, func(w arena.Widget) geometry.Size {
		return w.Layout(a.Context(h), c)
	})
	if !ok {
		return geometry.Size{}
	}
	a.CacheLayout(h, c, size)
	a.ClearDirty(h)
	return size
}

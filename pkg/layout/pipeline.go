package layout

import (
	"slices"

	"github.com/go-drift/reflow/pkg/arena"
	"github.com/go-drift/reflow/pkg/entity"
	"github.com/go-drift/reflow/pkg/errors"
	"github.com/go-drift/reflow/pkg/geometry"
)

// Pipeline flushes the layout roots an arena has scheduled.
//
// Roots are processed parent-first so that if a parent and one of its
// descendants are both scheduled, the parent lays out first and may lay out
// (and clean) the descendant as part of its own Layout.
type Pipeline struct {
	laidOut int
	failed  int
}

// Flush lays out every scheduled root that is still dirty and returns how
// many roots it laid out. Roots with a parent reuse the constraints of their
// last layout; parentless roots and roots never laid out get surface.
// Roots scheduled during the pass are flushed before Flush returns.
//
// A root whose layout panics is reported and left dirty. It is rescheduled
// after the pass, so it and any dirty nodes below it are retried by the
// next Flush rather than lost.
func (p *Pipeline) Flush(a *arena.Arena, surface geometry.Constraints) int {
	count := 0
	var failed []entity.Handle
	for {
		roots := a.TakeLayoutRoots()
		if len(roots) == 0 {
			break
		}
		slices.SortStableFunc(roots, func(x, y entity.Handle) int {
			return a.Depth(x) - a.Depth(y)
		})
		for _, h := range roots {
			if !a.IsDirty(h) {
				continue
			}
			c := surface
			if _, hasParent := a.Parent(h); hasParent {
				if cached, ok := a.CachedConstraints(h); ok {
					c = cached
				}
			}
			err := errors.Catch("layout.Flush", errors.KindWidget, h.String(), func() {
				relayout(a, h, c)
			})
			if err != nil {
				failed = append(failed, h)
				continue
			}
			count++
		}
	}
	for _, h := range failed {
		a.RescheduleLayoutRoot(h)
	}
	p.laidOut += count
	p.failed += len(failed)
	return count
}

// Failed returns the number of root layouts that panicked over the
// pipeline's lifetime.
func (p *Pipeline) Failed() int {
	return p.failed
}

// LaidOut returns the number of roots laid out over the pipeline's lifetime.
func (p *Pipeline) LaidOut() int {
	return p.laidOut
}

package arena

import (
	"time"

	"github.com/go-drift/reflow/pkg/entity"
	"github.com/go-drift/reflow/pkg/geometry"
)

// Widget is the capability set the arena and the frame loop invoke on a
// stored widget. Embed Base to get no-op defaults.
type Widget interface {
	// Mount is called once by Register with the widget's handle.
	Mount(h entity.Handle)
	// AdvanceAnimations steps running animations by elapsed frame time and
	// reports whether another frame is needed.
	AdvanceAnimations(ctx *Context, elapsed time.Duration) bool
	// ReconcileChildren brings the widget's children in line with its
	// configuration, registering and unregistering as needed.
	ReconcileChildren(ctx *Context)
	// Layout sizes the widget within c. Children are sized with
	// layout.LayoutChild, which clears their dirty flags.
	Layout(ctx *Context, c geometry.Constraints) geometry.Size
	// Paint records the widget's drawing.
	Paint(ctx *Context)
	// HandleEvent offers an input event and reports whether it was consumed.
	HandleEvent(ctx *Context, event any) bool
}

// Disposer is implemented by widgets that release resources when they are
// unregistered. Dispose may unregister other handles.
type Disposer interface {
	Dispose(ctx *Context)
}

// Context is passed to every widget capability.
type Context struct {
	Arena  *Arena
	Handle entity.Handle
}

// Base provides default implementations of the Widget capabilities.
//
//	type label struct {
//	    arena.Base
//	    text *reactive.Signal[string]
//	}
type Base struct {
	handle entity.Handle
}

// Mount stores the handle.
func (b *Base) Mount(h entity.Handle) {
	b.handle = h
}

// Handle returns the handle assigned by Register.
func (b *Base) Handle() entity.Handle {
	return b.handle
}

// AdvanceAnimations is a no-op that requests no further frames.
func (b *Base) AdvanceAnimations(ctx *Context, elapsed time.Duration) bool {
	return false
}

// ReconcileChildren is a no-op.
func (b *Base) ReconcileChildren(ctx *Context) {}

// Layout takes the smallest size c allows and ignores children. A widget
// with children must override Layout and lay each child out with
// layout.LayoutChild; children left unvisited stay dirty, and further marks
// on them stop at the first dirty node.
func (b *Base) Layout(ctx *Context, c geometry.Constraints) geometry.Size {
	return c.Constrain(geometry.Size{})
}

// Paint is a no-op.
func (b *Base) Paint(ctx *Context) {}

// HandleEvent consumes nothing.
func (b *Base) HandleEvent(ctx *Context, event any) bool {
	return false
}

// placeholder occupies a slot while its widget is checked out.
type placeholder struct {
	Base
}

var inert Widget = &placeholder{}

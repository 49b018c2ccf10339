// Package reactive implements the dependency graph behind widget invalidation:
// signals, effects, computed values and batches.
//
// Reactivity is push based. A Graph keeps a single "current effect" slot;
// reading a Signal with Get while an effect runs records a bidirectional
// edge between the two. Writing a Signal schedules every subscribed effect
// and, outside a batch, flushes immediately. Before each run an effect's
// previous edges are dropped, so dependencies follow whichever branch the
// effect took last time:
//
//	g := reactive.NewGraph()
//	show := reactive.NewSignal(g, true)
//	label := reactive.NewSignal(g, "hello")
//
//	g.NewEffect(func() {
//	    if show.Get() {
//	        fmt.Println(label.Get())
//	    }
//	})
//
//	g.Batch(func() {
//	    label.Set("a")
//	    label.Set("b") // the effect runs once, after the batch closes
//	})
//
// # Goroutines
//
// A Graph belongs to the goroutine that created it. Effects run, and
// dependencies are tracked, only there. Signal values are guarded by their own
// RWMutex and may be read or written from any goroutine. A write from another
// goroutine updates the value and then follows the graph's Policy: with
// PolicyDefer the notification is queued and replayed on the owning goroutine
// by FlushDeferred; with PolicyDrop it is skipped and consumers are expected
// to re-sample values every frame.
package reactive

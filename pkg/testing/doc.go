// Package testing provides test doubles for reflow engines.
//
// FakeClock controls the frame time an engine reports to animations:
//
//	clk := reflowtest.NewFakeClock()
//	e := engine.New(config.Default(), engine.WithClock(clk))
//	clk.Advance(16 * time.Millisecond)
//	e.RunFrame()
//
// Recorder is a widget that counts every capability the engine invokes on
// it and can be scripted to keep animating, consume events, or run a hook
// during layout.
//
// # Import Alias
//
// Since this package has the same name as the standard library testing
// package, import it with an alias:
//
//	import reflowtest "github.com/go-drift/reflow/pkg/testing"
package testing

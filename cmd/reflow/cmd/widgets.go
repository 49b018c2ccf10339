package cmd

import (
	"time"

	"github.com/go-drift/reflow/pkg/arena"
	"github.com/go-drift/reflow/pkg/geometry"
	"github.com/go-drift/reflow/pkg/layout"
	"github.com/go-drift/reflow/pkg/reactive"
)

const (
	charWidth  = 8
	lineHeight = 16
)

// column stacks its children vertically.
type column struct {
	arena.Base
	paints int
}

func (c *column) Layout(ctx *arena.Context, cs geometry.Constraints) geometry.Size {
	var size geometry.Size
	child := geometry.Loose(geometry.Size{Width: cs.MaxWidth, Height: geometry.Unbounded})
	for _, h := range ctx.Arena.Children(ctx.Handle) {
		s := layout.LayoutChild(ctx.Arena, h, child)
		size.Width = max(size.Width, s.Width)
		size.Height += s.Height
	}
	return cs.Constrain(size)
}

func (c *column) Paint(ctx *arena.Context) {
	c.paints++
}

// label shows a text signal. Its width is derived from the text.
type label struct {
	arena.Base
	name   string
	text   *reactive.Signal[string]
	width  *reactive.Computed[float64]
	shown  string
	paints int
}

func newLabel(g *reactive.Graph, name string) *label {
	text := reactive.NewSignal(g, name)
	return &label{
		name: name,
		text: text,
		width: reactive.NewComputedWithEquality(g, func() float64 {
			return float64(len(text.Get()) * charWidth)
		}, func(a, b float64) bool { return a == b }),
	}
}

func (l *label) Layout(ctx *arena.Context, cs geometry.Constraints) geometry.Size {
	return cs.Constrain(geometry.Size{Width: l.width.Peek(), Height: lineHeight})
}

func (l *label) Paint(ctx *arena.Context) {
	l.shown = l.text.Peek()
	l.paints++
}

func (l *label) Dispose(ctx *arena.Context) {
	l.width.Dispose()
}

// spinner turns for a fixed number of frames.
type spinner struct {
	arena.Base
	remaining int
	turned    time.Duration
	steps     int
}

func (s *spinner) AdvanceAnimations(ctx *arena.Context, elapsed time.Duration) bool {
	s.steps++
	s.turned += elapsed
	if s.remaining > 0 {
		s.remaining--
	}
	return s.remaining > 0
}

func (s *spinner) Layout(ctx *arena.Context, cs geometry.Constraints) geometry.Size {
	return cs.Constrain(geometry.Size{Width: lineHeight, Height: lineHeight})
}

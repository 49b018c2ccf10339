package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v3"

	"github.com/go-drift/reflow/pkg/config"
	"github.com/go-drift/reflow/pkg/engine"
	"github.com/go-drift/reflow/pkg/entity"
	"github.com/go-drift/reflow/pkg/jobs"
	"github.com/go-drift/reflow/pkg/reactive"
)

const (
	widthKey = "width"
	depthKey = "depth"
	itersKey = "iters"
)

func benchCommand() *cli.Command {
	return &cli.Command{
		Name:  "bench",
		Usage: "Measure signal-to-frame latency and dirty propagation",
		Flags: append(commonFlags(),
			&cli.UintFlag{
				Name:  widthKey,
				Usage: "Widget chains under the root",
				Value: 10,
			},
			&cli.UintFlag{
				Name:  depthKey,
				Usage: "Widgets per chain",
				Value: 10,
			},
			&cli.UintFlag{
				Name:  itersKey,
				Usage: "Iterations per benchmark",
				Value: 1000,
			},
		),
		Action: runBench,
	}
}

type benchTree struct {
	e      *engine.Engine
	root   entity.Handle
	leaves []entity.Handle
	source *reactive.Signal[int]
}

// newBenchTree builds width chains of depth columns under one root and
// binds every leaf to one source signal.
func newBenchTree(cfg config.Config, width, depth int) (*benchTree, error) {
	e, err := engine.New(cfg)
	if err != nil {
		return nil, err
	}
	t := &benchTree{e: e, source: reactive.NewSignal(e.Graph(), 0)}
	t.root = e.Register(&column{}, entity.Nil)
	for range width {
		parent := t.root
		for range depth {
			parent = e.Register(&column{}, parent)
		}
		leaf := e.Register(&spinner{}, parent)
		e.Watch(leaf, jobs.Layout, func() { t.source.Get() })
		t.leaves = append(t.leaves, leaf)
	}
	e.RunFrame()
	return t, nil
}

func runBench(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	newLogger(cfg)

	width := int(cmd.Uint(widthKey))
	depth := int(cmd.Uint(depthKey))
	iters := int(cmd.Uint(itersKey))

	tree, err := newBenchTree(cfg, width, depth)
	if err != nil {
		return err
	}
	defer func() { _ = tree.e.Close() }()

	tbl := table.NewWriter()
	tbl.SetTitle(fmt.Sprintf("reflow: %d chains x %d deep, %s widgets", width, depth, humanize.Comma(int64(tree.e.Arena().Len()))))
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"benchmark", "ops", "avg", "min", "p75", "p99", "max"})

	add := func(name string, ops int, tach *tachymeter.Tachymeter) {
		calc := tach.Calc()
		tbl.AppendRow(table.Row{
			name,
			humanize.Comma(int64(ops)),
			calc.Time.Avg,
			calc.Time.Min,
			calc.Time.P75,
			calc.Time.P99,
			calc.Time.Max,
		})
	}

	tach := tachymeter.New(&tachymeter.Config{Size: iters})
	for i := range iters {
		start := time.Now()
		tree.source.Set(i + 1)
		tree.e.RunFrame()
		tach.AddTime(time.Since(start))
	}
	add("signal -> frame", iters, tach)

	tach = tachymeter.New(&tachymeter.Config{Size: iters})
	a := tree.e.Arena()
	for range iters {
		start := time.Now()
		for _, leaf := range tree.leaves {
			a.MarkNeedsLayout(leaf)
		}
		tach.AddTime(time.Since(start))
		tree.e.RunFrame()
	}
	add("mark leaves dirty", iters*len(tree.leaves), tach)

	tach = tachymeter.New(&tachymeter.Config{Size: iters})
	for range iters {
		start := time.Now()
		h := tree.e.Register(&spinner{}, tree.root)
		tree.e.Unregister(h)
		tree.e.RunFrame()
		tach.AddTime(time.Since(start))
	}
	add("register + unregister frame", iters, tach)

	tach = tachymeter.New(&tachymeter.Config{Size: iters})
	q := jobs.New(nil)
	for range iters {
		start := time.Now()
		for _, leaf := range tree.leaves {
			q.Request(leaf, jobs.Layout)
			q.RequestAnimation(leaf, jobs.CompanionPaint)
		}
		q.DrainNonAnimation()
		q.Drain()
		tach.AddTime(time.Since(start))
	}
	add("queue request + drain", iters*len(tree.leaves)*2, tach)

	tbl.Render()

	stats := tree.e.Graph().Stats()
	summary := table.NewWriter()
	summary.SetTitle("Graph")
	summary.SetOutputMirror(os.Stdout)
	summary.AppendHeader(table.Row{"effects", "effect runs", "flushes"})
	summary.AppendRow(table.Row{
		humanize.Comma(int64(stats.Effects)),
		humanize.Comma(int64(stats.EffectRuns)),
		humanize.Comma(int64(stats.Flushes)),
	})
	summary.Render()
	return nil
}

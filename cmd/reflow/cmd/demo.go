package cmd

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/go-drift/reflow/pkg/engine"
	"github.com/go-drift/reflow/pkg/entity"
	"github.com/go-drift/reflow/pkg/jobs"
)

const (
	writersKey  = "writers"
	writesKey   = "writes"
	intervalKey = "interval"
	spinKey     = "spin"
)

func demoCommand() *cli.Command {
	return &cli.Command{
		Name:  "demo",
		Usage: "Run the event loop while background goroutines write signals",
		Flags: append(commonFlags(),
			&cli.UintFlag{
				Name:  writersKey,
				Usage: "Number of writer goroutines, one label each",
				Value: 4,
			},
			&cli.UintFlag{
				Name:  writesKey,
				Usage: "Writes per writer",
				Value: 20,
			},
			&cli.DurationFlag{
				Name:  intervalKey,
				Usage: "Delay between writes",
				Value: 5 * time.Millisecond,
			},
			&cli.UintFlag{
				Name:  spinKey,
				Usage: "Frames the spinner animates for",
				Value: 30,
			},
		),
		Action: runDemo,
	}
}

func runDemo(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	e, err := engine.New(cfg, engine.WithLogger(logger))
	if err != nil {
		return err
	}
	defer func() {
		if err := e.Close(); err != nil {
			logger.Error(err, "close")
		}
	}()

	root := &column{}
	rh := e.Register(root, entity.Nil)
	e.Arena().SetRelayoutBoundary(rh, true)

	writers := int(cmd.Uint(writersKey))
	labels := make([]*label, writers)
	for i := range labels {
		l := newLabel(e.Graph(), "label-"+strconv.Itoa(i))
		h := e.Register(l, rh)
		e.Watch(h, jobs.Layout, func() { l.width.Get() })
		e.Watch(h, jobs.Paint, func() { l.text.Get() })
		labels[i] = l
	}

	spin := &spinner{remaining: int(cmd.Uint(spinKey))}
	sh := e.Register(spin, rh)
	e.RequestAnimation(sh, jobs.CompanionPaint)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	writes := int(cmd.Uint(writesKey))
	interval := cmd.Duration(intervalKey)
	g, gctx := errgroup.WithContext(ctx)
	for _, l := range labels {
		g.Go(func() error {
			for n := range writes {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case <-time.After(interval):
				}
				l.text.Set(l.name + ":" + strconv.Itoa(n+1))
			}
			return nil
		})
	}

	var writeErr error
	go func() {
		err := g.Wait()
		e.Dispatch(func() {
			writeErr = err
			cancel()
		})
	}()

	start := time.Now()
	if err := e.Run(ctx); err != nil {
		return err
	}
	if writeErr != nil {
		return writeErr
	}
	e.RunFrame()

	printLabels(labels)
	printFrames(e.Timeline(), e.Graph().Stats().DeferredNotifications, spin, time.Since(start))
	return nil
}

func printLabels(labels []*label) {
	tbl := table.NewWriter()
	tbl.SetTitle("Labels")
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"label", "text", "painted text", "width", "paints"})
	for _, l := range labels {
		tbl.AppendRow(table.Row{l.name, l.text.Peek(), l.shown, l.width.Peek(), l.paints})
	}
	tbl.Render()
}

func printFrames(timeline engine.FrameTimeline, deferred uint64, spin *spinner, elapsed time.Duration) {
	var totals engine.FrameStats
	idle := 0
	for _, s := range timeline.Samples {
		totals.Deferred += s.Deferred
		totals.Dispatched += s.Dispatched
		totals.Jobs += s.Jobs
		totals.Animated += s.Animated
		totals.LayoutRoots += s.LayoutRoots
		totals.Painted += s.Painted
		if s.Idle() {
			idle++
		}
	}

	tbl := table.NewWriter()
	tbl.SetTitle("Frames")
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"metric", "value"})
	tbl.AppendRows([]table.Row{
		{"frames (recent)", humanize.Comma(int64(len(timeline.Samples)))},
		{"idle frames", humanize.Comma(int64(idle))},
		{"dropped frames", humanize.Comma(int64(timeline.DroppedFrames))},
		{"cross-goroutine writes deferred", humanize.Comma(int64(deferred))},
		{"signals replayed", humanize.Comma(int64(totals.Deferred))},
		{"dispatched callbacks", humanize.Comma(int64(totals.Dispatched))},
		{"jobs", humanize.Comma(int64(totals.Jobs))},
		{"animation steps", humanize.Comma(int64(totals.Animated))},
		{"spinner turned", spin.turned.Round(time.Millisecond)},
		{"layout roots", humanize.Comma(int64(totals.LayoutRoots))},
		{"widgets painted", humanize.Comma(int64(totals.Painted))},
		{"wall time", elapsed.Round(time.Millisecond)},
	})
	tbl.Render()
}

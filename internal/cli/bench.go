package cli

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/loomui/loom/internal/element"
	"github.com/loomui/loom/internal/engine"
	"github.com/loomui/loom/internal/host"
	"github.com/loomui/loom/internal/sched"
)

// NewBenchCommand measures render pass latency against the in-memory host.
func NewBenchCommand(opts *RootOptions) *cobra.Command {
	var (
		width int
		depth int
		iters int
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark mount, update and reorder passes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(cmd.OutOrStdout(), width, depth, iters)
		},
	}

	cmd.Flags().IntVar(&width, "width", 100, "children per level")
	cmd.Flags().IntVar(&depth, "depth", 2, "nesting depth")
	cmd.Flags().IntVar(&iters, "iters", 100, "passes per benchmark")

	return cmd
}

func runBench(w io.Writer, width, depth, iters int) error {
	if width < 1 || depth < 1 || iters < 1 {
		return NewExitError(ExitCommandError, "width, depth and iters must be positive")
	}

	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetTitle("loom bench: %s nodes, %s iterations",
		humanize.Comma(int64(treeSize(width, depth))), humanize.Comma(int64(iters)))
	tbl.AppendHeader(table.Row{"benchmark", "avg", "min", "p75", "p99", "max"})

	benches := []struct {
		name string
		run  func() error
	}{
		{"mount", func() error { return benchMount(tbl, width, depth, iters) }},
		{"update", func() error { return benchUpdate(tbl, width, depth, iters) }},
		{"reorder", func() error { return benchReorder(tbl, width, iters) }},
	}
	for _, b := range benches {
		if err := b.run(); err != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("bench %s", b.name), err)
		}
	}

	tbl.Render()
	return nil
}

func treeSize(width, depth int) int {
	total := 1
	level := 1
	for d := 0; d < depth; d++ {
		level *= width
		total += level
	}
	return total
}

// benchTree builds a uniform keyed tree: depth levels of width children,
// every leaf carrying the pass counter so update passes touch all of them.
func benchTree(width, depth, n, rotate int) *element.Element {
	var build func(d int) []any
	build = func(d int) []any {
		children := make([]any, width)
		for i := 0; i < width; i++ {
			idx := (i + rotate) % width
			key := fmt.Sprintf("k%d", idx)
			if d == 1 {
				children[i] = element.New("cell", element.Props{"n": n}).WithKey(key)
			} else {
				children[i] = element.New("row", nil, build(d-1)...).WithKey(key)
			}
		}
		return children
	}
	return element.New("grid", nil, build(depth)...)
}

func newBenchEngine() (*engine.Engine, *host.Recording) {
	rec := host.NewRecording()
	e := engine.New(rec, engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	return e, rec
}

func benchMount(tbl table.Writer, width, depth, iters int) error {
	tach := tachymeter.New(&tachymeter.Config{Size: iters})
	for i := 0; i < iters; i++ {
		e, rec := newBenchEngine()
		root := e.CreateRoot(rec.Container)
		el := benchTree(width, depth, i, 0)

		start := time.Now()
		if err := e.Render(root, el, sched.PrioritySync); err != nil {
			return err
		}
		tach.AddTime(time.Since(start))
	}
	appendCalc(tbl, "mount", tach)
	return nil
}

func benchUpdate(tbl table.Writer, width, depth, iters int) error {
	e, rec := newBenchEngine()
	root := e.CreateRoot(rec.Container)
	if err := e.Render(root, benchTree(width, depth, 0, 0), sched.PrioritySync); err != nil {
		return err
	}

	tach := tachymeter.New(&tachymeter.Config{Size: iters})
	for i := 0; i < iters; i++ {
		el := benchTree(width, depth, i+1, 0)
		start := time.Now()
		if err := e.Render(root, el, sched.PrioritySync); err != nil {
			return err
		}
		tach.AddTime(time.Since(start))
	}
	appendCalc(tbl, "update", tach)
	return nil
}

func benchReorder(tbl table.Writer, width, iters int) error {
	e, rec := newBenchEngine()
	root := e.CreateRoot(rec.Container)
	if err := e.Render(root, benchTree(width, 1, 0, 0), sched.PrioritySync); err != nil {
		return err
	}

	tach := tachymeter.New(&tachymeter.Config{Size: iters})
	for i := 0; i < iters; i++ {
		el := benchTree(width, 1, 0, i+1)
		start := time.Now()
		if err := e.Render(root, el, sched.PrioritySync); err != nil {
			return err
		}
		tach.AddTime(time.Since(start))
	}
	appendCalc(tbl, "reorder", tach)
	return nil
}

func appendCalc(tbl table.Writer, name string, tach *tachymeter.Tachymeter) {
	calc := tach.Calc()
	tbl.AppendRow(table.Row{
		name,
		calc.Time.Avg,
		calc.Time.Min,
		calc.Time.P75,
		calc.Time.P99,
		calc.Time.Max,
	})
}

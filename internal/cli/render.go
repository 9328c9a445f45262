package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/loomui/loom/internal/engine"
	"github.com/loomui/loom/internal/host"
	"github.com/loomui/loom/internal/sched"
	"github.com/loomui/loom/internal/store"
)

// RenderReport is the render command's JSON payload.
type RenderReport struct {
	Files   []string `json:"files"`
	Tree    string   `json:"tree"`
	HostOps int      `json:"host_ops"`
	Session string   `json:"session,omitempty"`
}

// NewRenderCommand renders one or more tree files, each as its own pass,
// and prints the final host tree.
func NewRenderCommand(opts *RootOptions) *cobra.Command {
	var (
		priority string
		dbPath   string
	)

	cmd := &cobra.Command{
		Use:   "render <tree-file>...",
		Short: "Render tree descriptions and print the resulting host tree",
		Long: `Render loads each tree file (YAML or CUE) and renders it as one pass
against an in-memory host, printing the tree the host holds afterwards.
With --db the commit trace is recorded for later trace/replay.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := &OutputFormatter{
				Format:    opts.Format,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
				Verbose:   opts.Verbose,
			}
			return runRender(f, args, priority, dbPath)
		},
	}

	cmd.Flags().StringVar(&priority, "priority", "sync", "render priority (sync|interactive|low)")
	cmd.Flags().StringVar(&dbPath, "db", "", "record the commit trace to this SQLite database")

	return cmd
}

func runRender(f *OutputFormatter, paths []string, priority, dbPath string) error {
	prio, err := sched.ParsePriority(priority)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid priority", err)
	}

	trees, err := LoadTrees(paths)
	if err != nil {
		f.Error(ErrCodeLoadFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "loading trees", err)
	}

	log := slog.New(slog.NewTextHandler(f.GetErrWriter(), &slog.HandlerOptions{
		Level: logLevel(f.Verbose),
	}))

	var engineOpts []engine.Option
	engineOpts = append(engineOpts, engine.WithLogger(log))

	session := ""
	if dbPath != "" {
		st, err := store.Open(dbPath)
		if err != nil {
			f.Error(ErrCodeTrace, err.Error(), nil)
			return WrapExitError(ExitCommandError, "opening trace database", err)
		}
		defer st.Close()

		hook, err := store.NewRecordingHook(context.Background(), st, log)
		if err != nil {
			f.Error(ErrCodeTrace, err.Error(), nil)
			return WrapExitError(ExitCommandError, "starting trace session", err)
		}
		session = hook.Session()
		engineOpts = append(engineOpts, engine.WithDevtools(hook))
	}

	clock := sched.NewClock()
	engineOpts = append(engineOpts, engine.WithClock(clock))

	rec := host.NewRecording()
	e := engine.New(rec, engineOpts...)
	root := e.CreateRoot(rec.Container)

	for i, el := range trees {
		f.VerboseLog("rendering %s (pass %d, priority %s)", paths[i], i+1, priority)
		if err := e.Render(root, el, prio); err != nil {
			f.Error(ErrCodeRender, err.Error(), paths[i])
			return WrapExitError(ExitFailure, fmt.Sprintf("rendering %s", paths[i]), err)
		}
		drainCallbacks(rec, clock)
	}

	report := RenderReport{
		Files:   paths,
		Tree:    rec.TreeString(),
		HostOps: len(rec.Ops),
		Session: session,
	}
	if f.Format == "json" {
		return f.Success(report)
	}

	fmt.Fprint(f.Writer, report.Tree)
	if session != "" {
		fmt.Fprintf(f.Writer, "trace session: %s\n", session)
	}
	f.VerboseLog("%d host ops across %d passes", report.HostOps, len(trees))
	return nil
}

// drainCallbacks flushes queued host callbacks until the engine goes idle,
// standing in for a real host's frame loop.
func drainCallbacks(rec *host.Recording, clock sched.Clock) {
	for i := 0; i < 100; i++ {
		flushed := rec.PendingDeferred() > 0
		rec.FlushAnimation()
		rec.FlushDeferred(sched.NewFrameDeadline(clock, 50))
		if !flushed && rec.PendingDeferred() == 0 {
			return
		}
	}
}

func logLevel(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}

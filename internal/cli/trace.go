package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/loomui/loom/internal/store"
)

// NewTraceCommand inspects recorded commit traces.
func NewTraceCommand(opts *RootOptions) *cobra.Command {
	var (
		dbPath    string
		session   string
		mutations bool
	)

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "List recorded sessions or dump one session's commits",
		Long: `Without --session, trace lists the sessions recorded in the database.
With --session (or --session latest), it prints that session's commits in
recorded order.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := &OutputFormatter{
				Format:    opts.Format,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
				Verbose:   opts.Verbose,
			}
			return runTrace(f, dbPath, session, mutations)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "trace database path")
	cmd.Flags().StringVar(&session, "session", "", "session token to dump, or \"latest\"")
	cmd.Flags().BoolVar(&mutations, "mutations", false, "print each commit's mutation records")
	cmd.MarkFlagRequired("db")

	return cmd
}

func runTrace(f *OutputFormatter, dbPath, session string, mutations bool) error {
	st, err := store.Open(dbPath)
	if err != nil {
		f.Error(ErrCodeTrace, err.Error(), nil)
		return WrapExitError(ExitCommandError, "opening trace database", err)
	}
	defer st.Close()
	ctx := context.Background()

	if session == "" {
		return listSessions(ctx, f, st)
	}
	if session == "latest" {
		session, err = st.LatestSession(ctx)
		if err != nil {
			f.Error(ErrCodeNotFound, err.Error(), nil)
			return WrapExitError(ExitCommandError, "resolving latest session", err)
		}
	}
	return dumpSession(ctx, f, st, session, mutations)
}

func listSessions(ctx context.Context, f *OutputFormatter, st *store.Store) error {
	infos, err := st.Sessions(ctx)
	if err != nil {
		f.Error(ErrCodeTrace, err.Error(), nil)
		return WrapExitError(ExitCommandError, "listing sessions", err)
	}

	if f.Format == "json" {
		return f.Success(infos)
	}

	tbl := table.NewWriter()
	tbl.SetOutputMirror(f.Writer)
	tbl.AppendHeader(table.Row{"session", "renderer", "created", "commits"})
	for _, info := range infos {
		tbl.AppendRow(table.Row{
			info.Token,
			info.RendererID,
			humanize.Time(time.UnixMilli(info.CreatedMs)),
			humanize.Comma(info.Commits),
		})
	}
	tbl.Render()
	return nil
}

func dumpSession(ctx context.Context, f *OutputFormatter, st *store.Store, session string, mutations bool) error {
	records, err := st.ReadSession(ctx, session)
	if err != nil {
		f.Error(ErrCodeTrace, err.Error(), nil)
		return WrapExitError(ExitCommandError, "reading session", err)
	}

	if f.Format == "json" {
		return f.Success(records)
	}

	tbl := table.NewWriter()
	tbl.SetOutputMirror(f.Writer)
	tbl.SetTitle("session %s", session)
	tbl.AppendHeader(table.Row{"seq", "root", "expiration", "effects", "mutations", "unmounts"})
	for _, rec := range records {
		tbl.AppendRow(table.Row{
			rec.Seq,
			rec.RootID,
			rec.Expiration,
			rec.EffectCount,
			len(rec.Mutations),
			len(rec.Unmounts),
		})
	}
	tbl.Render()

	if mutations {
		for _, rec := range records {
			fmt.Fprintf(f.Writer, "\ncommit %d:\n", rec.Seq)
			for _, m := range rec.Mutations {
				fmt.Fprintf(f.Writer, "  %s node=%d", m.Op, m.Node)
				if m.Parent != 0 {
					fmt.Fprintf(f.Writer, " parent=%d", m.Parent)
				}
				if m.Before != 0 {
					fmt.Fprintf(f.Writer, " before=%d", m.Before)
				}
				if m.Type != "" {
					fmt.Fprintf(f.Writer, " type=%s", m.Type)
				}
				if m.Text != "" {
					fmt.Fprintf(f.Writer, " text=%q", m.Text)
				}
				fmt.Fprintln(f.Writer)
			}
		}
	}
	return nil
}

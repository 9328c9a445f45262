package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loomui/loom/internal/host"
	"github.com/loomui/loom/internal/store"
)

// ReplayReport is the replay command's JSON payload.
type ReplayReport struct {
	Session       string `json:"session"`
	Commits       int    `json:"commits"`
	Tree          string `json:"tree"`
	Deterministic bool   `json:"deterministic"`
}

// NewReplayCommand rebuilds a host tree from a recorded session.
func NewReplayCommand(opts *RootOptions) *cobra.Command {
	var (
		dbPath  string
		session string
	)

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Rebuild the host tree from a recorded commit trace",
		Long: `Replay applies a session's stored mutation stream to a fresh in-memory
host and prints the resulting tree. The stream is applied twice and the
outcomes compared, so a non-deterministic trace fails loudly.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := &OutputFormatter{
				Format:    opts.Format,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
				Verbose:   opts.Verbose,
			}
			return runReplay(f, dbPath, session)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "trace database path")
	cmd.Flags().StringVar(&session, "session", "latest", "session token to replay")
	cmd.MarkFlagRequired("db")

	return cmd
}

func runReplay(f *OutputFormatter, dbPath, session string) error {
	st, err := store.Open(dbPath)
	if err != nil {
		f.Error(ErrCodeTrace, err.Error(), nil)
		return WrapExitError(ExitCommandError, "opening trace database", err)
	}
	defer st.Close()
	ctx := context.Background()

	if session == "latest" {
		session, err = st.LatestSession(ctx)
		if err != nil {
			f.Error(ErrCodeNotFound, err.Error(), nil)
			return WrapExitError(ExitCommandError, "resolving latest session", err)
		}
	}

	records, err := st.ReadSession(ctx, session)
	if err != nil {
		f.Error(ErrCodeTrace, err.Error(), nil)
		return WrapExitError(ExitCommandError, "reading session", err)
	}

	first := host.NewRecording()
	if err := store.Replay(ctx, st, session, first, first.Container); err != nil {
		f.Error(ErrCodeTrace, err.Error(), session)
		return WrapExitError(ExitFailure, "replaying trace", err)
	}

	second := host.NewRecording()
	if err := store.Replay(ctx, st, session, second, second.Container); err != nil {
		f.Error(ErrCodeTrace, err.Error(), session)
		return WrapExitError(ExitFailure, "replaying trace", err)
	}

	report := ReplayReport{
		Session:       session,
		Commits:       len(records),
		Tree:          first.TreeString(),
		Deterministic: first.TreeString() == second.TreeString(),
	}

	if !report.Deterministic {
		f.Error(ErrCodeTrace, "replay diverged between runs", session)
		return NewExitError(ExitFailure, "trace is not deterministic")
	}

	if f.Format == "json" {
		return f.Success(report)
	}

	fmt.Fprint(f.Writer, report.Tree)
	f.VerboseLog("replayed %d commits from session %s", report.Commits, session)
	return nil
}

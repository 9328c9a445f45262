package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loomui/loom/internal/harness"
)

// TestReport summarizes a scenario run for JSON output.
type TestReport struct {
	Scenarios []ScenarioReport `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
}

// ScenarioReport is one scenario's outcome.
type ScenarioReport struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// NewTestCommand runs scenario files through the harness.
func NewTestCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test <scenario-dir>",
		Short: "Run rendering scenarios from a directory",
		Long: `Test loads every *.yaml scenario in the directory and runs it against a
fresh engine and recording host, reporting assertion failures per scenario.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := &OutputFormatter{
				Format:    opts.Format,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
				Verbose:   opts.Verbose,
			}
			return runTest(f, args[0])
		},
	}
	return cmd
}

func runTest(f *OutputFormatter, dir string) error {
	scenarios, err := harness.LoadScenarioDir(dir)
	if err != nil {
		f.Error(ErrCodeLoadFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "loading scenarios", err)
	}
	if len(scenarios) == 0 {
		f.Error(ErrCodeNotFound, fmt.Sprintf("no scenarios found in %s", dir), nil)
		return NewExitError(ExitCommandError, "no scenarios found")
	}

	report := TestReport{}
	for _, s := range scenarios {
		result, err := harness.Run(s)
		if err != nil {
			f.Error(ErrCodeRender, err.Error(), s.Name)
			return WrapExitError(ExitFailure, fmt.Sprintf("running %q", s.Name), err)
		}

		sr := ScenarioReport{Name: s.Name, Pass: result.Pass, Errors: result.Errors}
		report.Scenarios = append(report.Scenarios, sr)
		if result.Pass {
			report.Passed++
		} else {
			report.Failed++
		}

		if f.Format != "json" {
			status := "PASS"
			if !result.Pass {
				status = "FAIL"
			}
			fmt.Fprintf(f.Writer, "%s  %s\n", status, s.Name)
			for _, msg := range result.Errors {
				fmt.Fprintf(f.Writer, "      %s\n", msg)
			}
		}
	}

	if f.Format == "json" {
		if err := f.Success(report); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(f.Writer, "\n%d passed, %d failed\n", report.Passed, report.Failed)
	}

	if report.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", report.Failed))
	}
	return nil
}

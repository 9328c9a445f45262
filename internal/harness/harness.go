package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/loomui/loom/internal/engine"
	"github.com/loomui/loom/internal/host"
	"github.com/loomui/loom/internal/sched"
	"github.com/loomui/loom/internal/store"
	"github.com/loomui/loom/internal/testutil"
)

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Errors lists assertion failures. Empty when Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Tree is the final host tree in the recording host's indented form.
	Tree string `json:"tree"`

	// Ops are the host op kinds in call order, commit brackets included.
	Ops []string `json:"ops"`

	// Commits is the recorded trace, one record per committed pass.
	Commits []store.CommitRecord `json:"-"`
}

// NewResult creates a passing result; assertions demote it.
func NewResult() *Result {
	return &Result{Pass: true}
}

// AddError records an assertion failure and fails the result.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}

// Run executes a scenario and returns its result.
//
// Each scenario gets a fresh engine, recording host, manual clock and
// in-memory trace store, so runs are isolated and deterministic. An error
// return means the scenario could not run at all; assertion failures land
// in the result instead.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	hook, err := store.NewRecordingHook(ctx, st, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create recording hook: %w", err)
	}

	clock := testutil.NewManualClock()
	rec := host.NewRecording()
	e := engine.New(rec,
		engine.WithClock(clock),
		engine.WithLogger(log),
		engine.WithDevtools(hook),
	)
	root := e.CreateRoot(rec.Container)

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := runStep(e, root, rec, clock, step, result); err != nil {
			return nil, fmt.Errorf("step %d of %q: %w", i, scenario.Name, err)
		}
	}

	result.Tree = rec.TreeString()
	for _, op := range rec.Ops {
		result.Ops = append(result.Ops, op.Op)
	}

	commits, err := st.ReadSession(ctx, hook.Session())
	if err != nil {
		return nil, fmt.Errorf("read trace for %q: %w", scenario.Name, err)
	}
	result.Commits = commits

	for i, a := range scenario.Assertions {
		if err := evaluate(a, result); err != nil {
			result.AddError(fmt.Sprintf("assertion %d (%s): %v", i, a.Type, err))
		}
	}

	return result, nil
}

func runStep(e *engine.Engine, root *engine.Root, rec *host.Recording, clock *testutil.ManualClock, step Step, result *Result) error {
	if step.Advance > 0 {
		clock.Advance(sched.Millis(step.Advance))
	}

	if step.Render != nil {
		el, err := step.Render.Element()
		if err != nil {
			return err
		}
		prio, err := sched.ParsePriority(step.Priority)
		if err != nil {
			return err
		}
		if err := e.Render(root, el, prio); err != nil {
			// a failed sync pass is an observable outcome, not a broken run
			result.AddError(fmt.Sprintf("render failed: %v", err))
		}
	}

	switch step.Flush {
	case FlushDeferred:
		budget := step.BudgetMs
		if budget == 0 {
			budget = 100
		}
		rec.FlushDeferred(sched.NewFrameDeadline(clock, sched.Millis(budget)))
	case FlushAnimation:
		rec.FlushAnimation()
	}

	if step.Unmount {
		if err := e.Unmount(root); err != nil {
			result.AddError(fmt.Sprintf("unmount failed: %v", err))
		}
	}
	return nil
}

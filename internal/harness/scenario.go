package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/loomui/loom/internal/element"
	"github.com/loomui/loom/internal/sched"
)

// Scenario is one declarative rendering test.
type Scenario struct {
	// Name uniquely identifies this scenario; it also names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description,omitempty"`

	// Steps run in order against a fresh engine and recording host.
	Steps []Step `yaml:"steps"`

	// Assertions validate the host call log, the committed trace and the
	// final tree after all steps ran.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one scenario action. Exactly one of Render, Advance, Flush and
// Unmount should be set; a step combining them applies Advance first, then
// Render, then Flush, then Unmount.
type Step struct {
	// Render schedules the described tree on the scenario root.
	Render *element.TreeDoc `yaml:"render,omitempty"`

	// Priority classifies the render: sync (default), interactive or low.
	Priority string `yaml:"priority,omitempty"`

	// Advance moves the manual clock forward by this many milliseconds.
	Advance int64 `yaml:"advance,omitempty"`

	// Flush runs one queued host callback: "deferred" or "animation".
	Flush string `yaml:"flush,omitempty"`

	// BudgetMs bounds a deferred flush's slice. Defaults to 100.
	BudgetMs int64 `yaml:"budget_ms,omitempty"`

	// Unmount tears the scenario root down.
	Unmount bool `yaml:"unmount,omitempty"`
}

// Assertion validates one aspect of the finished run.
type Assertion struct {
	// Type is one of tree_equals, op_order, op_count, commit_count,
	// mutation_count.
	Type string `yaml:"type"`

	// Tree is the expected final tree in the host's indented form
	// (tree_equals).
	Tree string `yaml:"tree,omitempty"`

	// Ops are host op kinds expected to appear in this relative order
	// (op_order).
	Ops []string `yaml:"ops,omitempty"`

	// Op is the host op kind being counted (op_count).
	Op string `yaml:"op,omitempty"`

	// Count is the expected occurrence count (op_count, commit_count,
	// mutation_count).
	Count int `yaml:"count"`
}

// Assertion type constants.
const (
	AssertTreeEquals    = "tree_equals"
	AssertOpOrder       = "op_order"
	AssertOpCount       = "op_count"
	AssertCommitCount   = "commit_count"
	AssertMutationCount = "mutation_count"
)

// Flush kinds.
const (
	FlushDeferred  = "deferred"
	FlushAnimation = "animation"
)

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}

	return &s, nil
}

// LoadScenarioDir loads every *.yaml scenario in a directory, sorted by
// file name for stable test ordering.
func LoadScenarioDir(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("glob scenarios: %w", err)
	}
	sort.Strings(paths)

	var scenarios []*Scenario
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// Validate checks structural requirements before a scenario runs.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario needs a name")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("scenario %q has no steps", s.Name)
	}
	for i, step := range s.Steps {
		if step.Render == nil && step.Advance == 0 && step.Flush == "" && !step.Unmount {
			return fmt.Errorf("step %d of %q does nothing", i, s.Name)
		}
		if step.Flush != "" && step.Flush != FlushDeferred && step.Flush != FlushAnimation {
			return fmt.Errorf("step %d of %q: unknown flush kind %q", i, s.Name, step.Flush)
		}
		if step.Priority != "" {
			if _, err := sched.ParsePriority(step.Priority); err != nil {
				return fmt.Errorf("step %d of %q: %w", i, s.Name, err)
			}
		}
	}
	for i, a := range s.Assertions {
		switch a.Type {
		case AssertTreeEquals, AssertOpOrder, AssertOpCount, AssertCommitCount, AssertMutationCount:
		default:
			return fmt.Errorf("assertion %d of %q: unknown type %q", i, s.Name, a.Type)
		}
	}
	return nil
}


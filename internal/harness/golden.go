package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"
)

// RunWithGolden executes a scenario and compares its final tree against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// An error return means the scenario failed to run or an assertion inside
// it failed; the golden comparison itself reports through t.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	if !result.Pass {
		for _, msg := range result.Errors {
			t.Errorf("%s: %s", scenario.Name, msg)
		}
	}

	AssertGolden(t, scenario.Name, result)
	return nil
}

// AssertGolden compares an already-obtained result's final tree against the
// named golden file.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(result.Tree))
}

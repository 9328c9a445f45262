package harness

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestScenarioGoldens runs every scenario under testdata/scenarios and
// compares each final tree against its golden file. Regenerate with
// go test ./internal/harness -update after intentional behavior changes.
func TestScenarioGoldens(t *testing.T) {
	scenarios, err := LoadScenarioDir("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			require.NoError(t, RunWithGolden(t, s))
		})
	}
}

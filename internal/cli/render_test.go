package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRenderCommandPrintsTree(t *testing.T) {
	tree := writeFile(t, "page.yaml", `
type: page
props: { title: hello }
children:
  - { type: item, text: x }
`)
	out, err := execute(t, "render", tree)
	require.NoError(t, err)
	assert.Contains(t, out, "page {\"title\":\"hello\"}")
	assert.Contains(t, out, "\"x\"")
}

func TestRenderCommandSequenceOfPasses(t *testing.T) {
	first := writeFile(t, "a.yaml", `{ type: box, props: { n: 1 } }`)
	second := writeFile(t, "b.yaml", `{ type: box, props: { n: 2 } }`)

	out, err := execute(t, "render", first, second)
	require.NoError(t, err)
	assert.Contains(t, out, "box {\"n\":2}")
	assert.NotContains(t, out, "box {\"n\":1}")
}

func TestRenderCommandJSONOutput(t *testing.T) {
	tree := writeFile(t, "page.yaml", `{ type: box }`)
	out, err := execute(t, "--format", "json", "render", tree)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	data := resp.Data.(map[string]any)
	assert.Contains(t, data["tree"], "#root")
}

func TestRenderCommandRejectsBadPriority(t *testing.T) {
	tree := writeFile(t, "page.yaml", `{ type: box }`)
	_, err := execute(t, "render", "--priority", "whenever", tree)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRenderCommandMissingFile(t *testing.T) {
	_, err := execute(t, "render", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRenderTraceReplayRoundTrip(t *testing.T) {
	db := filepath.Join(t.TempDir(), "trace.db")
	first := writeFile(t, "a.yaml", `
type: list
children:
  - { type: item, key: a, text: x }
  - { type: item, key: b, text: y }
`)
	second := writeFile(t, "b.yaml", `
type: list
children:
  - { type: item, key: b, text: y }
`)

	renderOut, err := execute(t, "render", "--db", db, first, second)
	require.NoError(t, err)
	assert.Contains(t, renderOut, "trace session:")

	traceOut, err := execute(t, "trace", "--db", db, "--session", "latest")
	require.NoError(t, err)
	assert.Contains(t, traceOut, "SEQ")

	replayOut, err := execute(t, "--format", "json", "replay", "--db", db)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(replayOut), &resp))
	require.Equal(t, "ok", resp.Status)
	data := resp.Data.(map[string]any)
	assert.Equal(t, true, data["deterministic"])
	assert.Contains(t, data["tree"], "\"y\"")
	assert.NotContains(t, data["tree"], "\"x\"", "the deleted keyed child stays deleted through replay")
}

func TestTraceCommandListsSessions(t *testing.T) {
	db := filepath.Join(t.TempDir(), "trace.db")
	tree := writeFile(t, "a.yaml", `{ type: box }`)

	_, err := execute(t, "render", "--db", db, tree)
	require.NoError(t, err)

	out, err := execute(t, "trace", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "SESSION")
}

func TestReplayCommandUnknownDatabaseDirectory(t *testing.T) {
	_, err := execute(t, "replay", "--db", filepath.Join(t.TempDir(), "missing", "x.db"))
	assert.Error(t, err)
}

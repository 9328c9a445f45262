package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomui/loom/internal/element"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadTreeYAML(t *testing.T) {
	path := writeFile(t, "page.yaml", `
type: page
props: { title: hello }
children:
  - { type: item, key: a, text: x }
`)
	el, err := LoadTree(path)
	require.NoError(t, err)
	assert.Equal(t, element.KindHost, el.Kind)
	assert.Equal(t, "page", el.Type)
	assert.Equal(t, "hello", el.Props["title"])
	require.Len(t, el.Children, 1)
	assert.Equal(t, "a", el.Children[0].Key)
}

func TestLoadTreeCUE(t *testing.T) {
	path := writeFile(t, "page.cue", `
type: "page"
props: title: "hello"
children: [
	{type: "item", key: "a", text: "x"},
	{type: "item", key: "b", text: "y"},
]
`)
	el, err := LoadTree(path)
	require.NoError(t, err)
	assert.Equal(t, "page", el.Type)
	assert.Equal(t, "hello", el.Props["title"])
	require.Len(t, el.Children, 2)
	assert.Equal(t, "b", el.Children[1].Key)
}

func TestLoadTreeCUERejectsNonConcrete(t *testing.T) {
	path := writeFile(t, "open.cue", `
type: string
`)
	_, err := LoadTree(path)
	assert.Error(t, err)
}

func TestLoadTreeUnsupportedFormat(t *testing.T) {
	path := writeFile(t, "tree.toml", `type = "page"`)
	_, err := LoadTree(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported tree format")
}

func TestLoadTreeMissingFile(t *testing.T) {
	_, err := LoadTree(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadTreesStopsAtFirstError(t *testing.T) {
	good := writeFile(t, "good.yaml", `{ type: box }`)
	_, err := LoadTrees([]string{good, filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}

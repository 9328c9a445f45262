package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/loomui/loom/internal/element"
)

// LoadTree reads one element tree description. YAML and CUE files are
// supported; the format is chosen by extension. Both decode into the same
// declarative tree document, so a CUE file can carry defaults and
// constraints while staying interchangeable with plain YAML.
func LoadTree(path string) (*element.Element, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tree: %w", err)
	}

	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		el, err := element.DecodeYAML(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return el, nil
	case ".cue":
		return decodeCUETree(path, data)
	default:
		return nil, fmt.Errorf("%s: unsupported tree format %q (want .yaml, .yml or .cue)", path, ext)
	}
}

// LoadTrees loads several tree files, one render pass each, in argument
// order.
func LoadTrees(paths []string) ([]*element.Element, error) {
	trees := make([]*element.Element, 0, len(paths))
	for _, path := range paths {
		el, err := LoadTree(path)
		if err != nil {
			return nil, err
		}
		trees = append(trees, el)
	}
	return trees, nil
}

func decodeCUETree(path string, data []byte) (*element.Element, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile %s: %w", path, err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("validate %s: %w", path, err)
	}

	var doc element.TreeDoc
	if err := v.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	el, err := doc.Element()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return el, nil
}

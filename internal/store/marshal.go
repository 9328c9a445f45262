package store

import (
	"encoding/json"
	"fmt"

	"github.com/loomui/loom/internal/devtools"
	"github.com/loomui/loom/internal/element"
)

// marshalMutations converts a mutation stream to canonical JSON TEXT.
// Canonical form keeps stored traces byte-stable across runs so they can
// serve as golden files.
func marshalMutations(muts []devtools.Mutation) (string, error) {
	arr := make([]any, len(muts))
	for i, m := range muts {
		obj := map[string]any{"op": m.Op}
		if m.Node != 0 {
			obj["node"] = m.Node
		}
		if m.Parent != 0 {
			obj["parent"] = m.Parent
		}
		if m.Before != 0 {
			obj["before"] = m.Before
		}
		if m.Type != "" {
			obj["type"] = m.Type
		}
		if m.Text != "" {
			obj["text"] = m.Text
		}
		if m.Props != nil {
			obj["props"] = map[string]any(m.Props)
		}
		arr[i] = obj
	}
	data, err := element.MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("marshal mutations: %w", err)
	}
	return string(data), nil
}

func unmarshalMutations(data string) ([]devtools.Mutation, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	var muts []devtools.Mutation
	if err := json.Unmarshal([]byte(data), &muts); err != nil {
		return nil, fmt.Errorf("unmarshal mutations: %w", err)
	}
	return muts, nil
}

func marshalUnmounts(ids []int64) (string, error) {
	arr := make([]any, len(ids))
	for i, id := range ids {
		arr[i] = id
	}
	data, err := element.MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("marshal unmounts: %w", err)
	}
	return string(data), nil
}

func unmarshalUnmounts(data string) ([]int64, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	var ids []int64
	if err := json.Unmarshal([]byte(data), &ids); err != nil {
		return nil, fmt.Errorf("unmarshal unmounts: %w", err)
	}
	return ids, nil
}

package element

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// TreeDoc is the YAML/CUE representation of a host element tree, used by
// scenario fixtures and the render command. Only host and text nodes can be
// described declaratively; components, providers and boundaries are code.
type TreeDoc struct {
	Type     string         `yaml:"type,omitempty" json:"type,omitempty"`
	Key      string         `yaml:"key,omitempty" json:"key,omitempty"`
	Text     string         `yaml:"text,omitempty" json:"text,omitempty"`
	Props    map[string]any `yaml:"props,omitempty" json:"props,omitempty"`
	Children []TreeDoc      `yaml:"children,omitempty" json:"children,omitempty"`
}

// DecodeYAML parses a YAML element tree document.
func DecodeYAML(data []byte) (*Element, error) {
	var doc TreeDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode element tree: %w", err)
	}
	return doc.Element()
}

// Element converts the document into an element tree.
func (d TreeDoc) Element() (*Element, error) {
	if d.Type == "" && d.Text == "" {
		return nil, fmt.Errorf("element tree node needs a type or text")
	}
	if d.Type == "" {
		if len(d.Children) > 0 {
			return nil, fmt.Errorf("text node %q cannot have children", d.Text)
		}
		el := Text(d.Text)
		el.Key = d.Key
		return el, nil
	}
	el := &Element{
		Kind:  KindHost,
		Type:  d.Type,
		Key:   d.Key,
		Props: Props(d.Props),
	}
	// A bare text field on a typed node is shorthand for a single text child.
	if d.Text != "" {
		el.Children = append(el.Children, Text(d.Text))
	}
	for i, c := range d.Children {
		child, err := c.Element()
		if err != nil {
			return nil, fmt.Errorf("child %d of %q: %w", i, d.Type, err)
		}
		el.Children = append(el.Children, child)
	}
	return el, nil
}

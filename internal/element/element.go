package element

import (
	"fmt"
	"strconv"
)

// Kind discriminates element (and fiber) node kinds. The set is closed:
// every phase of the engine dispatches over it exhaustively.
type Kind uint8

const (
	// KindHost describes a concrete node in the target tree (e.g. a DOM
	// element). Type carries the host type name, opaque to the core.
	KindHost Kind = iota + 1
	// KindText describes a text leaf.
	KindText
	// KindComponent describes a function component: output is computed by
	// calling Component with the element's props.
	KindComponent
	// KindProvider installs Value on Context for the subtree below it.
	KindProvider
	// KindConsumer reads Context and renders via the Render function.
	KindConsumer
	// KindBoundary catches render-phase errors thrown by descendants and
	// re-renders with Fallback.
	KindBoundary
	// KindFragment groups children without introducing a host node.
	KindFragment
	// KindPortal renders children into a different host container.
	KindPortal
)

// String returns the kind name for diagnostics.
func (k Kind) String() string {
	switch k {
	case KindHost:
		return "host"
	case KindText:
		return "text"
	case KindComponent:
		return "component"
	case KindProvider:
		return "provider"
	case KindConsumer:
		return "consumer"
	case KindBoundary:
		return "boundary"
	case KindFragment:
		return "fragment"
	case KindPortal:
		return "portal"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Reader is the render-time view of context values. The engine passes an
// implementation into component render functions; reading through it records
// a dependency on the context cell so later value changes can re-dirty
// exactly the fibers that read them.
type Reader interface {
	// ReadContext returns the currently installed value for ctx (or its
	// default) and records a dependency with the given observed bits.
	// observedBits == 0 observes all bits.
	ReadContext(ctx *Context, observedBits int32) any
}

// Component computes an element's output from its props. Returning an error
// unwinds to the nearest enclosing boundary element.
type Component func(r Reader, props Props) (*Element, error)

// ConsumerFunc renders a consumer element from the context value it observed.
type ConsumerFunc func(value any) (*Element, error)

// FallbackFunc renders a boundary's fallback output after a descendant error.
type FallbackFunc func(err error) *Element

// RefFunc receives the host instance after mount and nil before unmount.
type RefFunc func(instance any)

// Element is one node of a declarative description tree. Elements are
// immutable once constructed; the engine diffs them against the committed
// fiber tree and never writes to them.
type Element struct {
	Kind Kind
	// Key is an identity hint for list reconciliation. Empty means "match
	// by position".
	Key string

	// Type is the host type name (KindHost only).
	Type string
	// Text is the text content (KindText only).
	Text string
	// Props carries host attributes or component inputs.
	Props Props
	// Ref, if set on a host element, is invoked with the instance after
	// mount and with nil before unmount.
	Ref RefFunc

	// Component is the render function (KindComponent only).
	Component Component

	// Context is the cell referenced by providers and consumers.
	Context *Context
	// Value is the provided value (KindProvider only).
	Value any
	// Render consumes the context value (KindConsumer only).
	Render ConsumerFunc
	// ObservedBits restricts which changed bits this consumer cares about.
	// Zero observes everything.
	ObservedBits int32

	// Fallback renders the recovery output (KindBoundary only).
	Fallback FallbackFunc

	// ContainerInfo is the target container handle (KindPortal only).
	ContainerInfo any

	Children []*Element
}

// New builds a host element. Children accepts *Element, string, integer and
// float values (coerced to text), nil and bool values (dropped), and nested
// slices (flattened) - mirroring how loosely typed child lists arrive from
// description builders.
func New(typ string, props Props, children ...any) *Element {
	return &Element{
		Kind:     KindHost,
		Type:     typ,
		Props:    props,
		Children: Normalize(children),
	}
}

// Text builds a text element.
func Text(s string) *Element {
	return &Element{Kind: KindText, Text: s}
}

// Render builds a function component element.
func Render(fn Component, props Props, key string) *Element {
	return &Element{Kind: KindComponent, Component: fn, Props: props, Key: key}
}

// Fragment groups children without a host node.
func Fragment(children ...any) *Element {
	return &Element{Kind: KindFragment, Children: Normalize(children)}
}

// Provide installs value on ctx for the subtree.
func Provide(ctx *Context, value any, children ...any) *Element {
	return &Element{Kind: KindProvider, Context: ctx, Value: value, Children: Normalize(children)}
}

// Consume reads ctx and renders through fn. observedBits == 0 observes all
// bits of the value.
func Consume(ctx *Context, observedBits int32, fn ConsumerFunc) *Element {
	return &Element{Kind: KindConsumer, Context: ctx, ObservedBits: observedBits, Render: fn}
}

// Boundary wraps children with an error boundary.
func Boundary(fallback FallbackFunc, children ...any) *Element {
	return &Element{Kind: KindBoundary, Fallback: fallback, Children: Normalize(children)}
}

// Portal renders children into the given container.
func Portal(container any, children ...any) *Element {
	return &Element{Kind: KindPortal, ContainerInfo: container, Children: Normalize(children)}
}

// WithKey returns a shallow copy of el with the given key.
func (el *Element) WithKey(key string) *Element {
	cp := *el
	cp.Key = key
	return &cp
}

// WithRef returns a shallow copy of el with the given ref callback.
func (el *Element) WithRef(ref RefFunc) *Element {
	cp := *el
	cp.Ref = ref
	return &cp
}

// Normalize coerces a loose child list into elements:
//   - nil and bool children produce no element
//   - strings and numbers coerce to text elements
//   - slices flatten in order
//
// Anything else is rejected loudly - a silent drop here would surface as a
// missing subtree far from the mistake.
func Normalize(raw []any) []*Element {
	out := make([]*Element, 0, len(raw))
	for _, c := range raw {
		switch v := c.(type) {
		case nil:
			// no element
		case bool:
			// no element; conditional rendering idiom (cond && child)
		case *Element:
			if v != nil {
				out = append(out, v)
			}
		case string:
			out = append(out, Text(v))
		case int:
			out = append(out, Text(strconv.Itoa(v)))
		case int64:
			out = append(out, Text(strconv.FormatInt(v, 10)))
		case float64:
			out = append(out, Text(strconv.FormatFloat(v, 'g', -1, 64)))
		case []*Element:
			out = append(out, v...)
		case []any:
			out = append(out, Normalize(v)...)
		default:
			panic(fmt.Sprintf("element: unsupported child type %T", c))
		}
	}
	return out
}

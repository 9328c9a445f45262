package element

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectIs_NaN(t *testing.T) {
	// NaN is identical to NaN - a NaN-valued context must not look changed
	// on every render.
	assert.True(t, ObjectIs(math.NaN(), math.NaN()))
	assert.False(t, ObjectIs(math.NaN(), 1.0))
}

func TestObjectIs_SignedZero(t *testing.T) {
	// +0 and -0 are distinct.
	negZero := math.Copysign(0, -1)
	assert.False(t, ObjectIs(0.0, negZero))
	assert.True(t, ObjectIs(0.0, 0.0))
	assert.True(t, ObjectIs(negZero, negZero))
}

func TestObjectIs_ReferenceIdentity(t *testing.T) {
	m := map[string]int{"a": 1}
	n := map[string]int{"a": 1}
	assert.True(t, ObjectIs(m, m), "same map is identical")
	assert.False(t, ObjectIs(m, n), "equal-but-distinct maps are not identical")

	s := []int{1, 2}
	assert.True(t, ObjectIs(s, s))
	assert.False(t, ObjectIs([]int{1, 2}, []int{1, 2}))
}

func TestObjectIs_MixedAndNil(t *testing.T) {
	assert.True(t, ObjectIs(nil, nil))
	assert.False(t, ObjectIs(nil, 0))
	assert.False(t, ObjectIs("1", 1))
	assert.True(t, ObjectIs("x", "x"))
	assert.False(t, ObjectIs(1.0, 1), "float64 and int are different types")
}

func TestNormalize_Coercions(t *testing.T) {
	out := Normalize([]any{
		nil,
		true,
		false,
		"hello",
		42,
		New("span", nil),
		[]any{"nested", New("b", nil)},
	})

	require.Len(t, out, 5)
	assert.Equal(t, KindText, out[0].Kind)
	assert.Equal(t, "hello", out[0].Text)
	assert.Equal(t, "42", out[1].Text)
	assert.Equal(t, "span", out[2].Type)
	assert.Equal(t, "nested", out[3].Text)
	assert.Equal(t, "b", out[4].Type)
}

func TestNormalize_RejectsUnknownChild(t *testing.T) {
	assert.Panics(t, func() {
		Normalize([]any{struct{}{}})
	})
}

func TestProps_Equal(t *testing.T) {
	assert.True(t, Props{"a": 1, "b": "x"}.Equal(Props{"a": 1, "b": "x"}))
	assert.False(t, Props{"a": 1}.Equal(Props{"a": 2}))
	assert.False(t, Props{"a": 1}.Equal(Props{"a": 1, "b": 2}))
	assert.True(t, Props(nil).Equal(Props{}))

	// ObjectIs semantics carry through per-value.
	assert.True(t, Props{"n": math.NaN()}.Equal(Props{"n": math.NaN()}))
	assert.False(t, Props{"z": 0.0}.Equal(Props{"z": math.Copysign(0, -1)}))
}

func TestProps_Fingerprint(t *testing.T) {
	a := Props{"id": "x", "count": 3}
	b := Props{"count": 3, "id": "x"}
	assert.Equal(t, a.Fingerprint(), b.Fingerprint(), "key order must not matter")

	c := Props{"id": "y", "count": 3}
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())

	assert.Equal(t, Props{}.Fingerprint(), Props(nil).Fingerprint())

	// Uncanonicalizable props force the full diff path.
	assert.Equal(t, uint64(0), Props{"fn": func() {}}.Fingerprint())
}

func TestMarshalCanonical_KeyOrderAndStrings(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{
		"b":   1,
		"a":   "<tag>",
		"sub": map[string]any{"y": true, "x": nil},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"<tag>","b":1,"sub":{"x":null,"y":true}}`, string(got))
}

func TestMarshalCanonical_IntegralFloats(t *testing.T) {
	// YAML hands numbers over as float64; integral values must canonicalize
	// the same as Go ints.
	a, err := MarshalCanonical(map[string]any{"n": 3})
	require.NoError(t, err)
	b, err := MarshalCanonical(map[string]any{"n": 3.0})
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestDecodeYAML_Tree(t *testing.T) {
	doc := []byte(`
type: list
props:
  compact: true
children:
  - type: item
    key: a
    text: Alpha
  - text: loose text
`)
	el, err := DecodeYAML(doc)
	require.NoError(t, err)

	assert.Equal(t, KindHost, el.Kind)
	assert.Equal(t, "list", el.Type)
	assert.Equal(t, true, el.Props["compact"])
	require.Len(t, el.Children, 2)

	item := el.Children[0]
	assert.Equal(t, "item", item.Type)
	assert.Equal(t, "a", item.Key)
	require.Len(t, item.Children, 1)
	assert.Equal(t, "Alpha", item.Children[0].Text)

	assert.Equal(t, KindText, el.Children[1].Kind)
	assert.Equal(t, "loose text", el.Children[1].Text)
}

func TestDecodeYAML_Invalid(t *testing.T) {
	_, err := DecodeYAML([]byte(`children: [{type: x}]`))
	assert.Error(t, err, "root needs a type or text")

	_, err = DecodeYAML([]byte("text: hi\nchildren: [{type: x}]"))
	assert.Error(t, err, "text nodes cannot have children")
}

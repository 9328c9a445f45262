package engine

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomui/loom/internal/element"
	"github.com/loomui/loom/internal/sched"
)

func TestContextDefaultAndProvidedValue(t *testing.T) {
	e, rec, _ := newTestEngine(t)
	root := e.CreateRoot(rec.Container)
	ctx := element.NewContext("theme", "plain")

	show := element.Consume(ctx, 0, func(v any) (*element.Element, error) {
		return element.New("box", element.Props{"theme": v}), nil
	})

	require.NoError(t, e.Render(root, show, sched.PrioritySync))
	assert.Equal(t, "plain", rec.Container.Children[0].Props["theme"], "no provider reads the default")

	require.NoError(t, e.Render(root, element.Provide(ctx, "dark", show), sched.PrioritySync))
	assert.Equal(t, "dark", rec.Container.Children[0].Props["theme"])
}

func TestContextPropagatesThroughBailedOutSubtree(t *testing.T) {
	e, rec, _ := newTestEngine(t)
	root := e.CreateRoot(rec.Container)
	ctx := element.NewContext("theme", "plain")

	renders := 0
	consumer := element.Consume(ctx, 0, func(v any) (*element.Element, error) {
		renders++
		return element.New("box", element.Props{"theme": v}), nil
	})
	// shared across passes: the subtree between provider and consumer is
	// pointer-identical, so it can only be revisited via propagation
	shared := element.New("wrap", nil, element.Fragment(consumer))

	require.NoError(t, e.Render(root, element.Provide(ctx, "light", shared), sched.PrioritySync))
	require.Equal(t, 1, renders)

	require.NoError(t, e.Render(root, element.Provide(ctx, "dark", shared), sched.PrioritySync))
	assert.Equal(t, 2, renders, "changed value reaches the consumer through unchanged layers")
	assert.Equal(t, "dark", rec.Container.Children[0].Children[0].Props["theme"])

	require.NoError(t, e.Render(root, element.Provide(ctx, "dark", shared), sched.PrioritySync))
	assert.Equal(t, 2, renders, "unchanged value re-renders nothing")
}

func TestNestedProviderShieldsItsSubtree(t *testing.T) {
	e, rec, _ := newTestEngine(t)
	root := e.CreateRoot(rec.Container)
	ctx := element.NewContext("theme", "plain")

	outerReads, innerReads := 0, 0
	outerConsumer := element.Consume(ctx, 0, func(v any) (*element.Element, error) {
		outerReads++
		return element.New("outer", element.Props{"v": v}), nil
	})
	innerConsumer := element.Consume(ctx, 0, func(v any) (*element.Element, error) {
		innerReads++
		return element.New("inner", element.Props{"v": v}), nil
	})
	shared := element.Fragment(
		outerConsumer,
		element.Provide(ctx, "pinned", innerConsumer),
	)

	require.NoError(t, e.Render(root, element.Provide(ctx, "v1", shared), sched.PrioritySync))
	require.Equal(t, 1, outerReads)
	require.Equal(t, 1, innerReads)

	require.NoError(t, e.Render(root, element.Provide(ctx, "v2", shared), sched.PrioritySync))
	assert.Equal(t, 2, outerReads)
	assert.Equal(t, 1, innerReads, "a nested same-context provider shields its subtree")
	assert.Equal(t, "v2", rec.Container.Children[0].Props["v"])
	assert.Equal(t, "pinned", rec.Container.Children[1].Props["v"])
}

func TestObservedBitsFilterPropagation(t *testing.T) {
	e, rec, _ := newTestEngine(t)
	root := e.CreateRoot(rec.Container)

	type pair struct{ left, right int }
	ctx := &element.Context{
		Name:    "pair",
		Default: pair{},
		CalculateChangedBits: func(old, new any) int32 {
			o, n := old.(pair), new.(pair)
			var bits int32
			if o.left != n.left {
				bits |= 1
			}
			if o.right != n.right {
				bits |= 2
			}
			return bits
		},
	}

	leftReads, rightReads := 0, 0
	leftConsumer := element.Consume(ctx, 1, func(v any) (*element.Element, error) {
		leftReads++
		return element.New("left", element.Props{"n": v.(pair).left}), nil
	})
	rightConsumer := element.Consume(ctx, 2, func(v any) (*element.Element, error) {
		rightReads++
		return element.New("right", element.Props{"n": v.(pair).right}), nil
	})
	shared := element.Fragment(leftConsumer, rightConsumer)

	require.NoError(t, e.Render(root, element.Provide(ctx, pair{1, 1}, shared), sched.PrioritySync))
	require.Equal(t, 1, leftReads)
	require.Equal(t, 1, rightReads)

	require.NoError(t, e.Render(root, element.Provide(ctx, pair{1, 2}, shared), sched.PrioritySync))
	assert.Equal(t, 1, leftReads, "left half unchanged; bit not observed")
	assert.Equal(t, 2, rightReads)
	assert.Equal(t, 2, rec.Container.Children[1].Props["n"])
}

func TestSameValueIdentitySemantics(t *testing.T) {
	e, rec, _ := newTestEngine(t)
	root := e.CreateRoot(rec.Container)
	ctx := element.NewContext("num", 0.0)

	reads := 0
	consumer := element.Consume(ctx, 0, func(v any) (*element.Element, error) {
		reads++
		return element.New("box", nil), nil
	})
	shared := element.Fragment(consumer)

	nan := math.NaN()
	require.NoError(t, e.Render(root, element.Provide(ctx, nan, shared), sched.PrioritySync))
	require.Equal(t, 1, reads)

	require.NoError(t, e.Render(root, element.Provide(ctx, math.NaN(), shared), sched.PrioritySync))
	assert.Equal(t, 1, reads, "NaN to NaN is not a change")

	require.NoError(t, e.Render(root, element.Provide(ctx, 0.0, shared), sched.PrioritySync))
	assert.Equal(t, 2, reads)

	require.NoError(t, e.Render(root, element.Provide(ctx, math.Copysign(0, -1), shared), sched.PrioritySync))
	assert.Equal(t, 3, reads, "+0 to -0 is a change")
}

func TestComponentReadsContext(t *testing.T) {
	e, rec, _ := newTestEngine(t)
	root := e.CreateRoot(rec.Container)
	ctx := element.NewContext("user", "anon")

	comp := func(r element.Reader, props element.Props) (*element.Element, error) {
		name := r.ReadContext(ctx, 0).(string)
		return element.New("badge", element.Props{"user": name}), nil
	}

	require.NoError(t, e.Render(root,
		element.Provide(ctx, "ada", element.Render(comp, nil, "")),
		sched.PrioritySync))
	assert.Equal(t, "ada", rec.Container.Children[0].Props["user"])
}

func TestReadContextOutsideRenderPanics(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := element.NewContext("x", nil)
	assert.Panics(t, func() { e.ReadContext(ctx, 0) })
}

func TestProviderStackBalancedAcrossRenderErrors(t *testing.T) {
	e, rec, _ := newTestEngine(t)
	root := e.CreateRoot(rec.Container)
	ctx := element.NewContext("theme", "plain")

	boom := errors.New("boom")
	failing := func(r element.Reader, props element.Props) (*element.Element, error) {
		return nil, boom
	}

	// the provider is pushed, then a descendant fails with no boundary
	err := e.Render(root,
		element.Provide(ctx, "dark", element.New("wrap", nil, element.Render(failing, nil, ""))),
		sched.PrioritySync)
	require.Error(t, err)
	assert.Empty(t, e.providerStack, "error unwind restores the value stack")
	assert.Empty(t, e.hostCtxStack)

	// the engine is still healthy: a later pass reads the right values
	consumer := element.Consume(ctx, 0, func(v any) (*element.Element, error) {
		return element.New("box", element.Props{"theme": v}), nil
	})
	require.NoError(t, e.Render(root, element.Provide(ctx, "light", consumer), sched.PrioritySync))
	assert.Equal(t, "light", rec.Container.Children[0].Props["theme"])
	assert.Empty(t, e.providerStack)
}

func TestProviderStackBalancedWhenBoundaryCaptures(t *testing.T) {
	e, rec, _ := newTestEngine(t)
	root := e.CreateRoot(rec.Container)
	ctx := element.NewContext("theme", "plain")

	boom := errors.New("boom")
	failing := func(r element.Reader, props element.Props) (*element.Element, error) {
		return nil, boom
	}
	fallback := func(err error) *element.Element {
		// reads below the boundary's providers must still resolve
		return element.Consume(ctx, 0, func(v any) (*element.Element, error) {
			return element.New("fallback", element.Props{"theme": v}), nil
		})
	}

	el := element.Provide(ctx, "dark",
		element.Boundary(fallback,
			element.Provide(ctx, "inner", element.Render(failing, nil, "")),
		),
	)
	require.NoError(t, e.Render(root, el, sched.PrioritySync))

	// the inner provider was popped during unwind; the outer one still applies
	assert.Equal(t, "dark", rec.Container.Children[0].Props["theme"])
	assert.Empty(t, e.providerStack)
}

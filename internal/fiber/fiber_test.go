package fiber

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomui/loom/internal/element"
	"github.com/loomui/loom/internal/sched"
)

func TestFromElement_TagMapping(t *testing.T) {
	ctx := element.NewContext("theme", "light")

	cases := []struct {
		el  *element.Element
		tag WorkTag
	}{
		{element.New("div", nil), HostComponent},
		{element.Text("hi"), HostText},
		{element.Render(func(element.Reader, element.Props) (*element.Element, error) { return nil, nil }, nil, ""), FunctionComponent},
		{element.Provide(ctx, "dark"), ContextProvider},
		{element.Consume(ctx, 0, func(any) (*element.Element, error) { return nil, nil }), ContextConsumer},
		{element.Boundary(func(error) *element.Element { return nil }), ErrorBoundary},
		{element.Fragment(), Fragment},
	}
	for _, tc := range cases {
		f := FromElement(tc.el, sched.Sync)
		assert.Equal(t, tc.tag, f.Tag, "element kind %v", tc.el.Kind)
		assert.True(t, f.Matches(tc.el))
	}
}

func TestMatches_TypeAndContextIdentity(t *testing.T) {
	div := FromElement(element.New("div", nil), sched.Sync)
	assert.True(t, div.Matches(element.New("div", element.Props{"x": 1})))
	assert.False(t, div.Matches(element.New("span", nil)), "different host type")
	assert.False(t, div.Matches(element.Text("t")), "different kind")

	a := element.NewContext("a", nil)
	b := element.NewContext("a", nil)
	prov := FromElement(element.Provide(a, 1), sched.Sync)
	assert.True(t, prov.Matches(element.Provide(a, 2)))
	assert.False(t, prov.Matches(element.Provide(b, 1)), "context identity is pointer identity")
}

func TestCreateWorkInProgress_PairSymmetry(t *testing.T) {
	cur := FromElement(element.New("div", element.Props{"a": 1}), sched.Sync)
	cur.StateNode = "instance"

	next := element.New("div", element.Props{"a": 2})
	wip := CreateWorkInProgress(cur, next, 5)

	require.NotNil(t, wip)
	assert.Same(t, cur, wip.Alternate)
	assert.Same(t, wip, cur.Alternate)
	assert.Equal(t, cur.ID, wip.ID, "alternate shares the logical identity")
	assert.Equal(t, "instance", wip.StateNode)
	assert.Same(t, next, wip.Pending)

	// Second pass reuses the same alternate - at most two live versions of
	// a position ever exist.
	again := CreateWorkInProgress(cur, next, 7)
	assert.Same(t, wip, again)
}

func TestCreateWorkInProgress_ResetsEffectState(t *testing.T) {
	cur := FromElement(element.New("div", nil), sched.Sync)
	wip := CreateWorkInProgress(cur, cur.Pending, sched.Sync)
	wip.Flags = Placement | Update
	wip.FirstEffect = cur
	wip.LastEffect = cur

	again := CreateWorkInProgress(cur, cur.Pending, sched.Sync)
	assert.Equal(t, NoFlags, again.Flags)
	assert.Nil(t, again.FirstEffect)
	assert.Nil(t, again.LastEffect)
}

func TestCloneChildFibers(t *testing.T) {
	parent := FromElement(element.New("ul", nil), sched.Sync)
	c1 := FromElement(element.New("li", nil), sched.Sync)
	c2 := FromElement(element.Text("x"), sched.Sync)
	parent.Child = c1
	c1.Return = parent
	c1.Sibling = c2
	c2.Return = parent

	wip := CreateWorkInProgress(parent, parent.Pending, sched.Sync)
	CloneChildFibers(wip)

	require.NotNil(t, wip.Child)
	assert.NotSame(t, c1, wip.Child, "children are cloned, not aliased")
	assert.Same(t, c1, wip.Child.Alternate)
	assert.Same(t, wip, wip.Child.Return)

	sib := wip.Child.Sibling
	require.NotNil(t, sib)
	assert.Same(t, c2, sib.Alternate)
	assert.Same(t, wip, sib.Return)
	assert.Nil(t, sib.Sibling)
}

func TestBubbleEffects_TreeOrder(t *testing.T) {
	parent := FromElement(element.New("div", nil), sched.Sync)
	a := FromElement(element.Text("a"), sched.Sync)
	b := FromElement(element.Text("b"), sched.Sync)
	a.Flags = Placement
	b.Flags = Update

	// a completes first: its own effect lands before b's.
	parent.BubbleEffects(a)
	parent.BubbleEffects(b)

	require.Same(t, a, parent.FirstEffect)
	assert.Same(t, b, a.NextEffect)
	assert.Same(t, b, parent.LastEffect)
}

func TestBubbleEffects_SplicesChildList(t *testing.T) {
	parent := FromElement(element.New("div", nil), sched.Sync)
	mid := FromElement(element.New("span", nil), sched.Sync)
	leaf := FromElement(element.Text("x"), sched.Sync)
	leaf.Flags = Placement
	mid.BubbleEffects(leaf)
	mid.Flags = Update

	parent.BubbleEffects(mid)

	// Child subtree effects come before the child itself.
	require.Same(t, leaf, parent.FirstEffect)
	assert.Same(t, mid, leaf.NextEffect)
	assert.Same(t, mid, parent.LastEffect)
}

func TestDependencies_Clone(t *testing.T) {
	ctx1 := element.NewContext("a", nil)
	ctx2 := element.NewContext("b", nil)
	deps := &Dependencies{First: &ContextDependency{
		Context:      ctx1,
		ObservedBits: 1,
		Next:         &ContextDependency{Context: ctx2, ObservedBits: element.MaxChangedBits},
	}}

	cp := deps.Clone()
	require.NotNil(t, cp)
	assert.NotSame(t, deps.First, cp.First)
	assert.Same(t, ctx1, cp.First.Context)
	assert.Equal(t, int32(1), cp.First.ObservedBits)
	assert.Same(t, ctx2, cp.First.Next.Context)

	var nilDeps *Dependencies
	assert.Nil(t, nilDeps.Clone())
}

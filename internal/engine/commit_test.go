package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomui/loom/internal/element"
	"github.com/loomui/loom/internal/host"
	"github.com/loomui/loom/internal/sched"
)

func deepTree(n int) *element.Element {
	ctx := deepTreeCtx
	return element.Provide(ctx, n,
		element.New("page", nil,
			element.New("header", element.Props{"title": "t"}),
			element.Fragment(
				element.Consume(ctx, 0, func(v any) (*element.Element, error) {
					return element.New("count", element.Props{"n": v}), nil
				}),
			),
			element.New("list", nil,
				element.New("item", nil, "x").WithKey("a"),
				element.New("item", nil, "y").WithKey("b"),
			),
		),
	)
}

var deepTreeCtx = element.NewContext("deep", 0)

func TestRecommitIsIdempotent(t *testing.T) {
	e, rec, _ := newTestEngine(t)
	root := e.CreateRoot(rec.Container)

	require.NoError(t, e.Render(root, deepTree(1), sched.PrioritySync))
	after := rec.TreeString()
	rec.TakeOps()

	// an equivalent description commits zero host mutations
	require.NoError(t, e.Render(root, deepTree(1), sched.PrioritySync))
	assert.Empty(t, rec.MutationOps())
	assert.Equal(t, after, rec.TreeString())

	// and the commit brackets still fire exactly once per pass
	kinds := opKinds(rec.TakeOps())
	assert.Equal(t, []string{host.OpPrepareCommit, host.OpResetCommit}, kinds)
}

func TestCommitBracketsSurroundMutations(t *testing.T) {
	e, rec, _ := newTestEngine(t)
	root := e.CreateRoot(rec.Container)

	require.NoError(t, e.Render(root, element.New("box", element.Props{"n": 1}), sched.PrioritySync))
	rec.TakeOps()

	require.NoError(t, e.Render(root, element.New("box", element.Props{"n": 2}), sched.PrioritySync))
	kinds := opKinds(rec.TakeOps())
	assert.Equal(t, []string{host.OpPrepareCommit, host.OpUpdate, host.OpResetCommit}, kinds)
}

func TestEffectOrderIsTreeOrder(t *testing.T) {
	e, rec, _ := newTestEngine(t)
	root := e.CreateRoot(rec.Container)

	require.NoError(t, e.Render(root,
		element.New("page", nil,
			element.New("a", element.Props{"n": 1}),
			element.New("b", element.Props{"n": 1}),
		), sched.PrioritySync))
	rec.TakeOps()

	require.NoError(t, e.Render(root,
		element.New("page", nil,
			element.New("a", element.Props{"n": 2}),
			element.New("b", element.Props{"n": 2}),
		), sched.PrioritySync))

	ops := rec.MutationOps()
	require.Len(t, ops, 2)
	assert.Equal(t, "a", ops[0].Type)
	assert.Equal(t, "b", ops[1].Type, "updates apply in stable tree order")
}

func TestPortalRendersIntoOtherContainer(t *testing.T) {
	e, rec, _ := newTestEngine(t)
	root := e.CreateRoot(rec.Container)
	target := &host.Node{ID: 9000, Type: "#overlay"}

	el := element.New("page", nil,
		element.New("content", nil),
		element.Portal(target, element.New("modal", element.Props{"open": true})),
	)
	require.NoError(t, e.Render(root, el, sched.PrioritySync))

	page := rec.Container.Children[0]
	require.Len(t, page.Children, 1, "portal children do not attach to the surrounding host")
	assert.Equal(t, "content", page.Children[0].Type)
	require.Len(t, target.Children, 1)
	assert.Equal(t, "modal", target.Children[0].Type)

	// dropping the portal removes its children from the other container
	require.NoError(t, e.Render(root,
		element.New("page", nil, element.New("content", nil)), sched.PrioritySync))
	assert.Empty(t, target.Children)
}

func TestDeletionEffectsRideParentList(t *testing.T) {
	hook := &recordingHook{}
	e, rec, _ := newTestEngine(t, WithDevtools(hook))
	root := e.CreateRoot(rec.Container)

	require.NoError(t, e.Render(root,
		element.New("list", nil,
			element.New("item", nil, "x").WithKey("a"),
			element.New("item", nil, "y").WithKey("b"),
		), sched.PrioritySync))
	hook.commits = nil

	require.NoError(t, e.Render(root,
		element.New("list", nil, element.New("item", nil, "y").WithKey("b")),
		sched.PrioritySync))

	require.Len(t, hook.commits, 1)
	var removes int
	for _, m := range hook.commits[0].Mutations {
		if m.Op == "remove" {
			removes++
		}
	}
	assert.Equal(t, 1, removes, "one subtree removal for the deleted keyed child")
	assert.Len(t, hook.unmounts, 2, "deleted host node and its text leaf both report unmount")
}

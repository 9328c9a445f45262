package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomui/loom/internal/devtools"
	"github.com/loomui/loom/internal/element"
	"github.com/loomui/loom/internal/host"
	"github.com/loomui/loom/internal/sched"
)

func item(key, text string) *element.Element {
	return element.New("item", element.Props{"k": key}, text).WithKey(key)
}

func TestReplayRebuildsLiveTree(t *testing.T) {
	e, rec, st, hook := newRecordedEngine(t)
	root := e.CreateRoot(rec.Container)
	ctx := context.Background()

	// mount, update, reorder, delete: one pass each
	require.NoError(t, e.Render(root,
		element.New("page", element.Props{"title": "start"},
			element.New("list", nil, item("a", "x"), item("b", "y"), item("c", "z")),
		), sched.PrioritySync))
	require.NoError(t, e.Render(root,
		element.New("page", element.Props{"title": "next"},
			element.New("list", nil, item("a", "x"), item("b", "y"), item("c", "z")),
		), sched.PrioritySync))
	require.NoError(t, e.Render(root,
		element.New("page", element.Props{"title": "next"},
			element.New("list", nil, item("c", "z"), item("a", "x"), item("b", "y")),
		), sched.PrioritySync))
	require.NoError(t, e.Render(root,
		element.New("page", element.Props{"title": "next"},
			element.New("list", nil, item("c", "z"), item("b", "y")),
		), sched.PrioritySync))

	replayed := host.NewRecording()
	require.NoError(t, Replay(ctx, st, hook.Session(), replayed, replayed.Container))

	assert.Equal(t, rec.TreeString(), replayed.TreeString(),
		"the stored mutation stream alone reproduces the live tree")
}

func TestReplayTextMutations(t *testing.T) {
	e, rec, st, hook := newRecordedEngine(t)
	root := e.CreateRoot(rec.Container)
	ctx := context.Background()

	require.NoError(t, e.Render(root, element.New("label", nil, "before"), sched.PrioritySync))
	require.NoError(t, e.Render(root, element.New("label", nil, "after"), sched.PrioritySync))

	replayed := host.NewRecording()
	require.NoError(t, Replay(ctx, st, hook.Session(), replayed, replayed.Container))
	assert.Equal(t, rec.TreeString(), replayed.TreeString())
}

func TestReplayUnknownSessionIsEmpty(t *testing.T) {
	st := openTestStore(t)
	replayed := host.NewRecording()

	require.NoError(t, Replay(context.Background(), st, "no-such-session", replayed, replayed.Container))
	assert.Empty(t, replayed.Container.Children)
}

func TestReplayRejectsCorruptStream(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	session, err := st.BeginSession(ctx, "renderer-1")
	require.NoError(t, err)
	require.NoError(t, st.WriteCommit(ctx, CommitRecord{
		Session: session,
		Seq:     0,
		RootID:  1,
		Mutations: []devtools.Mutation{
			{Op: devtools.MutAppend, Node: 99, Parent: 1},
		},
	}))

	replayed := host.NewRecording()
	err = Replay(ctx, st, session, replayed, replayed.Container)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown node")
}

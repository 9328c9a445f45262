package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomui/loom/internal/devtools"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "trace.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.db")

	st, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	st, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, st.Close())
}

func TestWriteAndReadSession(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	session, err := st.BeginSession(ctx, "renderer-1")
	require.NoError(t, err)
	require.NotEmpty(t, session)

	first := CommitRecord{
		Session:     session,
		Seq:         0,
		RootID:      1,
		Expiration:  1,
		EffectCount: 3,
		Mutations: []devtools.Mutation{
			{Op: devtools.MutCreate, Node: 10, Type: "box", Props: map[string]any{"n": int64(1), "label": "a"}},
			{Op: devtools.MutAppend, Node: 10, Parent: 1},
		},
	}
	second := CommitRecord{
		Session:     session,
		Seq:         1,
		RootID:      1,
		Expiration:  1,
		EffectCount: 2,
		Mutations: []devtools.Mutation{
			{Op: devtools.MutUpdate, Node: 10, Type: "box", Props: map[string]any{"n": int64(2)}},
			{Op: devtools.MutRemove, Node: 11, Parent: 10},
		},
		Unmounts: []int64{11, 12},
	}
	require.NoError(t, st.WriteCommit(ctx, first))
	require.NoError(t, st.WriteCommit(ctx, second))

	records, err := st.ReadSession(ctx, session)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, int64(0), records[0].Seq)
	require.Len(t, records[0].Mutations, 2)
	assert.Equal(t, devtools.MutCreate, records[0].Mutations[0].Op)
	assert.Equal(t, "box", records[0].Mutations[0].Type)
	assert.Equal(t, "a", records[0].Mutations[0].Props["label"])
	assert.Equal(t, int64(10), records[0].Mutations[1].Node)

	assert.Equal(t, int64(1), records[1].Seq)
	assert.Equal(t, []int64{11, 12}, records[1].Unmounts)
}

func TestWriteCommitIsIdempotent(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	session, err := st.BeginSession(ctx, "renderer-1")
	require.NoError(t, err)

	rec := CommitRecord{
		Session:   session,
		Seq:       0,
		RootID:    1,
		Mutations: []devtools.Mutation{{Op: devtools.MutCreate, Node: 10, Type: "box"}},
	}
	require.NoError(t, st.WriteCommit(ctx, rec))
	require.NoError(t, st.WriteCommit(ctx, rec), "replaying the same write is a no-op")

	records, err := st.ReadSession(ctx, session)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestReadEmptySession(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	session, err := st.BeginSession(ctx, "renderer-1")
	require.NoError(t, err)

	records, err := st.ReadSession(ctx, session)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestSessionsAndLatest(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	_, err := st.LatestSession(ctx)
	require.Error(t, err, "no sessions yet")

	a, err := st.BeginSession(ctx, "renderer-a")
	require.NoError(t, err)
	b, err := st.BeginSession(ctx, "renderer-b")
	require.NoError(t, err)

	require.NoError(t, st.WriteCommit(ctx, CommitRecord{Session: a, Seq: 0, RootID: 1}))

	infos, err := st.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	tokens := []string{infos[0].Token, infos[1].Token}
	assert.Contains(t, tokens, a)
	assert.Contains(t, tokens, b)
	for _, info := range infos {
		if info.Token == a {
			assert.Equal(t, int64(1), info.Commits)
			assert.Equal(t, "renderer-a", info.RendererID)
		}
	}

	latest, err := st.LatestSession(ctx)
	require.NoError(t, err)
	assert.Contains(t, []string{a, b}, latest, "latest is one of the recorded sessions")
}

func TestMutationsCanonicalRoundTrip(t *testing.T) {
	muts := []devtools.Mutation{
		{Op: devtools.MutCreate, Node: 1, Type: "box", Props: map[string]any{"b": int64(2), "a": "x"}},
		{Op: devtools.MutCreateText, Node: 2, Text: "hi"},
		{Op: devtools.MutInsertBefore, Node: 2, Parent: 1, Before: 3},
		{Op: devtools.MutResetText, Node: 1},
	}

	data, err := marshalMutations(muts)
	require.NoError(t, err)

	again, err := marshalMutations(muts)
	require.NoError(t, err)
	assert.Equal(t, data, again, "canonical form is byte-stable")

	decoded, err := unmarshalMutations(data)
	require.NoError(t, err)
	require.Len(t, decoded, 4)
	assert.Equal(t, devtools.MutCreate, decoded[0].Op)
	assert.Equal(t, "x", decoded[0].Props["a"])
	assert.Equal(t, int64(3), decoded[2].Before)
	assert.Equal(t, devtools.MutResetText, decoded[3].Op)

	none, err := unmarshalMutations("[]")
	require.NoError(t, err)
	assert.Nil(t, none)
}

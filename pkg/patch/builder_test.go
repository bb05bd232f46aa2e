package patch_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warpgraph/warp/pkg/codec"
	"github.com/warpgraph/warp/pkg/memstore"
	"github.com/warpgraph/warp/pkg/patch"
	"github.com/warpgraph/warp/pkg/warperr"
)

func TestBuilder_CommitEmptyFails(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memstore.New(nil)

	b, err := patch.NewBuilder(store, "events", "writer-a", 2)
	require.NoError(t, err)

	_, err = b.Commit(ctx)
	assert.ErrorIs(t, err, warperr.ErrEmptyPatch)
}

func TestBuilder_ChainsLamportAcrossCommits(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memstore.New(nil)

	b1, err := patch.NewBuilder(store, "events", "writer-a", 2)
	require.NoError(t, err)
	b1.AddNode("x")

	first, err := b1.Commit(ctx)
	require.NoError(t, err)

	b2, err := patch.NewBuilder(store, "events", "writer-a", 2)
	require.NoError(t, err)
	b2.AddNode("y")

	second, err := b2.Commit(ctx)
	require.NoError(t, err)

	info, err := store.GetNodeInfo(ctx, second)
	require.NoError(t, err)
	require.Len(t, info.Parents, 1)
	assert.Equal(t, first, info.Parents[0])
}

func TestBuilder_DotCountersIncreaseAcrossPatches(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memstore.New(nil)

	b1, err := patch.NewBuilder(store, "events", "writer-a", 2)
	require.NoError(t, err)
	b1.AddNode("x")
	b1.AddNode("y")

	_, err = b1.Commit(ctx)
	require.NoError(t, err)

	b2, err := patch.NewBuilder(store, "events", "writer-a", 2)
	require.NoError(t, err)
	b2.AddNode("z")

	second, err := b2.Commit(ctx)
	require.NoError(t, err)

	info, err := store.GetNodeInfo(ctx, second)
	require.NoError(t, err)

	entries, err := store.ReadTree(ctx, info.Tree)
	require.NoError(t, err)

	var blob []byte

	for _, e := range entries {
		if e.Name == "patch" {
			blob, err = store.ReadBlob(ctx, e.Hash)
			require.NoError(t, err)
		}
	}

	require.NotNil(t, blob)

	var p patch.Patch

	require.NoError(t, codec.DecodeBlob(blob, &p))
	require.Len(t, p.Ops, 1)
	require.NotNil(t, p.Ops[0].Dot)
	assert.EqualValues(t, 3, p.Ops[0].Dot.Counter)
}

type alwaysLiveChecker struct{}

func (alwaysLiveChecker) NodeHasLiveDependents(string) bool { return true }

func TestBuilder_DeleteGuardReject(t *testing.T) {
	t.Parallel()

	store := memstore.New(nil)

	b, err := patch.NewBuilder(store, "events", "writer-a", 2, patch.WithDeleteGuard(patch.DeleteGuardReject, alwaysLiveChecker{}))
	require.NoError(t, err)

	err = b.RemoveNode("x")
	assert.ErrorIs(t, err, warperr.ErrInvalidPatch)
	assert.Zero(t, b.OperationCount())
}

func TestBuilder_DeleteGuardWarn(t *testing.T) {
	t.Parallel()

	store := memstore.New(nil)

	b, err := patch.NewBuilder(store, "events", "writer-a", 2, patch.WithDeleteGuard(patch.DeleteGuardWarn, alwaysLiveChecker{}))
	require.NoError(t, err)

	require.NoError(t, b.RemoveNode("x"))
	assert.Equal(t, 1, b.OperationCount())
	assert.Len(t, b.Warnings(), 1)
}

func TestNewBuilder_RejectsInvalidNames(t *testing.T) {
	t.Parallel()

	store := memstore.New(nil)

	_, err := patch.NewBuilder(store, "a/../b", "writer-a", 2)
	assert.ErrorIs(t, err, warperr.ErrInvalidName)

	_, err = patch.NewBuilder(store, "events", "writer/a", 2)
	assert.ErrorIs(t, err, warperr.ErrInvalidName)
}

package checkpoint_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warpgraph/warp/pkg/checkpoint"
	"github.com/warpgraph/warp/pkg/frontier"
	"github.com/warpgraph/warp/pkg/memstore"
	"github.com/warpgraph/warp/pkg/objstore"
	"github.com/warpgraph/warp/pkg/patch"
	"github.com/warpgraph/warp/pkg/reducer"
)

func TestCreateLoad_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memstore.New(nil)

	tip, err := store.CommitNode(ctx, objstore.NewNode{Message: "tip"})
	require.NoError(t, err)

	patches := []patch.Patch{
		{Schema: 2, Writer: "a", Lamport: 1, Ops: []patch.Operation{
			{Kind: patch.KindNodeAdd, NodeID: "x", Dot: &patch.Dot{Writer: "a", Counter: 1}},
		}},
	}

	state, err := reducer.Fold(patches)
	require.NoError(t, err)

	f := frontier.Frontier{"a": tip}

	commit, err := checkpoint.Create(ctx, store, "events", state, f, []objstore.Hash{tip}, 2, []string{"index-placeholder"})
	require.NoError(t, err)

	loaded, err := checkpoint.Load(ctx, store, commit)
	require.NoError(t, err)

	assert.Equal(t, 2, loaded.Schema)
	assert.True(t, loaded.State.NodeAlive["x"].Value)
	assert.Equal(t, tip, loaded.Frontier["a"])

	stateHash, err := state.StateHash()
	require.NoError(t, err)
	assert.Equal(t, stateHash, loaded.StateHash)
}

func TestMaterializeIncremental(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memstore.New(nil)

	tip, err := store.CommitNode(ctx, objstore.NewNode{Message: "tip"})
	require.NoError(t, err)

	basePatches := []patch.Patch{
		{Schema: 2, Writer: "a", Lamport: 1, Ops: []patch.Operation{
			{Kind: patch.KindNodeAdd, NodeID: "x", Dot: &patch.Dot{Writer: "a", Counter: 1}},
		}},
	}

	baseState, err := reducer.Fold(basePatches)
	require.NoError(t, err)

	baseFrontier := frontier.Frontier{"a": tip}

	commit, err := checkpoint.Create(ctx, store, "events", baseState, baseFrontier, []objstore.Hash{tip}, 2, nil)
	require.NoError(t, err)

	newTip, err := store.CommitNode(ctx, objstore.NewNode{Message: "new-tip", Parents: []objstore.Hash{tip}})
	require.NoError(t, err)

	targetFrontier := frontier.Frontier{"a": newTip}

	incrementalPatch := patch.Patch{
		Schema: 2, Writer: "a", Lamport: 2, Ops: []patch.Operation{
			{Kind: patch.KindNodeAdd, NodeID: "y", Dot: &patch.Dot{Writer: "a", Counter: 2}},
		},
	}

	loader := func(_ context.Context, writer string, from, to objstore.Hash) ([]patch.Patch, error) {
		assert.Equal(t, "a", writer)
		assert.Equal(t, tip, from)
		assert.Equal(t, newTip, to)

		return []patch.Patch{incrementalPatch}, nil
	}

	state, err := checkpoint.MaterializeIncremental(ctx, store, commit, targetFrontier, loader)
	require.NoError(t, err)

	assert.True(t, state.NodeAlive["x"].Value)
	assert.True(t, state.NodeAlive["y"].Value)
}

func TestMaterializeIncremental_TombstoneRetiresCheckpointedDot(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memstore.New(nil)

	tip, err := store.CommitNode(ctx, objstore.NewNode{Message: "tip"})
	require.NoError(t, err)

	basePatches := []patch.Patch{
		{Schema: 2, Writer: "a", Lamport: 1, Ops: []patch.Operation{
			{Kind: patch.KindNodeAdd, NodeID: "u", Dot: &patch.Dot{Writer: "a", Counter: 1}},
		}},
	}

	baseState, err := reducer.Fold(basePatches)
	require.NoError(t, err)
	require.True(t, baseState.NodeAlive["u"].Value)

	baseFrontier := frontier.Frontier{"a": tip}

	commit, err := checkpoint.Create(ctx, store, "events", baseState, baseFrontier, []objstore.Hash{tip}, 2, nil)
	require.NoError(t, err)

	newTip, err := store.CommitNode(ctx, objstore.NewNode{Message: "new-tip", Parents: []objstore.Hash{tip}})
	require.NoError(t, err)

	targetFrontier := frontier.Frontier{"a": newTip}

	// A tombstone observing exactly the dot the checkpoint captured "u"
	// alive with. A from-scratch fold of base+this patch kills "u"; the
	// incremental path must agree.
	tombstone := patch.Patch{
		Schema: 2, Writer: "a", Lamport: 2,
		ObservedFrontier: map[string]uint64{"a": 1},
		Ops: []patch.Operation{
			{Kind: patch.KindNodeTombstone, NodeID: "u"},
		},
	}

	loader := func(_ context.Context, writer string, from, to objstore.Hash) ([]patch.Patch, error) {
		assert.Equal(t, "a", writer)
		assert.Equal(t, tip, from)
		assert.Equal(t, newTip, to)

		return []patch.Patch{tombstone}, nil
	}

	state, err := checkpoint.MaterializeIncremental(ctx, store, commit, targetFrontier, loader)
	require.NoError(t, err)

	assert.False(t, state.NodeAlive["u"].Value)

	fromScratch, err := reducer.Fold(append(basePatches, tombstone))
	require.NoError(t, err)
	assert.Equal(t, fromScratch.NodeAlive["u"].Value, state.NodeAlive["u"].Value)
}

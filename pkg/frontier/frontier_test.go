package frontier_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warpgraph/warp/pkg/frontier"
	"github.com/warpgraph/warp/pkg/memstore"
	"github.com/warpgraph/warp/pkg/objstore"
	"github.com/warpgraph/warp/pkg/warperr"
)

func TestHash_StableUnderReordering(t *testing.T) {
	t.Parallel()

	f1 := frontier.Frontier{"a": objstore.NewHash("01"), "b": objstore.NewHash("02")}
	f2 := frontier.Frontier{"b": objstore.NewHash("02"), "a": objstore.NewHash("01")}

	h1, err := f1.ComputeHash()
	require.NoError(t, err)
	h2, err := f2.ComputeHash()
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func chain(t *testing.T, store objstore.Store, n int) []objstore.Hash {
	t.Helper()

	ctx := context.Background()

	var parent objstore.Hash

	out := make([]objstore.Hash, 0, n)

	for i := 0; i < n; i++ {
		var parents []objstore.Hash
		if !parent.IsZero() {
			parents = []objstore.Hash{parent}
		}

		c, err := store.CommitNode(ctx, objstore.NewNode{Message: "c", Parents: parents})
		require.NoError(t, err)

		out = append(out, c)
		parent = c
	}

	return out
}

func TestGreaterOrEqual(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memstore.New(nil)
	commits := chain(t, store, 3)

	base := frontier.Frontier{"a": commits[0]}
	ahead := frontier.Frontier{"a": commits[2]}
	behind := frontier.Frontier{"a": commits[0]}

	ok, err := ahead.GreaterOrEqual(ctx, store, base)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = behind.GreaterOrEqual(ctx, store, ahead)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = frontier.Frontier{}.GreaterOrEqual(ctx, store, base)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMerge_DiscoversDescendantAndDetectsFork(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memstore.New(nil)
	commits := chain(t, store, 3)

	f1 := frontier.Frontier{"a": commits[0], "b": commits[2]}
	f2 := frontier.Frontier{"a": commits[2]}

	merged, err := frontier.Merge(ctx, store, f1, f2)
	require.NoError(t, err)
	assert.Equal(t, commits[2], merged["a"])
	assert.Equal(t, commits[2], merged["b"])

	sibling, err := store.CommitNode(ctx, objstore.NewNode{Message: "sibling", Parents: []objstore.Hash{commits[0]}})
	require.NoError(t, err)

	forked := frontier.Frontier{"a": sibling}

	_, err = frontier.Merge(ctx, store, f2, forked)
	assert.ErrorIs(t, err, warperr.ErrWriterFork)
}

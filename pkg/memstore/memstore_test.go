package memstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warpgraph/warp/pkg/memstore"
	"github.com/warpgraph/warp/pkg/objstore"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestStore_BlobRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := memstore.New(nil)

	oid, err := s.WriteBlob(ctx, []byte("hello"))
	require.NoError(t, err)

	data, err := s.ReadBlob(ctx, oid)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	_, err = s.ReadBlob(ctx, objstore.NewHash("deadbeef"))
	require.ErrorIs(t, err, objstore.ErrNotFound)
}

func TestStore_UpdateRefCAS(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := memstore.New(nil)
	ref := "refs/warp/g/writers/a"

	err := s.UpdateRef(ctx, ref, objstore.ZeroHash(), objstore.NewHash("01"))
	require.NoError(t, err)

	err = s.UpdateRef(ctx, ref, objstore.ZeroHash(), objstore.NewHash("02"))
	require.ErrorIs(t, err, objstore.ErrRefConflict)

	err = s.UpdateRef(ctx, ref, objstore.NewHash("01"), objstore.NewHash("02"))
	require.NoError(t, err)

	got, ok, err := s.ReadRef(ctx, ref)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, objstore.NewHash("02"), got)
}

func TestStore_CommitAncestry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := memstore.New(fixedClock(time.Unix(0, 0)))

	root, err := s.CommitNode(ctx, objstore.NewNode{Message: "root"})
	require.NoError(t, err)

	mid, err := s.CommitNode(ctx, objstore.NewNode{Message: "mid", Parents: []objstore.Hash{root}})
	require.NoError(t, err)

	tip, err := s.CommitNode(ctx, objstore.NewNode{Message: "tip", Parents: []objstore.Hash{mid}})
	require.NoError(t, err)

	sibling, err := s.CommitNode(ctx, objstore.NewNode{Message: "sibling", Parents: []objstore.Hash{root}})
	require.NoError(t, err)

	isAnc, err := s.IsAncestor(ctx, root, tip)
	require.NoError(t, err)
	assert.True(t, isAnc)

	isAnc, err = s.IsAncestor(ctx, tip, root)
	require.NoError(t, err)
	assert.False(t, isAnc)

	isAnc, err = s.IsAncestor(ctx, sibling, tip)
	require.NoError(t, err)
	assert.False(t, isAnc)

	isAnc, err = s.IsAncestor(ctx, tip, tip)
	require.NoError(t, err)
	assert.True(t, isAnc)

	isAnc, err = s.IsAncestor(ctx, objstore.ZeroHash(), tip)
	require.NoError(t, err)
	assert.False(t, isAnc)
}

func TestStore_TreeRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := memstore.New(nil)

	blobOID, err := s.WriteBlob(ctx, []byte("payload"))
	require.NoError(t, err)

	treeOID, err := s.WriteTree(ctx, []objstore.TreeEntry{{Name: "patch", Hash: blobOID}})
	require.NoError(t, err)

	entries, err := s.ReadTree(ctx, treeOID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "patch", entries[0].Name)
	assert.Equal(t, blobOID, entries[0].Hash)
}

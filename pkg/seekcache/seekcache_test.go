package seekcache_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warpgraph/warp/pkg/frontier"
	"github.com/warpgraph/warp/pkg/objstore"
	"github.com/warpgraph/warp/pkg/seekcache"
)

func TestCache_MissThenHit(t *testing.T) {
	t.Parallel()

	c, err := seekcache.New(4)
	require.NoError(t, err)

	var fh frontier.Hash
	copy(fh[:], "abc")

	_, ok := c.Get(fh, 3)
	assert.False(t, ok)

	var oid objstore.Hash
	copy(oid[:], "deadbeef")

	c.Put(fh, 3, oid)

	got, ok := c.Get(fh, 3)
	require.True(t, ok)
	assert.Equal(t, oid, got)

	assert.Equal(t, 1, c.Len())
}

func TestCache_DistinctTicksDistinctEntries(t *testing.T) {
	t.Parallel()

	c, err := seekcache.New(4)
	require.NoError(t, err)

	var fh frontier.Hash

	var a, b objstore.Hash
	copy(a[:], "aaaa")
	copy(b[:], "bbbb")

	c.Put(fh, 1, a)
	c.Put(fh, 2, b)

	got1, ok := c.Get(fh, 1)
	require.True(t, ok)
	assert.Equal(t, a, got1)

	got2, ok := c.Get(fh, 2)
	require.True(t, ok)
	assert.Equal(t, b, got2)
}

func TestCache_Clear(t *testing.T) {
	t.Parallel()

	c, err := seekcache.New(4)
	require.NoError(t, err)

	var fh frontier.Hash

	var oid objstore.Hash
	copy(oid[:], "x")

	c.Put(fh, 1, oid)
	require.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())

	_, ok := c.Get(fh, 1)
	assert.False(t, ok)
}

func TestCache_NilIsSafeNoOp(t *testing.T) {
	t.Parallel()

	var c *seekcache.Cache

	var fh frontier.Hash

	var oid objstore.Hash

	c.Put(fh, 1, oid)
	_, ok := c.Get(fh, 1)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
	c.Clear()
}

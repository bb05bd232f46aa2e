// Package seekcache memoizes the state materialised at a given frontier and
// tick, so repeated seeks to the same historical point don't re-fold
// every writer's patches each time. It is an optional collaborator:
// pkg/seek must remain correct with every cache disabled or evicted.
package seekcache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/google/uuid"

	"github.com/warpgraph/warp/pkg/frontier"
	"github.com/warpgraph/warp/pkg/objstore"
)

// DefaultSize is the number of (frontier, tick) entries kept when a Cache
// is constructed with size 0.
const DefaultSize = 256

type key struct {
	frontierHash frontier.Hash
	tick         uint64
}

// Cache maps (frontier_hash, tick) to the object-store hash of the
// materialised state blob at that point. It holds no state bytes itself;
// a hit still costs a ReadBlob against the store.
type Cache struct {
	entries *lru.Cache[key, objstore.Hash]

	// SessionID is minted once per Cache by New. Get and Put do not log,
	// and nothing in this package reads the field.
	SessionID uuid.UUID
}

// New builds a Cache holding at most size entries. size<=0 uses DefaultSize.
func New(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}

	entries, err := lru.New[key, objstore.Hash](size)
	if err != nil {
		return nil, fmt.Errorf("seekcache: %w", err)
	}

	return &Cache{entries: entries, SessionID: uuid.New()}, nil
}

// Get returns the state OID memoized for (frontierHash, tick), if any.
func (c *Cache) Get(frontierHash frontier.Hash, tick uint64) (objstore.Hash, bool) {
	if c == nil || c.entries == nil {
		return objstore.Hash{}, false
	}

	return c.entries.Get(key{frontierHash, tick})
}

// Put memoizes stateOID as the materialised result for (frontierHash, tick).
func (c *Cache) Put(frontierHash frontier.Hash, tick uint64, stateOID objstore.Hash) {
	if c == nil || c.entries == nil {
		return
	}

	c.entries.Add(key{frontierHash, tick}, stateOID)
}

// Clear removes every memoized entry.
func (c *Cache) Clear() {
	if c == nil || c.entries == nil {
		return
	}

	c.entries.Purge()
}

// Len reports the number of memoized entries.
func (c *Cache) Len() int {
	if c == nil || c.entries == nil {
		return 0
	}

	return c.entries.Len()
}

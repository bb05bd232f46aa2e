package seek

import (
	"context"
	"sort"

	"github.com/warpgraph/warp/pkg/codec"
	"github.com/warpgraph/warp/pkg/frontier"
	"github.com/warpgraph/warp/pkg/objstore"
	"github.com/warpgraph/warp/pkg/patch"
	"github.com/warpgraph/warp/pkg/reducer"
	"github.com/warpgraph/warp/pkg/reflayout"
	"github.com/warpgraph/warp/pkg/seekcache"
	"github.com/warpgraph/warp/pkg/tickindex"
	"github.com/warpgraph/warp/pkg/warperr"
)

// Materializer folds graph state as of a tick ceiling, optionally memoizing
// results in a seekcache.Cache. The zero value (nil Cache) is correct, just
// uncached.
type Materializer struct {
	Store objstore.Store
	Cache *seekcache.Cache
}

// CurrentFrontier reads every writer tip reference under graph and returns
// them as a Frontier.
func CurrentFrontier(ctx context.Context, store objstore.Store, graph string) (frontier.Frontier, error) {
	refs, err := store.ListRefs(ctx, reflayout.WritersPrefix(graph))
	if err != nil {
		return nil, warperr.Wrap(err)
	}

	f := make(frontier.Frontier, len(refs))

	for _, ref := range refs {
		writer, ok := reflayout.ParseWriterRef(graph, ref)
		if !ok {
			continue
		}

		tip, ok, err := store.ReadRef(ctx, ref)
		if err != nil {
			return nil, warperr.Wrap(err)
		}

		if ok {
			f[writer] = tip
		}
	}

	return f, nil
}

// AtTick materialises graph's state with only the patches whose Lamport
// tick is <= ceiling folded in, consulting and populating m.Cache keyed by
// the graph's current frontier hash.
func (m *Materializer) AtTick(ctx context.Context, graph string, ceiling uint64) (*reducer.GraphState, frontier.Hash, error) {
	current, err := CurrentFrontier(ctx, m.Store, graph)
	if err != nil {
		return nil, frontier.Hash{}, err
	}

	fh, err := current.ComputeHash()
	if err != nil {
		return nil, frontier.Hash{}, warperr.New(warperr.ErrInvalidPatch, "%v", err)
	}

	if oid, ok := m.Cache.Get(fh, ceiling); ok {
		blob, err := m.Store.ReadBlob(ctx, oid)
		if err != nil {
			return nil, frontier.Hash{}, warperr.Wrap(err)
		}

		state := reducer.NewGraphState()
		if err := codec.DecodeBlob(blob, state); err != nil {
			return nil, frontier.Hash{}, warperr.New(warperr.ErrInvalidPatch, "%v", err)
		}

		return state, fh, nil
	}

	state, err := foldAtCeiling(ctx, m.Store, graph, ceiling)
	if err != nil {
		return nil, frontier.Hash{}, err
	}

	blob, err := codec.EncodeBlob(state)
	if err != nil {
		return nil, frontier.Hash{}, warperr.New(warperr.ErrInvalidPatch, "%v", err)
	}

	oid, err := m.Store.WriteBlob(ctx, blob)
	if err != nil {
		return nil, frontier.Hash{}, warperr.Wrap(err)
	}

	m.Cache.Put(fh, ceiling, oid)

	return state, fh, nil
}

// foldAtCeiling walks every writer chain, loads every patch, keeps only
// those at or below ceiling's Lamport tick, and folds the result.
func foldAtCeiling(ctx context.Context, store objstore.Store, graph string, ceiling uint64) (*reducer.GraphState, error) {
	refs, err := store.ListRefs(ctx, reflayout.WritersPrefix(graph))
	if err != nil {
		return nil, warperr.Wrap(err)
	}

	var patches []patch.Patch

	for _, ref := range refs {
		tip, ok, err := store.ReadRef(ctx, ref)
		if err != nil {
			return nil, warperr.Wrap(err)
		}

		if !ok {
			continue
		}

		chain, err := patch.LoadChain(ctx, store, tip, objstore.ZeroHash())
		if err != nil {
			return nil, err
		}

		for _, p := range chain {
			if p.Lamport <= ceiling {
				patches = append(patches, p)
			}
		}
	}

	return reducer.Fold(patches)
}

// Receipt summarises, per writer, the commit that realised exactly tick,
// and how many operations of each kind it carried.
type Receipt struct {
	Writer    string         `cbor:"writer"`
	CommitID  objstore.Hash  `cbor:"commit_id"`
	OpSummary map[string]int `cbor:"op_summary"`
}

// TickReceipts returns one Receipt for every writer that has a commit at
// exactly the given tick.
func TickReceipts(ctx context.Context, store objstore.Store, graph string, tick uint64) ([]Receipt, error) {
	idx, err := tickindex.Discover(ctx, store, graph)
	if err != nil {
		return nil, err
	}

	writers := make([]string, 0, len(idx.PerWriter))
	for w := range idx.PerWriter {
		writers = append(writers, w)
	}

	sort.Strings(writers)

	var receipts []Receipt

	for _, w := range writers {
		pw := idx.PerWriter[w]

		commit, ok := pw.TickToCommit[tick]
		if !ok {
			continue
		}

		p, err := patch.Load(ctx, store, commit)
		if err != nil {
			return nil, err
		}

		summary := make(map[string]int)
		for _, op := range p.Ops {
			summary[string(op.Kind)]++
		}

		receipts = append(receipts, Receipt{Writer: w, CommitID: commit, OpSummary: summary})
	}

	return receipts, nil
}

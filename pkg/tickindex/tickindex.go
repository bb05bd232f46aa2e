// Package tickindex discovers every Lamport tick realised by any writer's
// chain in a graph, and which commit realises each (writer, tick) pair, by
// walking each chain from its tip back to its root.
package tickindex

import (
	"context"
	"sort"

	"github.com/warpgraph/warp/pkg/objstore"
	"github.com/warpgraph/warp/pkg/reflayout"
	"github.com/warpgraph/warp/pkg/warperr"
)

// PerWriter is one writer's contribution to an Index.
type PerWriter struct {
	Ticks        []uint64                 `cbor:"ticks"`
	TipCommit    objstore.Hash            `cbor:"tip_commit"`
	TickToCommit map[uint64]objstore.Hash `cbor:"tick_to_commit"`
}

// Index is the result of Discover: the sorted union of every tick across
// every writer, and the per-writer detail needed to resolve any one of
// them back to a commit.
type Index struct {
	Ticks     []uint64             `cbor:"ticks"`
	MaxTick   uint64               `cbor:"max_tick"`
	PerWriter map[string]PerWriter `cbor:"per_writer"`
}

// Discover walks every writer chain in graph and builds the tick index.
func Discover(ctx context.Context, store objstore.Store, graph string) (Index, error) {
	refs, err := store.ListRefs(ctx, reflayout.WritersPrefix(graph))
	if err != nil {
		return Index{}, warperr.Wrap(err)
	}

	perWriter := make(map[string]PerWriter, len(refs))
	tickSet := make(map[uint64]struct{})

	for _, ref := range refs {
		writer, ok := reflayout.ParseWriterRef(graph, ref)
		if !ok {
			continue
		}

		pw, err := walkWriterChain(ctx, store, ref)
		if err != nil {
			return Index{}, err
		}

		perWriter[writer] = pw

		for _, tick := range pw.Ticks {
			tickSet[tick] = struct{}{}
		}
	}

	ticks := make([]uint64, 0, len(tickSet))
	for t := range tickSet {
		ticks = append(ticks, t)
	}

	sort.Slice(ticks, func(i, j int) bool { return ticks[i] < ticks[j] })

	var maxTick uint64
	if len(ticks) > 0 {
		maxTick = ticks[len(ticks)-1]
	}

	return Index{Ticks: ticks, MaxTick: maxTick, PerWriter: perWriter}, nil
}

func walkWriterChain(ctx context.Context, store objstore.Store, ref string) (PerWriter, error) {
	tip, ok, err := store.ReadRef(ctx, ref)
	if err != nil {
		return PerWriter{}, warperr.Wrap(err)
	}

	if !ok {
		return PerWriter{}, nil
	}

	pw := PerWriter{TipCommit: tip, TickToCommit: make(map[uint64]objstore.Hash)}

	cursor := tip

	for !cursor.IsZero() {
		info, err := store.GetNodeInfo(ctx, cursor)
		if err != nil {
			return PerWriter{}, warperr.Wrap(err)
		}

		trailers, ok := reflayout.ParseMessage(info.Message)
		if ok && trailers.Kind == reflayout.KindPatch {
			lamport, err := trailers.Lamport()
			if err != nil {
				return PerWriter{}, warperr.New(warperr.ErrInvalidPatch, "%v", err)
			}

			pw.Ticks = append(pw.Ticks, lamport)
			pw.TickToCommit[lamport] = cursor
		}

		if len(info.Parents) == 0 {
			break
		}

		cursor = info.Parents[0]
	}

	sort.Slice(pw.Ticks, func(i, j int) bool { return pw.Ticks[i] < pw.Ticks[j] })

	return pw, nil
}

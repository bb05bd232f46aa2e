// Package seek resolves tick arguments against a graph's discovered tick
// index, materialises graph state as of a tick ceiling, diffs two ticks
// structurally, and persists named/active cursors as content-addressed
// blobs.
package seek

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/warpgraph/warp/pkg/codec"
	"github.com/warpgraph/warp/pkg/frontier"
	"github.com/warpgraph/warp/pkg/objstore"
	"github.com/warpgraph/warp/pkg/reflayout"
	"github.com/warpgraph/warp/pkg/warperr"
)

// Mode distinguishes a graph's single active cursor from its named, saved
// snapshots.
type Mode string

const (
	ModeActive Mode = "active"
	ModeSaved  Mode = "saved"
)

// Cursor is a persisted seek position: a Lamport tick ceiling plus the
// frontier it was resolved against, so a later read can detect that the
// writer chains have since moved (or been rewritten) underneath it.
type Cursor struct {
	Tick         uint64        `cbor:"tick"`
	Mode         Mode          `cbor:"mode"`
	Nodes        []string      `cbor:"nodes,omitempty"`
	Edges        []string      `cbor:"edges,omitempty"`
	FrontierHash frontier.Hash `cbor:"frontier_hash"`
}

// SaveActive persists cursor as graph's active cursor.
func SaveActive(ctx context.Context, store objstore.Store, graph string, cursor Cursor) error {
	cursor.Mode = ModeActive

	return saveCursor(ctx, store, reflayout.ActiveCursorRef(graph), cursor)
}

// LoadActive reads back graph's active cursor, if any.
func LoadActive(ctx context.Context, store objstore.Store, graph string) (Cursor, bool, error) {
	return loadCursor(ctx, store, reflayout.ActiveCursorRef(graph))
}

// SaveNamed persists cursor under a named, saved snapshot.
func SaveNamed(ctx context.Context, store objstore.Store, graph, name string, cursor Cursor) error {
	cursor.Mode = ModeSaved

	return saveCursor(ctx, store, reflayout.SavedCursorRef(graph, name), cursor)
}

// LoadNamed reads back a graph's named saved cursor, if any.
func LoadNamed(ctx context.Context, store objstore.Store, graph, name string) (Cursor, bool, error) {
	return loadCursor(ctx, store, reflayout.SavedCursorRef(graph, name))
}

func saveCursor(ctx context.Context, store objstore.Store, ref string, cursor Cursor) error {
	blob, err := codec.EncodeBlob(cursor)
	if err != nil {
		return warperr.New(warperr.ErrInvalidPatch, "%v", err)
	}

	oid, err := store.WriteBlob(ctx, blob)
	if err != nil {
		return warperr.Wrap(err)
	}

	existing, ok, err := store.ReadRef(ctx, ref)
	if err != nil {
		return warperr.Wrap(err)
	}

	expected := objstore.ZeroHash()
	if ok {
		expected = existing
	}

	if err := store.UpdateRef(ctx, ref, expected, oid); err != nil {
		return warperr.Wrap(err)
	}

	return nil
}

func loadCursor(ctx context.Context, store objstore.Store, ref string) (Cursor, bool, error) {
	oid, ok, err := store.ReadRef(ctx, ref)
	if err != nil {
		return Cursor{}, false, warperr.Wrap(err)
	}

	if !ok {
		return Cursor{}, false, nil
	}

	blob, err := store.ReadBlob(ctx, oid)
	if err != nil {
		return Cursor{}, false, warperr.Wrap(err)
	}

	var cursor Cursor
	if err := codec.DecodeBlob(blob, &cursor); err != nil {
		return Cursor{}, false, warperr.New(warperr.ErrInvalidPatch, "%v", err)
	}

	return cursor, true, nil
}

// points builds the sorted, deduplicated [0] ∪ ticks domain that ResolveTick
// steps across.
func points(ticks []uint64) []uint64 {
	set := make(map[uint64]struct{}, len(ticks)+1)
	set[0] = struct{}{}

	for _, t := range ticks {
		set[t] = struct{}{}
	}

	out := make([]uint64, 0, len(set))
	for t := range set {
		out = append(out, t)
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out
}

// ResolveTick resolves a tick argument against the discovered ticks of a
// graph: "N" is absolute, clamped to [0, max_tick]; "+N"/"-N" is relative,
// stepping that many positions across the [0] ∪ ticks domain from current's
// position, clamped at both ends of that domain.
func ResolveTick(arg string, current uint64, ticks []uint64) (uint64, error) {
	pts := points(ticks)
	maxTick := pts[len(pts)-1]

	if strings.HasPrefix(arg, "+") || strings.HasPrefix(arg, "-") {
		delta, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return 0, warperr.New(warperr.ErrInvalidPatch, "invalid relative tick %q: %v", arg, err)
		}

		idx := positionOf(pts, current)

		newIdx := idx + int(delta)
		if newIdx < 0 {
			newIdx = 0
		}

		if newIdx > len(pts)-1 {
			newIdx = len(pts) - 1
		}

		return pts[newIdx], nil
	}

	abs, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, warperr.New(warperr.ErrInvalidPatch, "invalid absolute tick %q: %v", arg, err)
	}

	if abs > maxTick {
		return maxTick, nil
	}

	return abs, nil
}

// positionOf returns the index of the largest point <= current, so a
// current value that has fallen out of the tick domain (e.g. after a GC
// compaction) still resolves to a sane relative-step origin.
func positionOf(pts []uint64, current uint64) int {
	idx := sort.Search(len(pts), func(i int) bool { return pts[i] > current })

	return idx - 1
}

// Package frontier implements the writer -> commit map that records each
// writer chain's tip at a point in time: comparison, merging, and stable
// hashing.
package frontier

import (
	"context"
	"crypto/sha256"
	"sort"

	"github.com/warpgraph/warp/pkg/codec"
	"github.com/warpgraph/warp/pkg/objstore"
	"github.com/warpgraph/warp/pkg/warperr"
)

// Frontier maps writer id to that writer's chain tip commit.
type Frontier map[string]objstore.Hash

// Writers returns the frontier's writer ids in sorted order.
func (f Frontier) Writers() []string {
	out := make([]string, 0, len(f))
	for w := range f {
		out = append(out, w)
	}

	sort.Strings(out)

	return out
}

// Equal reports whether f and other name exactly the same writers at
// exactly the same commits.
func (f Frontier) Equal(other Frontier) bool {
	if len(f) != len(other) {
		return false
	}

	for w, h := range f {
		if other[w] != h {
			return false
		}
	}

	return true
}

// entry is the canonical, sortable-key encoding of one frontier entry,
// used only to feed Hash: encoding a Go map directly would already be
// canonicalised by pkg/codec's sorted-map-key mode, but an explicit sorted
// slice keeps the hash stable even if a future encoding library treats map
// key ordering differently.
type entry struct {
	Writer string        `cbor:"writer"`
	Commit objstore.Hash `cbor:"commit"`
}

// Hash is a stable digest of a Frontier value.
type Hash [sha256.Size]byte

// ComputeHash returns f's Hash. Hash(F) is invariant under reordering of
// F's writer entries, since the entries are sorted by writer before
// encoding.
func (f Frontier) ComputeHash() (Hash, error) {
	writers := f.Writers()
	entries := make([]entry, 0, len(writers))

	for _, w := range writers {
		entries = append(entries, entry{Writer: w, Commit: f[w]})
	}

	data, err := codec.Marshal(entries)
	if err != nil {
		return Hash{}, err
	}

	return sha256.Sum256(data), nil
}

// GreaterOrEqual reports whether f is at or ahead of baseline for every
// writer baseline names: f must either equal baseline's commit for that
// writer, or baseline's commit must be a (strict) ancestor of f's. A writer
// present in baseline but absent from f fails the comparison.
func (f Frontier) GreaterOrEqual(ctx context.Context, store objstore.Store, baseline Frontier) (bool, error) {
	for w, baseCommit := range baseline {
		commit, ok := f[w]
		if !ok {
			return false, nil
		}

		if commit == baseCommit {
			continue
		}

		isAhead, err := store.IsAncestor(ctx, baseCommit, commit)
		if err != nil {
			return false, warperr.Wrap(err)
		}

		if !isAhead {
			return false, nil
		}
	}

	return true, nil
}

// Merge combines f and other into a single frontier: for a writer present
// in only one side, its entry is kept as-is; for a writer present in both,
// the descendant commit wins. A writer whose two commits are neither equal
// nor in an ancestor relationship is a fork and fails with
// warperr.ErrWriterFork.
func Merge(ctx context.Context, store objstore.Store, f, other Frontier) (Frontier, error) {
	out := make(Frontier, len(f)+len(other))

	for w, h := range f {
		out[w] = h
	}

	for w, h := range other {
		existing, ok := out[w]
		if !ok || existing == h {
			out[w] = h

			continue
		}

		existingIsAncestor, err := store.IsAncestor(ctx, existing, h)
		if err != nil {
			return nil, warperr.Wrap(err)
		}

		if existingIsAncestor {
			out[w] = h

			continue
		}

		hIsAncestor, err := store.IsAncestor(ctx, h, existing)
		if err != nil {
			return nil, warperr.Wrap(err)
		}

		if hIsAncestor {
			continue
		}

		return nil, warperr.New(warperr.ErrWriterFork, "writer %q has diverged commits %s and %s", w, existing, h)
	}

	return out, nil
}

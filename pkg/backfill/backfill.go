// Package backfill classifies an incoming writer-chain commit against a
// checkpoint's recorded frontier for that writer, via ancestor-walk
// reachability, and rejects histories that are not strictly ahead.
package backfill

import (
	"context"

	"github.com/warpgraph/warp/pkg/objstore"
	"github.com/warpgraph/warp/pkg/warperr"
)

// Relation is the classification of an incoming commit C against a
// checkpoint head H for the same writer.
type Relation string

const (
	// RelationSame means C == H: the incoming commit is the checkpoint's
	// own recorded tip, carrying nothing new.
	RelationSame Relation = "same"
	// RelationAhead means H is a strict ancestor of C: C carries patches
	// the checkpoint has not yet folded. This is the only relation that
	// passes Classify.
	RelationAhead Relation = "ahead"
	// RelationBehind means C is a strict ancestor of H: the incoming
	// commit is stale history the checkpoint has already folded.
	RelationBehind Relation = "behind"
	// RelationDiverged means neither commit is an ancestor of the other:
	// the writer's chain has forked.
	RelationDiverged Relation = "diverged"
)

// Classify determines commit C's relation to checkpoint head H, both on
// the same writer's chain. Ancestry is resolved by walking first-parents,
// since writer chains are strictly linear.
func Classify(ctx context.Context, store objstore.Store, c, h objstore.Hash) (Relation, error) {
	if c == h {
		return RelationSame, nil
	}

	hAncestorOfC, err := store.IsAncestor(ctx, h, c)
	if err != nil {
		return "", warperr.Wrap(err)
	}

	if hAncestorOfC {
		return RelationAhead, nil
	}

	cAncestorOfH, err := store.IsAncestor(ctx, c, h)
	if err != nil {
		return "", warperr.Wrap(err)
	}

	if cAncestorOfH {
		return RelationBehind, nil
	}

	return RelationDiverged, nil
}

// Validate classifies C against H and converts any relation other than
// "ahead" into the corresponding rejection error: BackfillRejected for
// same/behind, WriterFork for diverged.
func Validate(ctx context.Context, store objstore.Store, writer string, c, h objstore.Hash) error {
	rel, err := Classify(ctx, store, c, h)
	if err != nil {
		return err
	}

	switch rel {
	case RelationAhead:
		return nil
	case RelationSame, RelationBehind:
		return warperr.New(warperr.ErrBackfillRejected, "writer %q commit %s is %s checkpoint head %s", writer, c, rel, h)
	default:
		return warperr.New(warperr.ErrWriterFork, "writer %q commit %s diverges from checkpoint head %s", writer, c, h)
	}
}

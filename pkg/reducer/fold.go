package reducer

import (
	"sort"

	"github.com/warpgraph/warp/pkg/patch"
	"github.com/warpgraph/warp/pkg/warperr"
)

// Fold reduces a multiset of patches into a GraphState. The reducer is
// total over semantically unusual input — an operation naming a
// nonexistent node is not a failure, since the CRDT assumes commutativity
// and the node may be created by a concurrent writer — but a patch
// carrying an unrecognised operation tag fails with ErrInvalidPatch.
//
// Fold sorts patches by (lamport, writer) before applying them; its result
// is invariant under any permutation of the input patches slice.
func Fold(patches []patch.Patch) (*GraphState, error) {
	return FoldInto(NewGraphState(), patches)
}

// FoldInto continues folding patches onto base, an already-folded
// GraphState, applying each operation through the same per-op logic Fold
// uses (and mutating base in place). This is what lets a tombstone in
// patches retire a dot that base already carries alive: an observed-remove
// can only be represented by replaying it through applyOp against the dots
// it actually targets, never by re-unioning two independently folded dot
// sets (which can only add dots back, never take one away).
func FoldInto(base *GraphState, patches []patch.Patch) (*GraphState, error) {
	sorted := make([]patch.Patch, len(patches))
	copy(sorted, patches)

	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Lamport != sorted[j].Lamport {
			return sorted[i].Lamport < sorted[j].Lamport
		}

		return sorted[i].Writer < sorted[j].Writer
	})

	for _, p := range sorted {
		for _, op := range p.Ops {
			if err := applyOp(base, p, op); err != nil {
				return nil, err
			}
		}
	}

	return base, nil
}

func dotFor(p patch.Patch, op patch.Operation) patch.Dot {
	if op.Dot != nil {
		return *op.Dot
	}

	// Schema 1 carries no per-operation dot; its one coarse identity is
	// the (writer, lamport) of the patch the operation belongs to.
	return patch.Dot{Writer: p.Writer, Counter: p.Lamport}
}

func applyOp(state *GraphState, p patch.Patch, op patch.Operation) error {
	dot := dotFor(p, op)
	observeDot(state, dot)

	switch op.Kind {
	case patch.KindNodeAdd:
		reg := state.NodeAlive[op.NodeID]
		reg.Dots = reg.Dots.Add(dot)
		reg.Value = true
		state.NodeAlive[op.NodeID] = reg

	case patch.KindNodeTombstone:
		reg := state.NodeAlive[op.NodeID]
		reg.Dots = retireDots(reg.Dots, p)
		reg.Value = len(reg.Dots) > 0
		state.NodeAlive[op.NodeID] = reg

	case patch.KindEdgeAdd:
		key := EdgeKey{From: op.From, To: op.To, Label: op.Label}
		reg := state.EdgeAlive[key]
		reg.Dots = reg.Dots.Add(dot)
		reg.Value = true
		state.EdgeAlive[key] = reg

	case patch.KindEdgeTombstone:
		key := EdgeKey{From: op.From, To: op.To, Label: op.Label}
		reg := state.EdgeAlive[key]
		reg.Dots = retireDots(reg.Dots, p)
		reg.Value = len(reg.Dots) > 0
		state.EdgeAlive[key] = reg

	case patch.KindPropSet:
		key := PropKey{NodeID: op.NodeID, Key: op.Key}
		reg := state.Prop[key]

		empty := reg.Lamport == 0 && reg.Writer == ""
		if empty || reg.wins(p.Writer, p.Lamport) {
			if op.Value != nil {
				reg.Value = *op.Value
			}

			reg.Writer = p.Writer
			reg.Lamport = p.Lamport
		}

		reg.Dots = reg.Dots.Add(dot)
		state.Prop[key] = reg

	case patch.KindPropRemove:
		key := PropKey{NodeID: op.NodeID, Key: op.Key}
		reg := state.Prop[key]
		reg.Dots = retireDots(reg.Dots, p)

		if len(reg.Dots) == 0 {
			reg.Value = patch.PropValue{}
		}

		state.Prop[key] = reg

	case patch.KindBlobValue:
		// Content-addressed payload only; no state register to update.

	default:
		return warperr.New(warperr.ErrInvalidPatch, "unrecognised operation kind %q", op.Kind)
	}

	return nil
}

// retireDots removes, from dots, every dot whose writer's counter is
// observed by p's tombstone per the schema 2 observed-frontier rule; under
// schema 1 (no per-writer observation), a tombstone retires unconditionally.
func retireDots(dots DotSet, p patch.Patch) DotSet {
	if p.Schema < 2 {
		return nil
	}

	out := dots

	for w, observed := range p.ObservedFrontier {
		out = out.RemoveUpTo(w, observed)
	}

	return out
}

// observeDot folds dot into the state's running version vector: the
// highest counter seen so far for dot.Writer, across every operation kind.
func observeDot(state *GraphState, dot patch.Dot) {
	if dot.Counter > state.ObservedFrontier[dot.Writer] {
		state.ObservedFrontier[dot.Writer] = dot.Counter
	}
}

// Package reducer folds a multiset of patches into a deterministic
// GraphState: add-wins-with-tombstone OR-Set registers for node and edge
// liveness, and last-writer-wins registers for properties.
package reducer

import (
	"crypto/sha256"
	"sort"

	"github.com/warpgraph/warp/pkg/codec"
	"github.com/warpgraph/warp/pkg/patch"
)

// EdgeKey identifies an edge register.
type EdgeKey struct {
	From  string `cbor:"from"`
	To    string `cbor:"to"`
	Label string `cbor:"label"`
}

// PropKey identifies a property register.
type PropKey struct {
	NodeID string `cbor:"node_id"`
	Key    string `cbor:"key"`
}

// DotSet is a set of OR-Set dots, encoded as a sorted slice so canonical
// CBOR encoding of a GraphState is deterministic regardless of insertion
// order.
type DotSet []patch.Dot

// Has reports whether d is already a member of s.
func (s DotSet) Has(d patch.Dot) bool {
	for _, existing := range s {
		if existing == d {
			return true
		}
	}

	return false
}

// Add returns s with d inserted, keeping the slice sorted by
// (writer, counter) so two dot sets with the same members always encode
// identically.
func (s DotSet) Add(d patch.Dot) DotSet {
	if s.Has(d) {
		return s
	}

	out := append(append(DotSet(nil), s...), d)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Writer != out[j].Writer {
			return out[i].Writer < out[j].Writer
		}

		return out[i].Counter < out[j].Counter
	})

	return out
}

// RemoveUpTo returns the subset of s whose dot is NOT (writer == w and
// counter <= upTo), i.e. the dots an observed-remove tombstone from writer
// w observing counter upTo does not retire.
func (s DotSet) RemoveUpTo(w string, upTo uint64) DotSet {
	out := make(DotSet, 0, len(s))

	for _, d := range s {
		if d.Writer == w && d.Counter <= upTo {
			continue
		}

		out = append(out, d)
	}

	return out
}

// CompactAgainst returns the subset of s whose dot is not covered by vv (a
// writer -> highest-observed-counter version vector), plus the count of
// dots removed. Used by GC to drop tombstoned dots every writer has already
// observed past.
func (s DotSet) CompactAgainst(vv map[string]uint64) (kept DotSet, removed int) {
	kept = make(DotSet, 0, len(s))

	for _, d := range s {
		if upTo, ok := vv[d.Writer]; ok && d.Counter <= upTo {
			removed++

			continue
		}

		kept = append(kept, d)
	}

	return kept, removed
}

// LiveRegister is an OR-Set register: alive if its dot set is non-empty.
type LiveRegister struct {
	Value bool   `cbor:"value"`
	Dots  DotSet `cbor:"dots"`
}

// PropRegister is a last-writer-wins register over (lamport, writer), also
// carrying the dots contributed to it (used by GC compaction).
type PropRegister struct {
	Value   patch.PropValue `cbor:"value"`
	Writer  string          `cbor:"writer"`
	Lamport uint64          `cbor:"lamport"`
	Dots    DotSet          `cbor:"dots"`
}

// wins reports whether a PropSet from (w, l) should overwrite a register
// currently owned by (Writer, Lamport), using the (lamport, writer)
// lexicographic tie-break from spec §4.2.
func (r PropRegister) wins(w string, l uint64) bool {
	if l != r.Lamport {
		return l > r.Lamport
	}

	return w > r.Writer
}

// GraphState is the materialized result of folding a set of patches.
type GraphState struct {
	NodeAlive map[string]LiveRegister  `cbor:"node_alive"`
	EdgeAlive map[EdgeKey]LiveRegister `cbor:"edge_alive"`
	Prop      map[PropKey]PropRegister `cbor:"prop"`

	// ObservedFrontier is the version vector: writer -> highest dot
	// counter folded into this state. AppliedVV is derived from it and
	// used by GC to decide which tombstoned dots are safe to compact.
	ObservedFrontier map[string]uint64 `cbor:"observed_frontier"`
}

// NewGraphState returns an empty GraphState.
func NewGraphState() *GraphState {
	return &GraphState{
		NodeAlive:        make(map[string]LiveRegister),
		EdgeAlive:        make(map[EdgeKey]LiveRegister),
		Prop:             make(map[PropKey]PropRegister),
		ObservedFrontier: make(map[string]uint64),
	}
}

// AppliedVV returns the version vector derived from ObservedFrontier: it is
// the same map, named per spec.md's distinct "applied_vv" term for GC's
// consumption.
func (s *GraphState) AppliedVV() map[string]uint64 {
	return s.ObservedFrontier
}

// NodeHasLiveDependents implements patch.LivenessChecker: true if nodeID
// has any live edge (either endpoint) or any live property.
func (s *GraphState) NodeHasLiveDependents(nodeID string) bool {
	for k, reg := range s.EdgeAlive {
		if !reg.Value {
			continue
		}

		if k.From == nodeID || k.To == nodeID {
			return true
		}
	}

	for k, reg := range s.Prop {
		if reg.Value.Inline != nil || reg.Value.Blob != nil {
			if k.NodeID == nodeID {
				return true
			}
		}
	}

	return false
}

// Hash is a stable digest of a GraphState: canonical CBOR encoding (sorted
// map keys, no floats) fed through SHA-256. Identical states, by value,
// always hash identically regardless of the order their patches arrived
// in.
type Hash [sha256.Size]byte

// StateHash computes s's Hash.
func (s *GraphState) StateHash() (Hash, error) {
	data, err := codec.Marshal(s)
	if err != nil {
		return Hash{}, err
	}

	return sha256.Sum256(data), nil
}

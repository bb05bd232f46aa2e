package seek

import (
	"sort"

	"github.com/warpgraph/warp/pkg/reducer"
)

// DefaultDiffLimit is the truncation ceiling StructuralDiff uses when
// called with limit<=0.
const DefaultDiffLimit = 500

// Diff is the structural difference between two materialized GraphStates:
// which nodes/edges became alive or dead, and which property registers
// changed value, in nodes -> edges -> props order, truncated to a limit.
type Diff struct {
	NodesAdded   []string         `cbor:"nodes_added"`
	NodesRemoved []string         `cbor:"nodes_removed"`
	EdgesAdded   []reducer.EdgeKey `cbor:"edges_added"`
	EdgesRemoved []reducer.EdgeKey `cbor:"edges_removed"`
	PropsSet     []reducer.PropKey `cbor:"props_set"`
	PropsRemoved []reducer.PropKey `cbor:"props_removed"`

	TotalChanges int  `cbor:"total_changes"`
	ShownChanges int  `cbor:"shown_changes"`
	Truncated    bool `cbor:"truncated"`
}

// StructuralDiff compares the state at tick A against the state at tick B.
// A == B short-circuits to an empty, non-truncated diff. limit<=0 uses
// DefaultDiffLimit. Entries are emitted in nodes -> edges -> props order and
// truncated at limit total entries, with Truncated/TotalChanges/
// ShownChanges reporting what was cut.
func StructuralDiff(a, b *reducer.GraphState, limit int) Diff {
	if limit <= 0 {
		limit = DefaultDiffLimit
	}

	var d Diff

	if a == b {
		return d
	}

	d.NodesAdded, d.NodesRemoved = diffLive(
		toStringKeyed(a.NodeAlive), toStringKeyed(b.NodeAlive),
	)

	d.EdgesAdded, d.EdgesRemoved = diffEdgeLive(a.EdgeAlive, b.EdgeAlive)
	d.PropsSet, d.PropsRemoved = diffProp(a.Prop, b.Prop)

	d.TotalChanges = len(d.NodesAdded) + len(d.NodesRemoved) +
		len(d.EdgesAdded) + len(d.EdgesRemoved) +
		len(d.PropsSet) + len(d.PropsRemoved)

	d.truncate(limit)

	return d
}

func (d *Diff) truncate(limit int) {
	budget := limit

	d.NodesAdded, budget = clampStrings(d.NodesAdded, budget)
	d.NodesRemoved, budget = clampStrings(d.NodesRemoved, budget)
	d.EdgesAdded, budget = clampEdges(d.EdgesAdded, budget)
	d.EdgesRemoved, budget = clampEdges(d.EdgesRemoved, budget)
	d.PropsSet, budget = clampProps(d.PropsSet, budget)
	d.PropsRemoved, budget = clampProps(d.PropsRemoved, budget)

	d.ShownChanges = d.TotalChanges
	if d.TotalChanges > limit {
		d.Truncated = true
		d.ShownChanges = limit
	}
}

func clampStrings(s []string, budget int) ([]string, int) {
	if budget < 0 {
		budget = 0
	}

	if len(s) > budget {
		s = s[:budget]
	}

	return s, budget - len(s)
}

func clampEdges(s []reducer.EdgeKey, budget int) ([]reducer.EdgeKey, int) {
	if budget < 0 {
		budget = 0
	}

	if len(s) > budget {
		s = s[:budget]
	}

	return s, budget - len(s)
}

func clampProps(s []reducer.PropKey, budget int) ([]reducer.PropKey, int) {
	if budget < 0 {
		budget = 0
	}

	if len(s) > budget {
		s = s[:budget]
	}

	return s, budget - len(s)
}

func toStringKeyed(m map[string]reducer.LiveRegister) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, reg := range m {
		out[k] = reg.Value
	}

	return out
}

func diffLive(a, b map[string]bool) (added, removed []string) {
	keys := unionStringKeys(a, b)

	for _, k := range keys {
		av, bv := a[k], b[k]
		if av == bv {
			continue
		}

		if bv {
			added = append(added, k)
		} else {
			removed = append(removed, k)
		}
	}

	return added, removed
}

func unionStringKeys(a, b map[string]bool) []string {
	set := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		set[k] = struct{}{}
	}

	for k := range b {
		set[k] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}

	sort.Strings(out)

	return out
}

func diffEdgeLive(a, b map[reducer.EdgeKey]reducer.LiveRegister) (added, removed []reducer.EdgeKey) {
	set := make(map[reducer.EdgeKey]struct{}, len(a)+len(b))
	for k := range a {
		set[k] = struct{}{}
	}

	for k := range b {
		set[k] = struct{}{}
	}

	keys := make([]reducer.EdgeKey, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}

	sort.Slice(keys, func(i, j int) bool { return edgeKeyLess(keys[i], keys[j]) })

	for _, k := range keys {
		av, bv := a[k].Value, b[k].Value
		if av == bv {
			continue
		}

		if bv {
			added = append(added, k)
		} else {
			removed = append(removed, k)
		}
	}

	return added, removed
}

func edgeKeyLess(a, b reducer.EdgeKey) bool {
	if a.From != b.From {
		return a.From < b.From
	}

	if a.To != b.To {
		return a.To < b.To
	}

	return a.Label < b.Label
}

func diffProp(a, b map[reducer.PropKey]reducer.PropRegister) (set, removed []reducer.PropKey) {
	keys := make(map[reducer.PropKey]struct{}, len(a)+len(b))
	for k := range a {
		keys[k] = struct{}{}
	}

	for k := range b {
		keys[k] = struct{}{}
	}

	sorted := make([]reducer.PropKey, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}

	sort.Slice(sorted, func(i, j int) bool { return propKeyLess(sorted[i], sorted[j]) })

	for _, k := range sorted {
		av, bv := a[k], b[k]

		aEmpty := av.Value.Inline == nil && av.Value.Blob == nil
		bEmpty := bv.Value.Inline == nil && bv.Value.Blob == nil

		if aEmpty && bEmpty {
			continue
		}

		if !bEmpty && (aEmpty || propValueChanged(av, bv)) {
			set = append(set, k)
		} else if bEmpty && !aEmpty {
			removed = append(removed, k)
		}
	}

	return set, removed
}

func propValueChanged(a, b reducer.PropRegister) bool {
	return a.Lamport != b.Lamport || a.Writer != b.Writer
}

func propKeyLess(a, b reducer.PropKey) bool {
	if a.NodeID != b.NodeID {
		return a.NodeID < b.NodeID
	}

	return a.Key < b.Key
}

// Package gc computes tombstone-pressure metrics for a schema-2 graph
// state, decides whether compaction is due, and compacts tombstoned
// registers whose dots every writer has already observed past.
package gc

import (
	"time"

	"github.com/warpgraph/warp/pkg/reducer"
)

// Metrics summarises a GraphState's tombstone pressure.
type Metrics struct {
	TotalTombstones        int       `cbor:"total_tombstones"`
	TombstoneRatio         float64   `cbor:"tombstone_ratio"`
	PatchesSinceCompaction int       `cbor:"patches_since_compaction"`
	LastCompactionTime     time.Time `cbor:"last_compaction_time"`
}

// CollectMetrics computes Metrics for state. patchesSinceCompaction and
// lastCompaction are carried by the caller (pkg/graph), since a GraphState
// value alone doesn't remember its own compaction history.
func CollectMetrics(state *reducer.GraphState, patchesSinceCompaction int, lastCompaction time.Time) Metrics {
	var total, tombstones int

	for _, reg := range state.NodeAlive {
		total++

		if !reg.Value {
			tombstones++
		}
	}

	for _, reg := range state.EdgeAlive {
		total++

		if !reg.Value {
			tombstones++
		}
	}

	for _, reg := range state.Prop {
		total++

		if reg.Value.Inline == nil && reg.Value.Blob == nil {
			tombstones++
		}
	}

	var ratio float64
	if total > 0 {
		ratio = float64(tombstones) / float64(total)
	}

	return Metrics{
		TotalTombstones:        tombstones,
		TombstoneRatio:         ratio,
		PatchesSinceCompaction: patchesSinceCompaction,
		LastCompactionTime:     lastCompaction,
	}
}

// Policy is the threshold configuration ShouldRun evaluates against.
type Policy struct {
	TombstoneRatioThreshold         float64
	PatchesSinceCompactionThreshold int
}

// ShouldRun is a pure predicate: true if either threshold in policy is met
// or exceeded by metrics.
func ShouldRun(metrics Metrics, policy Policy) bool {
	if policy.TombstoneRatioThreshold > 0 && metrics.TombstoneRatio >= policy.TombstoneRatioThreshold {
		return true
	}

	if policy.PatchesSinceCompactionThreshold > 0 &&
		metrics.PatchesSinceCompaction >= policy.PatchesSinceCompactionThreshold {
		return true
	}

	return false
}

// Result reports what Execute did. TombstonesRemoved counts the dead
// registers (node, edge and property) Execute deleted.
type Result struct {
	NodesCompacted    int           `cbor:"nodes_compacted"`
	EdgesCompacted    int           `cbor:"edges_compacted"`
	TombstonesRemoved int           `cbor:"tombstones_removed"`
	Duration          time.Duration `cbor:"duration"`
}

// Execute compacts state in place: for every tombstoned (dead) register, it
// drops dots every writer in appliedVV has already observed past, and
// deletes the register entirely once its dot set is empty. Live registers
// are left untouched — compaction never touches the dots that keep a
// register alive. Idempotent: running Execute again against a freshly
// compacted state removes nothing, since no dot then remains below
// appliedVV.
func Execute(state *reducer.GraphState, appliedVV map[string]uint64) Result {
	start := time.Now()

	var result Result

	for id, reg := range state.NodeAlive {
		if reg.Value {
			continue
		}

		kept, _ := reg.Dots.CompactAgainst(appliedVV)

		if len(kept) == 0 {
			delete(state.NodeAlive, id)
			result.NodesCompacted++
			result.TombstonesRemoved++

			continue
		}

		reg.Dots = kept
		state.NodeAlive[id] = reg
	}

	for key, reg := range state.EdgeAlive {
		if reg.Value {
			continue
		}

		kept, _ := reg.Dots.CompactAgainst(appliedVV)

		if len(kept) == 0 {
			delete(state.EdgeAlive, key)
			result.EdgesCompacted++
			result.TombstonesRemoved++

			continue
		}

		reg.Dots = kept
		state.EdgeAlive[key] = reg
	}

	for key, reg := range state.Prop {
		if reg.Value.Inline != nil || reg.Value.Blob != nil {
			continue
		}

		kept, _ := reg.Dots.CompactAgainst(appliedVV)

		if len(kept) == 0 {
			delete(state.Prop, key)
			result.TombstonesRemoved++

			continue
		}

		reg.Dots = kept
		state.Prop[key] = reg
	}

	result.Duration = time.Since(start)

	return result
}

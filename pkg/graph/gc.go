package graph

import (
	"context"
	"log/slog"
	"time"

	"github.com/warpgraph/warp/pkg/gc"
)

// CollectGCMetrics reports tombstone pressure for the graph's cached state,
// materializing it first if nothing is cached yet.
func (g *Graph) CollectGCMetrics(ctx context.Context) (gc.Metrics, error) {
	g.mu.Lock()
	state := g.cached
	g.mu.Unlock()

	if state == nil {
		var err error

		state, err = g.Materialize(ctx)
		if err != nil {
			return gc.Metrics{}, err
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	return gc.CollectMetrics(state, g.patchesSinceCompaction, g.lastCompactionTime), nil
}

// ShouldRunGC reports whether the graph's current GC metrics cross the
// configured policy thresholds.
func (g *Graph) ShouldRunGC(ctx context.Context) (bool, error) {
	metrics, err := g.CollectGCMetrics(ctx)
	if err != nil {
		return false, err
	}

	return gc.ShouldRun(metrics, g.gcPolicy), nil
}

// ExecuteGC compacts the graph's cached state in place against its own
// applied version vector and records the compaction time.
func (g *Graph) ExecuteGC(ctx context.Context) (gc.Result, error) {
	ctx, span := g.telemetry.StartSpan(ctx, "graph.execute_gc")
	defer span.End()

	g.mu.Lock()
	state := g.cached
	g.mu.Unlock()

	if state == nil {
		var err error

		state, err = g.Materialize(ctx)
		if err != nil {
			return gc.Result{}, err
		}
	}

	result := gc.Execute(state, state.AppliedVV())

	g.mu.Lock()
	g.patchesSinceCompaction = 0
	g.lastCompactionTime = time.Now()
	g.mu.Unlock()

	g.telemetry.Logger.InfoContext(ctx, "ran gc",
		slog.Int("nodes_compacted", result.NodesCompacted),
		slog.Int("edges_compacted", result.EdgesCompacted),
		slog.Int("tombstones_removed", result.TombstonesRemoved))

	return result, nil
}

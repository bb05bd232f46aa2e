package graph

import (
	"context"
	"time"

	"github.com/warpgraph/warp/pkg/gc"
	"github.com/warpgraph/warp/pkg/health"
	"github.com/warpgraph/warp/pkg/reflayout"
	"github.com/warpgraph/warp/pkg/warperr"
)

// ComputeHealth recomputes the graph's health.Report from its cached state
// (materializing it first if none is cached yet), GC pressure, and
// coverage-anchor reachability, and remembers it so Health() can serve it
// synchronously as a health.Source.
func (g *Graph) ComputeHealth(ctx context.Context) (health.Report, error) {
	g.mu.Lock()
	state := g.cached
	g.mu.Unlock()

	if state == nil {
		var err error

		state, err = g.Materialize(ctx)
		if err != nil {
			return health.Report{}, err
		}
	}

	missing, err := g.coverageMissingWriters(ctx)
	if err != nil {
		return health.Report{}, err
	}

	g.mu.Lock()
	metrics := gc.CollectMetrics(state, g.patchesSinceCompaction, g.lastCompactionTime)

	var age time.Duration
	if !g.checkpointTime.IsZero() {
		age = time.Since(g.checkpointTime)
	}

	report := health.Compute(health.Input{
		CachedState:            true,
		Metrics:                metrics,
		PatchesSinceCheckpoint: g.patchesSinceCheckpoint,
		CheckpointAge:          age,
		CoverageMissingWriters: missing,
	})

	g.lastHealth = report
	g.mu.Unlock()

	return report, nil
}

// Health implements health.Source, serving the last report ComputeHealth
// computed (a degraded, uncached report if it never ran).
func (g *Graph) Health() health.Report {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.lastHealth.Status == "" {
		return health.Compute(health.Input{})
	}

	return g.lastHealth
}

func (g *Graph) coverageMissingWriters(ctx context.Context) ([]string, error) {
	writers, err := g.DiscoverWriters(ctx)
	if err != nil {
		return nil, err
	}

	coverageHead, haveCoverage, err := g.store.ReadRef(ctx, reflayout.CoverageHeadRef(g.name))
	if err != nil {
		return nil, warperr.Wrap(err)
	}

	var missing []string

	for _, writer := range writers {
		tip, ok, err := g.store.ReadRef(ctx, reflayout.WriterRef(g.name, writer))
		if err != nil {
			return nil, warperr.Wrap(err)
		}

		if !ok {
			continue
		}

		if !haveCoverage {
			missing = append(missing, writer)

			continue
		}

		reachable, err := g.store.IsAncestor(ctx, tip, coverageHead)
		if err != nil {
			return nil, warperr.Wrap(err)
		}

		if !reachable {
			missing = append(missing, writer)
		}
	}

	return missing, nil
}

// Package health computes a graph's health report from its cached state
// and GC metrics: a pure, presentation-free computation. pkg/health also
// offers a thin prometheus.Collector adapter over that computation for
// processes embedding warp that want to scrape it.
package health

import (
	"time"

	"github.com/warpgraph/warp/pkg/gc"
)

// Status is the overall health verdict.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

const (
	unhealthyTombstoneRatio = 0.30
	degradedTombstoneRatio  = 0.15
)

// Report is the full health snapshot spec.md §4.10 describes.
type Report struct {
	Status                  Status        `cbor:"status"`
	CachedState             bool          `cbor:"cached_state"`
	TombstoneRatio          float64       `cbor:"tombstone_ratio"`
	PatchesSinceCheckpoint  int           `cbor:"patches_since_checkpoint"`
	CheckpointAge           time.Duration `cbor:"checkpoint_age"`
	CoverageMissingWriters  []string      `cbor:"coverage_missing_writers"`
}

// Input is everything Compute needs, gathered by pkg/graph from its own
// cached state, GC metrics, and coverage check.
type Input struct {
	CachedState            bool
	Metrics                gc.Metrics
	PatchesSinceCheckpoint int
	CheckpointAge          time.Duration
	CoverageMissingWriters []string
}

// Compute derives a Report from in. Rules, evaluated worst-first:
//   - tombstone ratio >= 30% -> unhealthy
//   - tombstone ratio >= 15% -> degraded
//   - no cached state -> degraded
//   - any coverage-missing writer -> degraded
//   - otherwise healthy
func Compute(in Input) Report {
	report := Report{
		CachedState:            in.CachedState,
		TombstoneRatio:         in.Metrics.TombstoneRatio,
		PatchesSinceCheckpoint: in.PatchesSinceCheckpoint,
		CheckpointAge:          in.CheckpointAge,
		CoverageMissingWriters: in.CoverageMissingWriters,
		Status:                 StatusHealthy,
	}

	switch {
	case in.Metrics.TombstoneRatio >= unhealthyTombstoneRatio:
		report.Status = StatusUnhealthy
	case in.Metrics.TombstoneRatio >= degradedTombstoneRatio:
		report.Status = StatusDegraded
	case !in.CachedState:
		report.Status = StatusDegraded
	case len(in.CoverageMissingWriters) > 0:
		report.Status = StatusDegraded
	}

	return report
}

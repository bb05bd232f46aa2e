package health

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Source supplies the live Report a Collector scrapes. pkg/graph's Graph
// type implements this directly (its Health method).
type Source interface {
	Health() Report
}

var (
	statusDesc = prometheus.NewDesc(
		"warp_graph_health_status",
		"Graph health status as 0=healthy, 1=degraded, 2=unhealthy.",
		nil, nil,
	)
	tombstoneRatioDesc = prometheus.NewDesc(
		"warp_graph_tombstone_ratio",
		"Fraction of registers currently tombstoned.",
		nil, nil,
	)
	patchesSinceCheckpointDesc = prometheus.NewDesc(
		"warp_graph_patches_since_checkpoint",
		"Patches folded since the last checkpoint.",
		nil, nil,
	)
	checkpointAgeDesc = prometheus.NewDesc(
		"warp_graph_checkpoint_age_seconds",
		"Age of the current checkpoint in seconds.",
		nil, nil,
	)
	coverageMissingDesc = prometheus.NewDesc(
		"warp_graph_coverage_missing_writers",
		"Number of writers whose tip is unreachable from coverage/head.",
		nil, nil,
	)
)

func statusValue(s Status) float64 {
	switch s {
	case StatusDegraded:
		return 1
	case StatusUnhealthy:
		return 2
	default:
		return 0
	}
}

// Collector adapts a Source's Report to prometheus.Collector, so an
// embedding process can register it with its own registry.
type Collector struct {
	source Source
}

// NewCollector wraps source as a prometheus.Collector.
func NewCollector(source Source) *Collector {
	return &Collector{source: source}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- statusDesc
	ch <- tombstoneRatioDesc
	ch <- patchesSinceCheckpointDesc
	ch <- checkpointAgeDesc
	ch <- coverageMissingDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	report := c.source.Health()

	ch <- prometheus.MustNewConstMetric(statusDesc, prometheus.GaugeValue, statusValue(report.Status))
	ch <- prometheus.MustNewConstMetric(tombstoneRatioDesc, prometheus.GaugeValue, report.TombstoneRatio)
	ch <- prometheus.MustNewConstMetric(
		patchesSinceCheckpointDesc, prometheus.GaugeValue, float64(report.PatchesSinceCheckpoint),
	)
	ch <- prometheus.MustNewConstMetric(checkpointAgeDesc, prometheus.GaugeValue, report.CheckpointAge.Seconds())
	ch <- prometheus.MustNewConstMetric(
		coverageMissingDesc, prometheus.GaugeValue, float64(len(report.CoverageMissingWriters)),
	)
}

package health_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warpgraph/warp/pkg/health"
)

type fakeSource struct{ report health.Report }

func (f fakeSource) Health() health.Report { return f.report }

func TestCollector_CollectEmitsExpectedMetricCount(t *testing.T) {
	t.Parallel()

	collector := health.NewCollector(fakeSource{report: health.Report{
		Status:                 health.StatusDegraded,
		TombstoneRatio:         0.2,
		PatchesSinceCheckpoint: 7,
		CoverageMissingWriters: []string{"w1", "w2"},
	}})

	registry := prometheus.NewRegistry()
	require.NoError(t, registry.Register(collector))

	families, err := registry.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 5)
}

package graph_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warpgraph/warp/internal/config"
	"github.com/warpgraph/warp/internal/telemetry"
	"github.com/warpgraph/warp/pkg/gc"
	"github.com/warpgraph/warp/pkg/graph"
	"github.com/warpgraph/warp/pkg/memstore"
	"github.com/warpgraph/warp/pkg/patch"
	"github.com/warpgraph/warp/pkg/warperr"
)

func commitNodeAdd(t *testing.T, ctx context.Context, store *memstore.Store, g, writer, nodeID string) {
	t.Helper()

	b, err := patch.NewBuilder(store, g, writer, 2)
	require.NoError(t, err)
	b.AddNode(nodeID)
	_, err = b.Commit(ctx)
	require.NoError(t, err)
}

func TestGraph_OpenMaterializeCheckpointRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memstore.New(nil)

	commitNodeAdd(t, ctx, store, "g", "a", "n1")
	commitNodeAdd(t, ctx, store, "g", "b", "n2")

	gr, err := graph.Open(ctx, store, "g", "a", 2)
	require.NoError(t, err)
	defer gr.Close()

	state, err := gr.Materialize(ctx)
	require.NoError(t, err)
	assert.True(t, state.NodeAlive["n1"].Value)
	assert.True(t, state.NodeAlive["n2"].Value)

	writers, err := gr.DiscoverWriters(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, writers)

	status, err := gr.Status(ctx)
	require.NoError(t, err)
	assert.Len(t, status.Frontier, 2)

	checkpointCommit, err := gr.CreateCheckpoint(ctx)
	require.NoError(t, err)
	assert.False(t, checkpointCommit.IsZero())

	commitNodeAdd(t, ctx, store, "g", "a", "n3")

	incremental, err := gr.MaterializeAt(ctx, checkpointCommit)
	require.NoError(t, err)
	assert.True(t, incremental.NodeAlive["n1"].Value)
	assert.True(t, incremental.NodeAlive["n3"].Value)

	recomputed, err := gr.Materialize(ctx)
	require.NoError(t, err)
	assert.True(t, recomputed.NodeAlive["n3"].Value)
}

func TestGraph_SyncCoverageAndHealth(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memstore.New(nil)

	commitNodeAdd(t, ctx, store, "g", "a", "n1")

	gr, err := graph.Open(ctx, store, "g", "a", 2)
	require.NoError(t, err)
	defer gr.Close()

	anchor, err := gr.SyncCoverage(ctx)
	require.NoError(t, err)
	assert.False(t, anchor.IsZero())

	report, err := gr.ComputeHealth(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.CoverageMissingWriters)

	commitNodeAdd(t, ctx, store, "g", "b", "n2")

	report, err = gr.ComputeHealth(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, report.CoverageMissingWriters)
	assert.Equal(t, gr.Health(), report)
}

func TestGraph_GCWrappers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memstore.New(nil)

	b, err := patch.NewBuilder(store, "g", "a", 2)
	require.NoError(t, err)
	b.AddNode("n1")
	b.AddNode("n2")
	_, err = b.Commit(ctx)
	require.NoError(t, err)

	b2, err := patch.NewBuilder(store, "g", "a", 2,
		patch.WithObservedFrontier(map[string]uint64{"a": 2}))
	require.NoError(t, err)
	require.NoError(t, b2.RemoveNode("n2"))
	_, err = b2.Commit(ctx)
	require.NoError(t, err)

	gr, err := graph.Open(ctx, store, "g", "a", 2, graph.WithGCPolicy(gc.Policy{TombstoneRatioThreshold: 0.1}))
	require.NoError(t, err)
	defer gr.Close()

	_, err = gr.Materialize(ctx)
	require.NoError(t, err)

	should, err := gr.ShouldRunGC(ctx)
	require.NoError(t, err)
	assert.True(t, should)

	result, err := gr.ExecuteGC(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.NodesCompacted)
}

func TestGraph_Open_MigrationRequired(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memstore.New(nil)

	b, err := patch.NewBuilder(store, "g", "a", 1)
	require.NoError(t, err)
	b.AddNode("n1")
	_, err = b.Commit(ctx)
	require.NoError(t, err)

	_, err = graph.Open(ctx, store, "g", "a", 2)
	assert.ErrorIs(t, err, warperr.ErrMigrationRequired)
}

func TestGraph_WithConfig_AppliesGCPolicyAndDeleteGuard(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memstore.New(nil)

	cfg := config.Config{
		DeleteGuard: config.DeleteGuardConfig{Policy: "reject"},
		GC:          config.GCConfig{TombstoneRatioThreshold: 0.1, PatchesSinceCompactionThreshold: 1},
	}

	b, err := patch.NewBuilder(store, "g", "a", 2)
	require.NoError(t, err)
	b.AddNode("n1")
	b.AddEdge("n1", "n1", "self")
	_, err = b.Commit(ctx)
	require.NoError(t, err)

	gr, err := graph.Open(ctx, store, "g", "a", 2, graph.WithConfig(cfg))
	require.NoError(t, err)
	defer gr.Close()

	_, err = gr.Materialize(ctx)
	require.NoError(t, err)

	_, err = gr.NewPatch()
	require.NoError(t, err)

	// The GC thresholds came from cfg: one patch since compaction meets
	// PatchesSinceCompactionThreshold 1, while a zero Policy never runs.
	shouldRun, err := gr.ShouldRunGC(ctx)
	require.NoError(t, err)
	assert.True(t, shouldRun)

	// cfg selects DeleteGuardReject (also the zero value): removing a node
	// with a live dependent edge must fail, not silently cascade.
	p, err := gr.NewPatch()
	require.NoError(t, err)
	removeErr := p.RemoveNode("n1")
	assert.Error(t, removeErr)
}

func TestGraph_PatchCounters_IncrementAcrossMaterialize(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memstore.New(nil)

	commitNodeAdd(t, ctx, store, "g", "a", "n1")

	gr, err := graph.Open(ctx, store, "g", "a", 2,
		graph.WithGCPolicy(gc.Policy{PatchesSinceCompactionThreshold: 2}))
	require.NoError(t, err)
	defer gr.Close()

	_, err = gr.Materialize(ctx)
	require.NoError(t, err)

	report, err := gr.ComputeHealth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.PatchesSinceCheckpoint)

	should, err := gr.ShouldRunGC(ctx)
	require.NoError(t, err)
	assert.False(t, should)

	commitNodeAdd(t, ctx, store, "g", "a", "n2")

	_, err = gr.Materialize(ctx)
	require.NoError(t, err)

	report, err = gr.ComputeHealth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.PatchesSinceCheckpoint)

	should, err = gr.ShouldRunGC(ctx)
	require.NoError(t, err)
	assert.True(t, should)

	_, err = gr.CreateCheckpoint(ctx)
	require.NoError(t, err)

	report, err = gr.ComputeHealth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.PatchesSinceCheckpoint)
}

func TestGraph_WithTelemetry_EmitsLogLines(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memstore.New(nil)

	var buf bytes.Buffer

	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	gr, err := graph.Open(ctx, store, "g", "a", 2, graph.WithTelemetry(telemetry.New(nil, nil, logger, "graph")))
	require.NoError(t, err)
	defer gr.Close()

	_, err = gr.Materialize(ctx)
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "opened graph")
	assert.Contains(t, buf.String(), "materializing by folding every writer chain")
}

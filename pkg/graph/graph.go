// Package graph is the multi-writer façade spec.md §4.3 describes: it opens
// a graph against a persistence port, materialises its CRDT state (from
// scratch or incrementally from a checkpoint), creates checkpoints and
// coverage anchors, and reports writer discovery, frontier, health, and GC
// status — all the single-graph session state the other warp packages
// operate as pure functions without.
package graph

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/warpgraph/warp/internal/config"
	"github.com/warpgraph/warp/internal/telemetry"
	"github.com/warpgraph/warp/pkg/checkpoint"
	"github.com/warpgraph/warp/pkg/frontier"
	"github.com/warpgraph/warp/pkg/gc"
	"github.com/warpgraph/warp/pkg/health"
	"github.com/warpgraph/warp/pkg/objstore"
	"github.com/warpgraph/warp/pkg/patch"
	"github.com/warpgraph/warp/pkg/reducer"
	"github.com/warpgraph/warp/pkg/reflayout"
	"github.com/warpgraph/warp/pkg/seek"
	"github.com/warpgraph/warp/pkg/tickindex"
	"github.com/warpgraph/warp/pkg/warperr"
)

// Option configures a Graph at Open time.
type Option func(*Graph)

// WithGCPolicy sets the garbage-collection thresholds consulted by
// ShouldRunGC.
func WithGCPolicy(policy gc.Policy) Option {
	return func(g *Graph) { g.gcPolicy = policy }
}

// WithDeleteGuard sets the node-delete guard policy used by patches built
// via NewPatch.
func WithDeleteGuard(policy patch.DeleteGuardPolicy) Option {
	return func(g *Graph) { g.deleteGuard = policy }
}

// WithTelemetry sets the tracer/meter/logger handles Graph emits spans and
// structured log lines through. Open defaults to telemetry.Default("graph")
// when this option is not given.
func WithTelemetry(h telemetry.Handles) Option {
	return func(g *Graph) { g.telemetry = h }
}

// WithConfig applies an internal/config.Config's GC policy and delete-guard
// policy to the graph, the way a long-running writer process loads once at
// startup and threads through every Open call. Options given after
// WithConfig in the Open call override the fields it sets.
func WithConfig(cfg config.Config) Option {
	return func(g *Graph) {
		g.gcPolicy = cfg.GCPolicy()
		g.deleteGuard = cfg.DeleteGuardPolicy()
	}
}

// Graph is one open session against a single graph in a persistence port.
// It is not safe for concurrent patch submission from multiple goroutines
// against the same writer id, but read operations (Materialize, Status,
// Health) may run concurrently with each other.
type Graph struct {
	store  objstore.Store
	name   string
	writer string
	schema int

	gcPolicy    gc.Policy
	deleteGuard patch.DeleteGuardPolicy
	telemetry   telemetry.Handles

	mu                     sync.Mutex
	cached                 *reducer.GraphState
	cachedFrontier         frontier.Frontier
	patchesSinceCheckpoint int
	patchesSinceCompaction int
	lastCompactionTime     time.Time
	checkpointTime         time.Time
	lastHealth             health.Report
}

// Open validates graph and writer names and, for schema 2, enforces the
// migration boundary: any writer whose chain is non-empty and whose latest
// patch is schema 1, with no schema-2 checkpoint yet recorded, refuses to
// open with ErrMigrationRequired.
func Open(ctx context.Context, store objstore.Store, graphName, writer string, schema int, opts ...Option) (*Graph, error) {
	if err := reflayout.ValidateGraph(graphName); err != nil {
		return nil, warperr.New(warperr.ErrInvalidName, "%v", err)
	}

	if err := reflayout.ValidateWriter(writer); err != nil {
		return nil, warperr.New(warperr.ErrInvalidName, "%v", err)
	}

	if schema >= 2 {
		if err := checkMigrationBoundary(ctx, store, graphName); err != nil {
			return nil, err
		}
	}

	g := &Graph{store: store, name: graphName, writer: writer, schema: schema, telemetry: telemetry.Default("graph")}
	for _, opt := range opts {
		opt(g)
	}

	g.telemetry.Logger.DebugContext(ctx, "opened graph", slog.String("graph", graphName), slog.String("writer", writer))

	return g, nil
}

func checkMigrationBoundary(ctx context.Context, store objstore.Store, graphName string) error {
	hasSchema2Checkpoint := false

	if head, ok, err := store.ReadRef(ctx, reflayout.CheckpointHeadRef(graphName)); err != nil {
		return warperr.Wrap(err)
	} else if ok {
		cp, err := checkpoint.Load(ctx, store, head)
		if err != nil {
			return err
		}

		hasSchema2Checkpoint = cp.Schema >= 2
	}

	if hasSchema2Checkpoint {
		return nil
	}

	refs, err := store.ListRefs(ctx, reflayout.WritersPrefix(graphName))
	if err != nil {
		return warperr.Wrap(err)
	}

	for _, ref := range refs {
		tip, ok, err := store.ReadRef(ctx, ref)
		if err != nil {
			return warperr.Wrap(err)
		}

		if !ok {
			continue
		}

		p, err := patch.Load(ctx, store, tip)
		if err != nil {
			return err
		}

		if p.Schema < 2 {
			writer, _ := reflayout.ParseWriterRef(graphName, ref)

			return warperr.New(warperr.ErrMigrationRequired,
				"writer %q's chain tip is a schema 1 patch and no schema 2 checkpoint exists", writer)
		}
	}

	return nil
}

// Materialize computes the graph's current state: incrementally from the
// latest checkpoint if one exists, or by folding every patch from every
// writer otherwise. The result is cached; callers that need a fresh read
// after new patches landed should call Materialize again, which always
// recomputes against the store's current writer tips.
func (g *Graph) Materialize(ctx context.Context) (*reducer.GraphState, error) {
	ctx, span := g.telemetry.StartSpan(ctx, "graph.materialize")
	defer span.End()

	g.mu.Lock()
	defer g.mu.Unlock()

	current, err := seek.CurrentFrontier(ctx, g.store, g.name)
	if err != nil {
		return nil, err
	}

	added, err := g.countNewPatches(ctx, current)
	if err != nil {
		return nil, err
	}

	head, ok, err := g.store.ReadRef(ctx, reflayout.CheckpointHeadRef(g.name))
	if err != nil {
		return nil, warperr.Wrap(err)
	}

	var state *reducer.GraphState

	if ok {
		g.telemetry.Logger.DebugContext(ctx, "materializing incrementally from checkpoint")
		state, err = checkpoint.MaterializeIncremental(ctx, g.store, head, current, g.patchLoader())
	} else {
		g.telemetry.Logger.DebugContext(ctx, "materializing by folding every writer chain")
		state, err = g.foldEverything(ctx, current)
	}

	if err != nil {
		return nil, err
	}

	g.cached = state
	g.cachedFrontier = current
	g.patchesSinceCheckpoint += added
	g.patchesSinceCompaction += added

	return state, nil
}

// countNewPatches counts the patches that landed on any writer's chain
// between g.cachedFrontier (the frontier as of the previous Materialize
// call, zero-valued before the first) and current, so Materialize can keep
// patchesSinceCheckpoint and patchesSinceCompaction accurate without any
// patch-commit path needing to notify the graph directly.
func (g *Graph) countNewPatches(ctx context.Context, current frontier.Frontier) (int, error) {
	total := 0

	for _, writer := range current.Writers() {
		from := g.cachedFrontier[writer]
		to := current[writer]

		if from == to {
			continue
		}

		chain, err := patch.LoadChain(ctx, g.store, to, from)
		if err != nil {
			return 0, err
		}

		total += len(chain)
	}

	return total, nil
}

// MaterializeAt replays the incremental patches between checkpointCommit's
// recorded frontier and the graph's current writer tips.
func (g *Graph) MaterializeAt(ctx context.Context, checkpointCommit objstore.Hash) (*reducer.GraphState, error) {
	current, err := seek.CurrentFrontier(ctx, g.store, g.name)
	if err != nil {
		return nil, err
	}

	return checkpoint.MaterializeIncremental(ctx, g.store, checkpointCommit, current, g.patchLoader())
}

func (g *Graph) patchLoader() checkpoint.PatchLoader {
	return func(ctx context.Context, writer string, from, to objstore.Hash) ([]patch.Patch, error) {
		return patch.LoadChain(ctx, g.store, to, from)
	}
}

func (g *Graph) foldEverything(ctx context.Context, current frontier.Frontier) (*reducer.GraphState, error) {
	var patches []patch.Patch

	for _, writer := range current.Writers() {
		chain, err := patch.LoadChain(ctx, g.store, current[writer], objstore.ZeroHash())
		if err != nil {
			return nil, err
		}

		patches = append(patches, chain...)
	}

	return reducer.Fold(patches)
}

// CreateCheckpoint materialises current state and writes a checkpoint
// commit parented on every current writer tip, advancing checkpoints/head.
func (g *Graph) CreateCheckpoint(ctx context.Context) (objstore.Hash, error) {
	ctx, span := g.telemetry.StartSpan(ctx, "graph.create_checkpoint")
	defer span.End()

	state, err := g.Materialize(ctx)
	if err != nil {
		return objstore.Hash{}, err
	}

	g.mu.Lock()
	current := g.cachedFrontier
	g.mu.Unlock()

	idx, err := tickindex.Discover(ctx, g.store, g.name)
	if err != nil {
		return objstore.Hash{}, err
	}

	parents := make([]objstore.Hash, 0, len(current))
	for _, writer := range current.Writers() {
		parents = append(parents, current[writer])
	}

	commitOID, err := checkpoint.Create(ctx, g.store, g.name, state, current, parents, g.schema, idx)
	if err != nil {
		return objstore.Hash{}, err
	}

	ref := reflayout.CheckpointHeadRef(g.name)

	existing, ok, err := g.store.ReadRef(ctx, ref)
	if err != nil {
		return objstore.Hash{}, warperr.Wrap(err)
	}

	expected := objstore.ZeroHash()
	if ok {
		expected = existing
	}

	if err := g.store.UpdateRef(ctx, ref, expected, commitOID); err != nil {
		return objstore.Hash{}, warperr.Wrap(err)
	}

	g.mu.Lock()
	g.patchesSinceCheckpoint = 0
	g.checkpointTime = time.Now()
	g.mu.Unlock()

	g.telemetry.Logger.InfoContext(ctx, "created checkpoint", slog.String("graph", g.name))

	return commitOID, nil
}

// SyncCoverage writes a parents-only coverage anchor commit over every
// writer's current, non-null tip and advances coverage/head. A graph with
// no writers yet is a no-op, returning the zero hash.
func (g *Graph) SyncCoverage(ctx context.Context) (objstore.Hash, error) {
	ctx, span := g.telemetry.StartSpan(ctx, "graph.sync_coverage")
	defer span.End()

	current, err := seek.CurrentFrontier(ctx, g.store, g.name)
	if err != nil {
		return objstore.Hash{}, err
	}

	if len(current) == 0 {
		g.telemetry.Logger.DebugContext(ctx, "no writers yet, skipping coverage sync")

		return objstore.Hash{}, nil
	}

	parents := make([]objstore.Hash, 0, len(current))
	for _, writer := range current.Writers() {
		parents = append(parents, current[writer])
	}

	commitOID, err := g.store.CommitNode(ctx, objstore.NewNode{
		Message: reflayout.AnchorMessage(g.name), Parents: parents,
	})
	if err != nil {
		return objstore.Hash{}, warperr.Wrap(err)
	}

	ref := reflayout.CoverageHeadRef(g.name)

	existing, ok, err := g.store.ReadRef(ctx, ref)
	if err != nil {
		return objstore.Hash{}, warperr.Wrap(err)
	}

	expected := objstore.ZeroHash()
	if ok {
		expected = existing
	}

	if err := g.store.UpdateRef(ctx, ref, expected, commitOID); err != nil {
		return objstore.Hash{}, warperr.Wrap(err)
	}

	return commitOID, nil
}

// DiscoverWriters returns every writer id with a chain in this graph, in
// sorted order.
func (g *Graph) DiscoverWriters(ctx context.Context) ([]string, error) {
	refs, err := g.store.ListRefs(ctx, reflayout.WritersPrefix(g.name))
	if err != nil {
		return nil, warperr.Wrap(err)
	}

	writers := make([]string, 0, len(refs))

	for _, ref := range refs {
		if w, ok := reflayout.ParseWriterRef(g.name, ref); ok {
			writers = append(writers, w)
		}
	}

	sort.Strings(writers)

	return writers, nil
}

// Status is the result of Status(): the graph's current writer-tip
// frontier.
type Status struct {
	Frontier frontier.Frontier
}

// Status observes the graph's current writer tips.
func (g *Graph) Status(ctx context.Context) (Status, error) {
	f, err := g.GetFrontier(ctx)
	if err != nil {
		return Status{}, err
	}

	return Status{Frontier: f}, nil
}

// GetFrontier observes the graph's current writer tips.
func (g *Graph) GetFrontier(ctx context.Context) (frontier.Frontier, error) {
	return seek.CurrentFrontier(ctx, g.store, g.name)
}

// NewPatch returns a patch.Builder for this graph's writer, pre-configured
// with the graph's delete-guard policy (checked against the last
// materialized state) and, for schema 2, that state's observed frontier.
// Materialize (or a prior call to it) must have run at least once for the
// delete guard to see live dependents; an unmaterialized graph builds
// patches with the guard checker disabled.
func (g *Graph) NewPatch() (*patch.Builder, error) {
	g.mu.Lock()
	cached := g.cached
	g.mu.Unlock()

	// cached is assigned to checker only when non-nil: a *reducer.GraphState
	// nil pointer boxed directly into the LivenessChecker interface would be
	// a non-nil interface wrapping a nil pointer, and Builder's "checker !=
	// nil" guard would then call a method on a nil receiver.
	var checker patch.LivenessChecker
	if cached != nil {
		checker = cached
	}

	opts := []patch.Option{patch.WithDeleteGuard(g.deleteGuard, checker)}

	if g.schema >= 2 && cached != nil {
		opts = append(opts, patch.WithObservedFrontier(cached.AppliedVV()))
	}

	return patch.NewBuilder(g.store, g.name, g.writer, g.schema, opts...)
}

// Close releases any resources the underlying store holds open (e.g. a
// gitstore.Store's libgit2 repository handle). Stores that need no
// explicit release (e.g. memstore) are left untouched.
func (g *Graph) Close() error {
	if closer, ok := g.store.(interface{ Close() error }); ok {
		return closer.Close()
	}

	if closer, ok := g.store.(interface{ Close() }); ok {
		closer.Close()
	}

	return nil
}

package patch

import (
	"context"
	"errors"
	"fmt"

	"github.com/warpgraph/warp/pkg/codec"
	"github.com/warpgraph/warp/pkg/objstore"
	"github.com/warpgraph/warp/pkg/reflayout"
	"github.com/warpgraph/warp/pkg/warperr"
)

const patchTreeEntryName = "patch"

// Builder accumulates operations for one writer and commits them as a
// single, lamport-stamped, chained patch commit. A Builder is single-use:
// create a new one per logical batch of operations via NewBuilder.
type Builder struct {
	store  objstore.Store
	graph  string
	writer string
	schema int

	policy  DeleteGuardPolicy
	checker LivenessChecker

	ops      []Operation
	warnings []string

	observedFrontier map[string]uint64
}

// Option configures a Builder at construction time.
type Option func(*Builder)

// WithDeleteGuard sets the node-delete guard policy and the liveness
// checker consulted when policy is not DeleteGuardCascade. checker may be
// nil, in which case the check is skipped regardless of policy.
func WithDeleteGuard(policy DeleteGuardPolicy, checker LivenessChecker) Option {
	return func(b *Builder) {
		b.policy = policy
		b.checker = checker
	}
}

// WithObservedFrontier attaches a schema 2 observed frontier to the patch
// this builder produces. Ignored for schema 1.
func WithObservedFrontier(frontier map[string]uint64) Option {
	return func(b *Builder) {
		b.observedFrontier = frontier
	}
}

// NewBuilder creates a Builder for writer's next patch in graph, against
// store, at the given schema (1 or 2).
func NewBuilder(store objstore.Store, graph, writer string, schema int, opts ...Option) (*Builder, error) {
	if err := reflayout.ValidateGraph(graph); err != nil {
		return nil, warperr.New(warperr.ErrInvalidName, "%v", err)
	}

	if err := reflayout.ValidateWriter(writer); err != nil {
		return nil, warperr.New(warperr.ErrInvalidName, "%v", err)
	}

	b := &Builder{store: store, graph: graph, writer: writer, schema: schema}
	for _, opt := range opts {
		opt(b)
	}

	return b, nil
}

// OperationCount returns the number of operations accumulated so far.
func (b *Builder) OperationCount() int { return len(b.ops) }

// Warnings returns the delete-guard warnings recorded by DeleteGuardWarn
// policy calls to RemoveNode, in the order they were recorded.
func (b *Builder) Warnings() []string { return b.warnings }

// AddNode appends a NodeAdd operation.
func (b *Builder) AddNode(nodeID string) {
	b.ops = append(b.ops, Operation{Kind: KindNodeAdd, NodeID: nodeID})
}

// RemoveNode appends a NodeTombstone operation, enforcing the configured
// delete-guard policy against b.checker if one is set.
func (b *Builder) RemoveNode(nodeID string) error {
	if b.checker != nil && b.checker.NodeHasLiveDependents(nodeID) {
		switch b.policy {
		case DeleteGuardReject:
			return warperr.New(warperr.ErrInvalidPatch, "node %q has live edges or properties", nodeID)
		case DeleteGuardWarn:
			b.warnings = append(b.warnings, fmt.Sprintf("node %q tombstoned with live edges or properties", nodeID))
		case DeleteGuardCascade:
		}
	}

	b.ops = append(b.ops, Operation{Kind: KindNodeTombstone, NodeID: nodeID})

	return nil
}

// AddEdge appends an EdgeAdd operation.
func (b *Builder) AddEdge(from, to, label string) {
	b.ops = append(b.ops, Operation{Kind: KindEdgeAdd, From: from, To: to, Label: label})
}

// RemoveEdge appends an EdgeTombstone operation.
func (b *Builder) RemoveEdge(from, to, label string) {
	b.ops = append(b.ops, Operation{Kind: KindEdgeTombstone, From: from, To: to, Label: label})
}

// SetProperty appends a PropSet operation.
func (b *Builder) SetProperty(nodeID, key string, value PropValue) {
	b.ops = append(b.ops, Operation{Kind: KindPropSet, NodeID: nodeID, Key: key, Value: &value})
}

// RemoveProperty appends a PropRemove operation.
func (b *Builder) RemoveProperty(nodeID, key string) {
	b.ops = append(b.ops, Operation{Kind: KindPropRemove, NodeID: nodeID, Key: key})
}

// AddBlobValue appends a BlobValue operation carrying a content-addressed
// payload.
func (b *Builder) AddBlobValue(oid objstore.Hash, data []byte) {
	b.ops = append(b.ops, Operation{Kind: KindBlobValue, BlobOID: oid, BlobBytes: data})
}

type tip struct {
	commit     objstore.Hash
	lamport    uint64
	maxCounter uint64
}

// readTip loads the writer's current chain tip: its commit hash, the
// lamport value of the patch at that tip (0 if the chain is empty), and
// the highest dot counter used by any operation in that patch (0 if the
// chain is empty or this is a schema 1 chain).
func (b *Builder) readTip(ctx context.Context) (tip, error) {
	ref := reflayout.WriterRef(b.graph, b.writer)

	head, ok, err := b.store.ReadRef(ctx, ref)
	if err != nil {
		return tip{}, warperr.Wrap(err)
	}

	if !ok {
		return tip{}, nil
	}

	info, err := b.store.GetNodeInfo(ctx, head)
	if err != nil {
		return tip{}, warperr.Wrap(err)
	}

	trailers, ok := reflayout.ParseMessage(info.Message)
	if !ok || trailers.Kind != reflayout.KindPatch {
		return tip{}, warperr.New(warperr.ErrInvalidPatch, "writer tip %s is not a patch commit", head)
	}

	lamport, err := trailers.Lamport()
	if err != nil {
		return tip{}, warperr.New(warperr.ErrInvalidPatch, "%v", err)
	}

	entries, err := b.store.ReadTree(ctx, info.Tree)
	if err != nil {
		return tip{}, warperr.Wrap(err)
	}

	var patchBlob objstore.Hash

	for _, e := range entries {
		if e.Name == patchTreeEntryName {
			patchBlob = e.Hash
		}
	}

	raw, err := b.store.ReadBlob(ctx, patchBlob)
	if err != nil {
		return tip{}, warperr.Wrap(err)
	}

	var prev Patch
	if err := codec.DecodeBlob(raw, &prev); err != nil {
		return tip{}, warperr.New(warperr.ErrInvalidPatch, "%v", err)
	}

	var maxCounter uint64

	for _, op := range prev.Ops {
		if op.Dot != nil && op.Dot.Counter > maxCounter {
			maxCounter = op.Dot.Counter
		}
	}

	return tip{commit: head, lamport: lamport, maxCounter: maxCounter}, nil
}

// Commit writes the accumulated operations as a single patch commit,
// chained after the writer's previous tip, and advances the writer
// reference under compare-and-set. Fails with ErrEmptyPatch if no
// operations were added. On a lost race the entire sequence — read tip,
// stamp lamport and dots, build commit, update ref — is retried from a
// fresh ReadRef.
func (b *Builder) Commit(ctx context.Context) (objstore.Hash, error) {
	if len(b.ops) == 0 {
		return objstore.Hash{}, warperr.New(warperr.ErrEmptyPatch, "no operations added")
	}

	for {
		select {
		case <-ctx.Done():
			return objstore.Hash{}, ctx.Err()
		default:
		}

		t, err := b.readTip(ctx)
		if err != nil {
			return objstore.Hash{}, err
		}

		lamport := t.lamport + 1

		ops := b.stampedOps(t.maxCounter)

		p := Patch{Schema: b.schema, Writer: b.writer, Lamport: lamport, Ops: ops}
		if b.schema >= 2 {
			p.ObservedFrontier = b.observedFrontier
		}

		commitHash, err := b.writeCommit(ctx, p, t.commit)
		if err != nil {
			return objstore.Hash{}, err
		}

		ref := reflayout.WriterRef(b.graph, b.writer)

		if err := b.store.UpdateRef(ctx, ref, t.commit, commitHash); err != nil {
			if errors.Is(err, objstore.ErrRefConflict) {
				continue
			}

			return objstore.Hash{}, warperr.Wrap(err)
		}

		return commitHash, nil
	}
}

func (b *Builder) stampedOps(baseCounter uint64) []Operation {
	if b.schema < 2 {
		return b.ops
	}

	out := make([]Operation, len(b.ops))

	for i, op := range b.ops {
		op.Dot = &Dot{Writer: b.writer, Counter: baseCounter + uint64(i) + 1}
		out[i] = op
	}

	return out
}

func (b *Builder) writeCommit(ctx context.Context, p Patch, parent objstore.Hash) (objstore.Hash, error) {
	blob, err := codec.EncodeBlob(p)
	if err != nil {
		return objstore.Hash{}, warperr.New(warperr.ErrInvalidPatch, "%v", err)
	}

	patchOID, err := b.store.WriteBlob(ctx, blob)
	if err != nil {
		return objstore.Hash{}, warperr.Wrap(err)
	}

	treeOID, err := b.store.WriteTree(ctx, []objstore.TreeEntry{{Name: patchTreeEntryName, Hash: patchOID}})
	if err != nil {
		return objstore.Hash{}, warperr.Wrap(err)
	}

	message := reflayout.PatchMessage(b.graph, b.writer, p.Lamport, patchOID)

	var parents []objstore.Hash
	if !parent.IsZero() {
		parents = []objstore.Hash{parent}
	}

	commitOID, err := b.store.CommitNodeWithTree(ctx, objstore.NewNodeWithTree{
		Tree: treeOID, Message: message, Parents: parents,
	})
	if err != nil {
		return objstore.Hash{}, warperr.Wrap(err)
	}

	return commitOID, nil
}

// Package checkpoint serialises a reducer.GraphState and the frontier it
// was computed at as a single checkpoint commit, loads one back, and
// replays the incremental patches between two frontiers.
package checkpoint

import (
	"context"
	"encoding/hex"

	"github.com/warpgraph/warp/pkg/codec"
	"github.com/warpgraph/warp/pkg/frontier"
	"github.com/warpgraph/warp/pkg/objstore"
	"github.com/warpgraph/warp/pkg/patch"
	"github.com/warpgraph/warp/pkg/reducer"
	"github.com/warpgraph/warp/pkg/reflayout"
	"github.com/warpgraph/warp/pkg/warperr"
)

const (
	stateEntryName     = "state.cbor"
	frontierEntryName  = "frontier.cbor"
	tickIndexEntryName = "index.cbor"
)

// Checkpoint is the decoded result of Load.
type Checkpoint struct {
	State     *reducer.GraphState
	Frontier  frontier.Frontier
	StateHash reducer.Hash
	Schema    int
}

// Create snapshots state at frontier f into a new checkpoint commit parented
// on parents (the writer tips f was computed from), and returns the commit
// hash. index is an arbitrary, separately encodable value — the tick index
// as of this checkpoint — stored alongside state and frontier so a reader
// can resume seeking without replaying every writer chain from scratch.
func Create(
	ctx context.Context,
	store objstore.Store,
	graph string,
	state *reducer.GraphState,
	f frontier.Frontier,
	parents []objstore.Hash,
	schema int,
	index any,
) (objstore.Hash, error) {
	stateHash, err := state.StateHash()
	if err != nil {
		return objstore.Hash{}, warperr.New(warperr.ErrInvalidPatch, "%v", err)
	}

	stateBlob, err := codec.EncodeBlob(state)
	if err != nil {
		return objstore.Hash{}, warperr.New(warperr.ErrInvalidPatch, "%v", err)
	}

	frontierBlob, err := codec.EncodeBlob(f)
	if err != nil {
		return objstore.Hash{}, warperr.New(warperr.ErrInvalidPatch, "%v", err)
	}

	indexBlob, err := codec.EncodeBlob(index)
	if err != nil {
		return objstore.Hash{}, warperr.New(warperr.ErrInvalidPatch, "%v", err)
	}

	stateOID, err := store.WriteBlob(ctx, stateBlob)
	if err != nil {
		return objstore.Hash{}, warperr.Wrap(err)
	}

	frontierOID, err := store.WriteBlob(ctx, frontierBlob)
	if err != nil {
		return objstore.Hash{}, warperr.Wrap(err)
	}

	indexOID, err := store.WriteBlob(ctx, indexBlob)
	if err != nil {
		return objstore.Hash{}, warperr.Wrap(err)
	}

	treeOID, err := store.WriteTree(ctx, []objstore.TreeEntry{
		{Name: stateEntryName, Hash: stateOID},
		{Name: frontierEntryName, Hash: frontierOID},
		{Name: tickIndexEntryName, Hash: indexOID},
	})
	if err != nil {
		return objstore.Hash{}, warperr.Wrap(err)
	}

	message := reflayout.CheckpointMessage(graph, hex.EncodeToString(stateHash[:]), frontierOID, indexOID, schema)

	commitOID, err := store.CommitNodeWithTree(ctx, objstore.NewNodeWithTree{
		Tree: treeOID, Message: message, Parents: parents,
	})
	if err != nil {
		return objstore.Hash{}, warperr.Wrap(err)
	}

	return commitOID, nil
}

// Load reads back a checkpoint commit's state, frontier, and schema.
func Load(ctx context.Context, store objstore.Store, commit objstore.Hash) (Checkpoint, error) {
	info, err := store.GetNodeInfo(ctx, commit)
	if err != nil {
		return Checkpoint{}, warperr.Wrap(err)
	}

	trailers, ok := reflayout.ParseMessage(info.Message)
	if !ok || trailers.Kind != reflayout.KindCheckpoint {
		return Checkpoint{}, warperr.New(warperr.ErrInvalidPatch, "commit %s is not a checkpoint commit", commit)
	}

	schema, err := trailers.Schema()
	if err != nil {
		return Checkpoint{}, warperr.New(warperr.ErrInvalidPatch, "%v", err)
	}

	entries, err := store.ReadTree(ctx, info.Tree)
	if err != nil {
		return Checkpoint{}, warperr.Wrap(err)
	}

	var stateOID, frontierOID objstore.Hash

	for _, e := range entries {
		switch e.Name {
		case stateEntryName:
			stateOID = e.Hash
		case frontierEntryName:
			frontierOID = e.Hash
		}
	}

	stateBlob, err := store.ReadBlob(ctx, stateOID)
	if err != nil {
		return Checkpoint{}, warperr.Wrap(err)
	}

	state := reducer.NewGraphState()
	if err := codec.DecodeBlob(stateBlob, state); err != nil {
		return Checkpoint{}, warperr.New(warperr.ErrInvalidPatch, "%v", err)
	}

	frontierBlob, err := store.ReadBlob(ctx, frontierOID)
	if err != nil {
		return Checkpoint{}, warperr.Wrap(err)
	}

	var f frontier.Frontier
	if err := codec.DecodeBlob(frontierBlob, &f); err != nil {
		return Checkpoint{}, warperr.New(warperr.ErrInvalidPatch, "%v", err)
	}

	stateHash, err := state.StateHash()
	if err != nil {
		return Checkpoint{}, warperr.New(warperr.ErrInvalidPatch, "%v", err)
	}

	return Checkpoint{State: state, Frontier: f, StateHash: stateHash, Schema: schema}, nil
}

// PatchLoader loads every patch on writer's chain strictly after the
// commit `from` (or from the root if from is the zero hash) up to and
// including the commit `to`, in chain order (oldest first).
type PatchLoader func(ctx context.Context, writer string, from, to objstore.Hash) ([]patch.Patch, error)

// MaterializeIncremental loads the checkpoint at checkpointCommit, then for
// each writer named in targetFrontier, loads the patches between the
// checkpoint's recorded tip for that writer and targetFrontier's tip via
// load, and folds them onto the checkpoint's state via the same per-op
// logic a from-scratch Fold uses — not a dot-union join, which could only
// ever add dots back and can never apply a tombstone that targets a dot
// the checkpoint already captured alive.
func MaterializeIncremental(
	ctx context.Context,
	store objstore.Store,
	checkpointCommit objstore.Hash,
	targetFrontier frontier.Frontier,
	load PatchLoader,
) (*reducer.GraphState, error) {
	cp, err := Load(ctx, store, checkpointCommit)
	if err != nil {
		return nil, err
	}

	var incremental []patch.Patch

	for _, writer := range targetFrontier.Writers() {
		from := cp.Frontier[writer]
		to := targetFrontier[writer]

		if from == to {
			continue
		}

		patches, err := load(ctx, writer, from, to)
		if err != nil {
			return nil, err
		}

		incremental = append(incremental, patches...)
	}

	return reducer.FoldInto(cp.State, incremental)
}

package patch

import (
	"context"

	"github.com/warpgraph/warp/pkg/codec"
	"github.com/warpgraph/warp/pkg/objstore"
	"github.com/warpgraph/warp/pkg/reflayout"
	"github.com/warpgraph/warp/pkg/warperr"
)

// Load reads and decodes the patch stored at commit, which must be a patch
// commit (its message's first line is "warp:patch").
func Load(ctx context.Context, store objstore.Store, commit objstore.Hash) (Patch, error) {
	info, err := store.GetNodeInfo(ctx, commit)
	if err != nil {
		return Patch{}, warperr.Wrap(err)
	}

	trailers, ok := reflayout.ParseMessage(info.Message)
	if !ok || trailers.Kind != reflayout.KindPatch {
		return Patch{}, warperr.New(warperr.ErrInvalidPatch, "commit %s is not a patch commit", commit)
	}

	entries, err := store.ReadTree(ctx, info.Tree)
	if err != nil {
		return Patch{}, warperr.Wrap(err)
	}

	var blobOID objstore.Hash

	for _, e := range entries {
		if e.Name == patchTreeEntryName {
			blobOID = e.Hash
		}
	}

	raw, err := store.ReadBlob(ctx, blobOID)
	if err != nil {
		return Patch{}, warperr.Wrap(err)
	}

	var p Patch
	if err := codec.DecodeBlob(raw, &p); err != nil {
		return Patch{}, warperr.New(warperr.ErrInvalidPatch, "%v", err)
	}

	return p, nil
}

// LoadChain walks a writer chain from tip back to, but not including, stop
// (the zero hash meaning "walk to the root"), and returns every patch
// found in chronological order (oldest first) — the shape
// checkpoint.PatchLoader needs.
func LoadChain(ctx context.Context, store objstore.Store, tip, stop objstore.Hash) ([]Patch, error) {
	var reversed []Patch

	cursor := tip

	for !cursor.IsZero() && cursor != stop {
		p, err := Load(ctx, store, cursor)
		if err != nil {
			return nil, err
		}

		reversed = append(reversed, p)

		info, err := store.GetNodeInfo(ctx, cursor)
		if err != nil {
			return nil, warperr.Wrap(err)
		}

		if len(info.Parents) == 0 {
			break
		}

		cursor = info.Parents[0]
	}

	out := make([]Patch, len(reversed))
	for i, p := range reversed {
		out[len(reversed)-1-i] = p
	}

	return out, nil
}

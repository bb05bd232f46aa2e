package gitstore

import (
	"context"

	git2go "github.com/libgit2/git2go/v34"

	"github.com/warpgraph/warp/pkg/objstore"
)

// WriteTree implements objstore.Store. Every entry is written as a plain
// blob-mode leaf; warp trees are always flat (a patch tree holds its single
// payload blob, a checkpoint tree holds state.cbor, frontier.cbor and
// index.cbor), so
// there is no need for the nested TreeBuilder recursion gitlib never had to
// do either.
func (s *Store) WriteTree(_ context.Context, entries []objstore.TreeEntry) (objstore.Hash, error) {
	builder, err := s.repo.TreeBuilder()
	if err != nil {
		return objstore.Hash{}, wrapf("create tree builder", err)
	}
	defer builder.Free()

	for _, e := range entries {
		if err := builder.Insert(e.Name, hashToOid(e.Hash), git2go.FilemodeBlob); err != nil {
			return objstore.Hash{}, wrapf("insert tree entry", err)
		}
	}

	oid, err := builder.Write()
	if err != nil {
		return objstore.Hash{}, wrapf("write tree", err)
	}

	return oidToHash(oid), nil
}

// ReadTree implements objstore.Store.
func (s *Store) ReadTree(_ context.Context, tree objstore.Hash) ([]objstore.TreeEntry, error) {
	t, err := s.repo.LookupTree(hashToOid(tree))
	if err != nil {
		if git2go.IsErrorCode(err, git2go.ErrorCodeNotFound) {
			return nil, objstore.ErrNotFound
		}

		return nil, wrapf("lookup tree", err)
	}
	defer t.Free()

	count := t.EntryCount()
	out := make([]objstore.TreeEntry, 0, count)

	for i := uint64(0); i < count; i++ {
		entry := t.EntryByIndex(i)
		out = append(out, objstore.TreeEntry{Name: entry.Name, Hash: oidToHash(entry.Id)})
	}

	return out, nil
}

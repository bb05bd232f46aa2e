package gitstore

import (
	"context"

	git2go "github.com/libgit2/git2go/v34"

	"github.com/warpgraph/warp/pkg/objstore"
)

// WriteBlob implements objstore.Store.
func (s *Store) WriteBlob(_ context.Context, data []byte) (objstore.Hash, error) {
	oid, err := s.repo.CreateBlobFromBuffer(data)
	if err != nil {
		return objstore.Hash{}, wrapf("write blob", err)
	}

	return oidToHash(oid), nil
}

// ReadBlob implements objstore.Store.
func (s *Store) ReadBlob(_ context.Context, oid objstore.Hash) ([]byte, error) {
	blob, err := s.repo.LookupBlob(hashToOid(oid))
	if err != nil {
		if git2go.IsErrorCode(err, git2go.ErrorCodeNotFound) {
			return nil, objstore.ErrNotFound
		}

		return nil, wrapf("lookup blob", err)
	}
	defer blob.Free()

	data := blob.Contents()
	cp := make([]byte, len(data))
	copy(cp, data)

	return cp, nil
}

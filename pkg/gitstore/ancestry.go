package gitstore

import (
	"context"
	"errors"

	"github.com/warpgraph/warp/pkg/objstore"
)

var errClosed = errors.New("gitstore: store is closed")

// IsAncestor implements objstore.Store via libgit2's merge-base graph walk,
// the same primitive the teacher's revwalk.go uses to decide which commits
// are already covered by a ref before walking history for new ones.
func (s *Store) IsAncestor(_ context.Context, a, b objstore.Hash) (bool, error) {
	if a == b {
		return true, nil
	}

	if a.IsZero() {
		return false, nil
	}

	descendant, err := s.repo.DescendantOf(hashToOid(b), hashToOid(a))
	if err != nil {
		return false, wrapf("descendant-of", err)
	}

	return descendant, nil
}

// Ping implements objstore.Store by checking that the repository's object
// database is reachable.
func (s *Store) Ping(_ context.Context) error {
	if s.repo == nil {
		return wrapf("ping", errClosed)
	}

	if _, err := s.repo.Odb(); err != nil {
		return wrapf("ping", err)
	}

	return nil
}

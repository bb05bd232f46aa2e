package gitstore

import (
	"context"
	"fmt"
	"strings"

	git2go "github.com/libgit2/git2go/v34"

	"github.com/warpgraph/warp/pkg/objstore"
)

// ListRefs implements objstore.Store.
func (s *Store) ListRefs(_ context.Context, prefix string) ([]string, error) {
	iter, err := s.repo.NewReferenceIteratorGlob(prefix + "*")
	if err != nil {
		return nil, wrapf("list refs", err)
	}
	defer iter.Free()

	var out []string

	for {
		ref, err := iter.Next()
		if err != nil {
			break
		}

		name := ref.Name()
		if strings.HasPrefix(name, prefix) {
			out = append(out, name)
		}
	}

	return out, nil
}

// ReadRef implements objstore.Store.
func (s *Store) ReadRef(_ context.Context, ref string) (objstore.Hash, bool, error) {
	r, err := s.repo.References.Lookup(ref)
	if err != nil {
		if git2go.IsErrorCode(err, git2go.ErrorCodeNotFound) {
			return objstore.Hash{}, false, nil
		}

		return objstore.Hash{}, false, wrapf("read ref", err)
	}
	defer r.Free()

	return oidToHash(r.Target()), true, nil
}

// UpdateRef implements objstore.Store as a compare-and-set against the
// reference's current target, via libgit2's matching-create.
func (s *Store) UpdateRef(_ context.Context, ref string, expected, next objstore.Hash) error {
	if expected.IsZero() {
		if _, err := s.repo.References.Create(ref, hashToOid(next), false, "warp: create"); err != nil {
			if git2go.IsErrorCode(err, git2go.ErrorCodeExists) {
				return objstore.ErrRefConflict
			}

			return wrapf("create ref", err)
		}

		return nil
	}

	if _, err := s.repo.References.CreateMatching(ref, hashToOid(next), true, hashToOid(expected), "warp: update"); err != nil {
		if git2go.IsErrorCode(err, git2go.ErrorCodeModified) || git2go.IsErrorCode(err, git2go.ErrorCodeNotFound) {
			return objstore.ErrRefConflict
		}

		return wrapf("update ref", err)
	}

	return nil
}

// DeleteRef implements objstore.Store.
func (s *Store) DeleteRef(_ context.Context, ref string) error {
	r, err := s.repo.References.Lookup(ref)
	if err != nil {
		if git2go.IsErrorCode(err, git2go.ErrorCodeNotFound) {
			return nil
		}

		return wrapf("lookup ref for delete", err)
	}
	defer r.Free()

	if err := r.Delete(); err != nil {
		return wrapf("delete ref", err)
	}

	return nil
}

func wrapf(op string, err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("gitstore: %s: %w", op, err)
}

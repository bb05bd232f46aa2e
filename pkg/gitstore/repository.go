// Package gitstore backs the objstore.Store port with a real git object
// database via libgit2/git2go — the teacher's git-access library, extended
// here with the write path (blob/tree/commit creation, compare-and-set ref
// updates) the read-only analysis tool never needed.
package gitstore

import (
	"fmt"
	"time"

	git2go "github.com/libgit2/git2go/v34"

	"github.com/warpgraph/warp/pkg/objstore"
)

// Store wraps a bare libgit2 repository and implements objstore.Store.
// Each warp graph owns one Store backed by its own bare repository; there is
// no working tree, since patches/checkpoints/anchors are commits built
// directly from trees, never from an index or checkout.
type Store struct {
	repo    *git2go.Repository
	nowFunc func() time.Time
}

// Open opens an existing bare repository at path.
func Open(path string) (*Store, error) {
	repo, err := git2go.OpenRepository(path)
	if err != nil {
		return nil, fmt.Errorf("gitstore: open repository: %w", err)
	}

	return &Store{repo: repo, nowFunc: time.Now}, nil
}

// Init creates a new bare repository at path and opens it. Safe to call
// against a path that does not yet exist. If path already contains a
// repository, libgit2 reinitialises it in place and Init opens it without
// error.
func Init(path string) (*Store, error) {
	repo, err := git2go.InitRepository(path, true)
	if err != nil {
		return nil, fmt.Errorf("gitstore: init repository: %w", err)
	}

	return &Store{repo: repo, nowFunc: time.Now}, nil
}

// SetClock overrides the clock used to stamp commit signatures. Tests use
// this for deterministic fixtures; production callers leave it at time.Now.
func (s *Store) SetClock(clock func() time.Time) {
	s.nowFunc = clock
}

// Close releases the underlying libgit2 repository handle. The teacher's
// gitlib types require this explicit Free(); warp's graph.Close threads it
// through the same way.
func (s *Store) Close() {
	if s.repo != nil {
		s.repo.Free()
		s.repo = nil
	}
}

// Native returns the underlying libgit2 repository for advanced use.
func (s *Store) Native() *git2go.Repository {
	return s.repo
}

func hashToOid(h objstore.Hash) *git2go.Oid {
	oid := new(git2go.Oid)
	copy(oid[:], h[:])

	return oid
}

func oidToHash(oid *git2go.Oid) objstore.Hash {
	var h objstore.Hash
	if oid != nil {
		copy(h[:], oid[:])
	}

	return h
}

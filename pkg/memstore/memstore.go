// Package memstore provides an in-memory objstore.Store, used by tests and
// by processes that want to embed warp without touching the filesystem.
// Grounded on the teacher's gitlib.TestCommit mock idiom: plain Go data
// structures standing in for the real git objects, content-hashed with SHA-1
// over memstore's own framing, so its hashes differ from the ones gitstore
// computes for the same objects.
package memstore

import (
	"context"
	"crypto/sha1" //nolint:gosec // content-addressing, not a security boundary
	"encoding/binary"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/warpgraph/warp/pkg/objstore"
)

type commitNode struct {
	info objstore.NodeInfo
}

// Store is an in-memory, mutex-guarded objstore.Store.
type Store struct {
	mu      sync.Mutex
	refs    map[string]objstore.Hash
	blobs   map[objstore.Hash][]byte
	trees   map[objstore.Hash][]objstore.TreeEntry
	commits map[objstore.Hash]commitNode
	clock   func() time.Time
}

// New creates an empty in-memory store. clock defaults to time.Now if nil;
// tests that need deterministic commit dates can supply a fixed clock.
func New(clock func() time.Time) *Store {
	if clock == nil {
		clock = time.Now
	}

	return &Store{
		refs:    make(map[string]objstore.Hash),
		blobs:   make(map[objstore.Hash][]byte),
		trees:   make(map[objstore.Hash][]objstore.TreeEntry),
		commits: make(map[objstore.Hash]commitNode),
		clock:   clock,
	}
}

// ListRefs implements objstore.Store.
func (s *Store) ListRefs(_ context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.refs))

	for name := range s.refs {
		if strings.HasPrefix(name, prefix) {
			out = append(out, name)
		}
	}

	sort.Strings(out)

	return out, nil
}

// ReadRef implements objstore.Store.
func (s *Store) ReadRef(_ context.Context, ref string) (objstore.Hash, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.refs[ref]

	return h, ok, nil
}

// UpdateRef implements objstore.Store.
func (s *Store) UpdateRef(_ context.Context, ref string, expected, next objstore.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.refs[ref]

	switch {
	case !exists && !expected.IsZero():
		return objstore.ErrRefConflict
	case exists && current != expected:
		return objstore.ErrRefConflict
	}

	s.refs[ref] = next

	return nil
}

// DeleteRef implements objstore.Store.
func (s *Store) DeleteRef(_ context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.refs, ref)

	return nil
}

// WriteBlob implements objstore.Store.
func (s *Store) WriteBlob(_ context.Context, data []byte) (objstore.Hash, error) {
	h := contentHash("blob", data)

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make([]byte, len(data))
	copy(cp, data)
	s.blobs[h] = cp

	return h, nil
}

// ReadBlob implements objstore.Store.
func (s *Store) ReadBlob(_ context.Context, oid objstore.Hash) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.blobs[oid]
	if !ok {
		return nil, objstore.ErrNotFound
	}

	cp := make([]byte, len(data))
	copy(cp, data)

	return cp, nil
}

// WriteTree implements objstore.Store.
func (s *Store) WriteTree(_ context.Context, entries []objstore.TreeEntry) (objstore.Hash, error) {
	sorted := append([]objstore.TreeEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	h := treeHash(sorted)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.trees[h] = sorted

	return h, nil
}

// ReadTree implements objstore.Store.
func (s *Store) ReadTree(_ context.Context, tree objstore.Hash) ([]objstore.TreeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, ok := s.trees[tree]
	if !ok {
		return nil, objstore.ErrNotFound
	}

	return append([]objstore.TreeEntry(nil), entries...), nil
}

// CommitNode implements objstore.Store.
func (s *Store) CommitNode(_ context.Context, n objstore.NewNode) (objstore.Hash, error) {
	return s.commit(n.Message, n.Parents, objstore.ZeroHash())
}

// CommitNodeWithTree implements objstore.Store.
func (s *Store) CommitNodeWithTree(_ context.Context, n objstore.NewNodeWithTree) (objstore.Hash, error) {
	return s.commit(n.Message, n.Parents, n.Tree)
}

func (s *Store) commit(message string, parents []objstore.Hash, tree objstore.Hash) (objstore.Hash, error) {
	now := s.clock()
	h := commitHash(message, parents, tree, now)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.commits[h] = commitNode{info: objstore.NodeInfo{
		Message: message,
		Parents: append([]objstore.Hash(nil), parents...),
		Tree:    tree,
		Date:    now,
	}}

	return h, nil
}

// GetNodeInfo implements objstore.Store.
func (s *Store) GetNodeInfo(_ context.Context, commit objstore.Hash) (objstore.NodeInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, ok := s.commits[commit]
	if !ok {
		return objstore.NodeInfo{}, objstore.ErrNotFound
	}

	return node.info, nil
}

// IsAncestor implements objstore.Store by walking first-parents, since
// writer chains in warp are strictly linear (see pkg/backfill).
func (s *Store) IsAncestor(ctx context.Context, a, b objstore.Hash) (bool, error) {
	if a == b {
		return true, nil
	}

	if a.IsZero() {
		return false, nil
	}

	cursor := b

	for {
		info, err := s.GetNodeInfo(ctx, cursor)
		if err != nil {
			return false, nil //nolint:nilerr // unreachable commit means "not an ancestor"
		}

		if len(info.Parents) == 0 {
			return false, nil
		}

		cursor = info.Parents[0]
		if cursor == a {
			return true, nil
		}
	}
}

// Ping implements objstore.Store.
func (s *Store) Ping(_ context.Context) error {
	return nil
}

func contentHash(kind string, data []byte) objstore.Hash {
	h := sha1.New() //nolint:gosec // content-addressing, not a security boundary
	h.Write([]byte(kind))
	h.Write([]byte{0})
	h.Write(data)

	var out objstore.Hash
	copy(out[:], h.Sum(nil))

	return out
}

func treeHash(entries []objstore.TreeEntry) objstore.Hash {
	h := sha1.New() //nolint:gosec // content-addressing, not a security boundary
	h.Write([]byte("tree"))

	for _, e := range entries {
		h.Write([]byte{0})
		h.Write([]byte(e.Name))
		h.Write([]byte{0})
		h.Write(e.Hash[:])
	}

	var out objstore.Hash
	copy(out[:], h.Sum(nil))

	return out
}

func commitHash(message string, parents []objstore.Hash, tree objstore.Hash, when time.Time) objstore.Hash {
	h := sha1.New() //nolint:gosec // content-addressing, not a security boundary
	h.Write([]byte("commit"))
	h.Write([]byte{0})
	h.Write(tree[:])

	for _, p := range parents {
		h.Write([]byte{0})
		h.Write(p[:])
	}

	h.Write([]byte{0})
	h.Write([]byte(message))

	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(when.UnixNano())) //nolint:gosec // narrows intentionally
	h.Write(ts[:])

	var out objstore.Hash
	copy(out[:], h.Sum(nil))

	return out
}

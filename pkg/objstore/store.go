package objstore

import (
	"context"
	"time"
)

// TreeEntry is a single named, hashed member of a tree object.
type TreeEntry struct {
	Name string
	Hash Hash
}

// NodeInfo is the parsed shape of a commit-like node: a message, its parent
// hashes, and the tree it carries (for a node written with CommitNode, the
// store's stand-in: ZeroHash in memstore, the empty tree in gitstore), used by backfill and
// tick-index ancestry walks and by the checkpoint service to recover
// state.cbor/frontier.cbor.
type NodeInfo struct {
	Message string
	Parents []Hash
	Tree    Hash
	Date    time.Time
}

// NewNode is the input to CommitNode: a message plus parent hashes, against
// whatever tree the store considers "current" (used for parents-only nodes
// such as coverage anchors, which carry no tree of their own).
type NewNode struct {
	Message string
	Parents []Hash
}

// NewNodeWithTree is the input to CommitNodeWithTree: a message, parents, and
// an explicit tree hash, used by patch commits and checkpoint commits.
type NewNodeWithTree struct {
	Tree    Hash
	Message string
	Parents []Hash
}

// Store is the only external collaborator the CRDT core requires: a
// content-addressed object store with named references and ancestry
// queries. Every method may suspend (network or disk I/O) and must respect
// ctx cancellation; a cancelled write leaves no reference advanced, since
// content-addressed writes of unreachable objects are harmless garbage.
type Store interface {
	// ListRefs returns every reference name under prefix, in no particular
	// order.
	ListRefs(ctx context.Context, prefix string) ([]string, error)
	// ReadRef returns the hash the reference currently points at, and false
	// if the reference does not exist.
	ReadRef(ctx context.Context, ref string) (Hash, bool, error)
	// UpdateRef performs a compare-and-set: ref is set to next only if it
	// currently equals expected (ZeroHash() meaning "must not exist").
	// ErrRefConflict is returned on a lost race.
	UpdateRef(ctx context.Context, ref string, expected, next Hash) error
	// DeleteRef removes a reference. Deleting an absent reference is not an
	// error.
	DeleteRef(ctx context.Context, ref string) error

	// WriteBlob stores bytes and returns their content hash.
	WriteBlob(ctx context.Context, data []byte) (Hash, error)
	// ReadBlob returns the bytes previously stored under oid.
	ReadBlob(ctx context.Context, oid Hash) ([]byte, error)

	// WriteTree stores a flat list of named entries and returns the tree
	// hash. Entries must be provided in the order the caller wants them
	// written; implementations are responsible for any canonical ordering
	// their backing format requires.
	WriteTree(ctx context.Context, entries []TreeEntry) (Hash, error)
	// ReadTree returns the entries of a previously written tree.
	ReadTree(ctx context.Context, tree Hash) ([]TreeEntry, error)

	// CommitNode writes a parents-only node (used for coverage anchors,
	// which merge every writer tip without carrying their own tree).
	CommitNode(ctx context.Context, n NewNode) (Hash, error)
	// CommitNodeWithTree writes a node carrying an explicit tree (used for
	// patch and checkpoint commits).
	CommitNodeWithTree(ctx context.Context, n NewNodeWithTree) (Hash, error)
	// GetNodeInfo reads back a commit's message and parents.
	GetNodeInfo(ctx context.Context, commit Hash) (NodeInfo, error)

	// IsAncestor reports whether a is an ancestor of (or equal to) b.
	// IsAncestor(x, x) is always true; IsAncestor(ZeroHash(), y) is always
	// false.
	IsAncestor(ctx context.Context, a, b Hash) (bool, error)

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error
}

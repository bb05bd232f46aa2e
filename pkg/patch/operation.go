// Package patch defines the operation and patch wire types every writer
// appends to its chain, and the PatchBuilder that accumulates operations
// into one canonically encoded, lamport-stamped, chained commit.
package patch

import "github.com/warpgraph/warp/pkg/objstore"

// Kind tags the seven operation variants a patch can carry.
type Kind string

const (
	KindNodeAdd       Kind = "node_add"
	KindNodeTombstone Kind = "node_tombstone"
	KindEdgeAdd       Kind = "edge_add"
	KindEdgeTombstone Kind = "edge_tombstone"
	KindPropSet       Kind = "prop_set"
	KindPropRemove    Kind = "prop_remove"
	KindBlobValue     Kind = "blob_value"
)

// Dot uniquely identifies a single registered event in an OR-Set: the
// writer that produced it and that writer's monotonic operation counter at
// the time. Populated only for schema 2 patches.
type Dot struct {
	Writer  string `cbor:"writer"`
	Counter uint64 `cbor:"counter"`
}

// PropValue is a property register's value: either carried inline or as a
// reference to a content-addressed blob holding a large value.
type PropValue struct {
	Inline []byte        `cbor:"inline,omitempty"`
	Blob   *objstore.Hash `cbor:"blob,omitempty"`
}

// InlineValue wraps raw bytes as an inline PropValue.
func InlineValue(b []byte) PropValue { return PropValue{Inline: b} }

// BlobValueRef wraps a blob hash as a PropValue referencing a
// content-addressed value.
func BlobValueRef(oid objstore.Hash) PropValue { return PropValue{Blob: &oid} }

// Operation is one tagged entry in a patch's ops list. Only the fields
// relevant to Kind are populated; the rest are zero and omitted from the
// canonical encoding.
type Operation struct {
	Kind Kind `cbor:"kind"`

	// NodeAdd, NodeTombstone, PropSet, PropRemove.
	NodeID string `cbor:"node_id,omitempty"`

	// EdgeAdd, EdgeTombstone.
	From  string `cbor:"from,omitempty"`
	To    string `cbor:"to,omitempty"`
	Label string `cbor:"label,omitempty"`

	// PropSet, PropRemove.
	Key   string     `cbor:"key,omitempty"`
	Value *PropValue `cbor:"value,omitempty"`

	// BlobValue.
	BlobOID   objstore.Hash `cbor:"blob_oid,omitempty"`
	BlobBytes []byte        `cbor:"blob_bytes,omitempty"`

	// Dot is set for schema 2 patches; nil for schema 1.
	Dot *Dot `cbor:"dot,omitempty"`
}

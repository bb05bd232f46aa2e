package patch

// Patch is the canonically encoded payload of a single patch commit:
// {schema, writer, lamport, ops[]}, plus, for schema 2, the observed
// frontier (version vector) the writer claims to have folded before
// producing these operations.
type Patch struct {
	Schema  int         `cbor:"schema"`
	Writer  string      `cbor:"writer"`
	Lamport uint64      `cbor:"lamport"`
	Ops     []Operation `cbor:"ops"`

	// ObservedFrontier is populated only for schema 2: writer -> highest
	// counter observed at the moment this patch was built. GC uses it to
	// decide which tombstoned dots are safe to compact.
	ObservedFrontier map[string]uint64 `cbor:"observed_frontier,omitempty"`
}

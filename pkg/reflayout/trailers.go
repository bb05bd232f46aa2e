package reflayout

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/warpgraph/warp/pkg/objstore"
)

// Kind distinguishes the three commit shapes a warp graph ever writes.
type Kind string

// The three commit kinds named in the external interface: a patch commit
// on a writer chain, a checkpoint commit, and a coverage anchor commit.
const (
	KindPatch      Kind = "patch"
	KindCheckpoint Kind = "checkpoint"
	KindAnchor     Kind = "anchor"
)

const (
	trailerKind        = Product + "-kind"
	trailerGraph       = Product + "-graph"
	trailerWriter      = Product + "-writer"
	trailerLamport     = Product + "-lamport"
	trailerPatch       = Product + "-patch"
	trailerStateHash   = Product + "-state-hash"
	trailerFrontierOID = Product + "-frontier-oid"
	trailerIndexOID    = Product + "-index-oid"
	trailerSchema      = Product + "-schema"
)

// PatchMessage builds the commit message for a patch commit.
func PatchMessage(graph, writer string, lamport uint64, patchOID objstore.Hash) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s:%s\n", Product, KindPatch)
	fmt.Fprintf(&b, "%s: %s\n", trailerKind, KindPatch)
	fmt.Fprintf(&b, "%s: %s\n", trailerGraph, graph)
	fmt.Fprintf(&b, "%s: %s\n", trailerWriter, writer)
	fmt.Fprintf(&b, "%s: %d\n", trailerLamport, lamport)
	fmt.Fprintf(&b, "%s: %s\n", trailerPatch, patchOID)

	return b.String()
}

// CheckpointMessage builds the commit message for a checkpoint commit.
// stateHash is printed as-is (typically hex), since a GraphState digest is
// a cryptographic hash sized independently of the object store's own
// commit/blob hash width.
func CheckpointMessage(graph, stateHash string, frontierOID, indexOID objstore.Hash, schema int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s:%s\n", Product, KindCheckpoint)
	fmt.Fprintf(&b, "%s: %s\n", trailerKind, KindCheckpoint)
	fmt.Fprintf(&b, "%s: %s\n", trailerGraph, graph)
	fmt.Fprintf(&b, "%s: %s\n", trailerStateHash, stateHash)
	fmt.Fprintf(&b, "%s: %s\n", trailerFrontierOID, frontierOID)
	fmt.Fprintf(&b, "%s: %s\n", trailerIndexOID, indexOID)
	fmt.Fprintf(&b, "%s: %d\n", trailerSchema, schema)

	return b.String()
}

// AnchorMessage builds the commit message for a coverage anchor commit.
func AnchorMessage(graph string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s:%s\n", Product, KindAnchor)
	fmt.Fprintf(&b, "%s: %s\n", trailerKind, KindAnchor)
	fmt.Fprintf(&b, "%s: %s\n", trailerGraph, graph)

	return b.String()
}

// Trailers is the parsed key/value body of a commit message, plus its
// first-line kind. Unknown trailer lines are kept verbatim (under their
// literal key) rather than rejected, so a newer writer's forward-compatible
// trailers never break an older reader's parse.
type Trailers struct {
	Kind   Kind
	Fields map[string]string
}

// ParseMessage parses a commit message produced by PatchMessage,
// CheckpointMessage, or AnchorMessage. ok is false if the first line is not
// a recognised "<product>:<kind>" marker.
func ParseMessage(message string) (t Trailers, ok bool) {
	lines := strings.Split(strings.TrimRight(message, "\n"), "\n")
	if len(lines) == 0 {
		return Trailers{}, false
	}

	head := strings.SplitN(lines[0], ":", 2)
	if len(head) != 2 || head[0] != Product {
		return Trailers{}, false
	}

	t.Kind = Kind(head[1])

	switch t.Kind {
	case KindPatch, KindCheckpoint, KindAnchor:
	default:
		return Trailers{}, false
	}

	t.Fields = make(map[string]string, len(lines)-1)

	for _, line := range lines[1:] {
		if line == "" {
			continue
		}

		kv := strings.SplitN(line, ": ", 2)
		if len(kv) != 2 {
			continue
		}

		t.Fields[kv[0]] = kv[1]
	}

	return t, true
}

// Graph returns the warp-graph trailer value.
func (t Trailers) Graph() string { return t.Fields[trailerGraph] }

// Writer returns the warp-writer trailer value (patch commits only).
func (t Trailers) Writer() string { return t.Fields[trailerWriter] }

// PatchOID returns the warp-patch trailer value as a Hash (patch commits
// only).
func (t Trailers) PatchOID() objstore.Hash { return objstore.NewHash(t.Fields[trailerPatch]) }

// Lamport returns the warp-lamport trailer value (patch commits only).
func (t Trailers) Lamport() (uint64, error) {
	v, err := strconv.ParseUint(t.Fields[trailerLamport], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("reflayout: parse lamport trailer: %w", err)
	}

	return v, nil
}

// StateHash returns the warp-state-hash trailer value verbatim (checkpoint
// commits only).
func (t Trailers) StateHash() string { return t.Fields[trailerStateHash] }

// FrontierOID returns the warp-frontier-oid trailer value (checkpoint
// commits only).
func (t Trailers) FrontierOID() objstore.Hash { return objstore.NewHash(t.Fields[trailerFrontierOID]) }

// IndexOID returns the warp-index-oid trailer value (checkpoint commits
// only).
func (t Trailers) IndexOID() objstore.Hash { return objstore.NewHash(t.Fields[trailerIndexOID]) }

// Schema returns the warp-schema trailer value (checkpoint commits only).
func (t Trailers) Schema() (int, error) {
	v, err := strconv.Atoi(t.Fields[trailerSchema])
	if err != nil {
		return 0, fmt.Errorf("reflayout: parse schema trailer: %w", err)
	}

	return v, nil
}

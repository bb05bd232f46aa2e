// Package reflayout is a pure function library mapping (graph, writer,
// purpose) to the reference names and commit message trailers warp stores
// its objects under, and back. Nothing here touches an objstore.Store;
// every function is a string transform, grounded the way the teacher's
// gitlib keeps ref-name parsing (branch/tag prefix stripping) free of any
// repository handle.
package reflayout

import (
	"fmt"
	"strings"
)

// Product is the reference and trailer namespace every warp graph lives
// under: refs/warp/<graph>/...
const Product = "warp"

const maxNameLength = 64

// ValidateWriter reports whether id is a legal writer identifier: 1-64
// printable ASCII bytes, excluding '/', whitespace, NUL, and "..".
func ValidateWriter(id string) error {
	if err := validateCommon(id); err != nil {
		return err
	}

	if strings.Contains(id, "/") {
		return fmt.Errorf("%w: writer id %q contains '/'", ErrInvalidName, id)
	}

	return nil
}

// ValidateGraph reports whether name is a legal graph identifier: the same
// rules as a writer id, except '/' is permitted as a nesting separator.
func ValidateGraph(name string) error {
	return validateCommon(name)
}

func validateCommon(s string) error {
	if s == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	}

	if len(s) > maxNameLength {
		return fmt.Errorf("%w: %q exceeds %d bytes", ErrInvalidName, s, maxNameLength)
	}

	if strings.Contains(s, "..") {
		return fmt.Errorf("%w: %q contains path-traversal sequence", ErrInvalidName, s)
	}

	if strings.Contains(s, ";") || strings.ContainsRune(s, 0) {
		return fmt.Errorf("%w: %q contains a forbidden character", ErrInvalidName, s)
	}

	for _, r := range s {
		if r <= ' ' || r == 0x7f {
			return fmt.Errorf("%w: %q contains whitespace or control bytes", ErrInvalidName, s)
		}

		if r > 0x7e {
			return fmt.Errorf("%w: %q is not printable ASCII", ErrInvalidName, s)
		}
	}

	return nil
}

func graphPrefix(graph string) string {
	return fmt.Sprintf("refs/%s/%s/", Product, graph)
}

// WriterRef builds the reference name for a writer's tip.
func WriterRef(graph, writer string) string {
	return graphPrefix(graph) + "writers/" + writer
}

// WritersPrefix returns the prefix under which every writer tip reference
// for graph lives, for use with Store.ListRefs.
func WritersPrefix(graph string) string {
	return graphPrefix(graph) + "writers/"
}

// CheckpointHeadRef builds the reference name for a graph's checkpoint head.
func CheckpointHeadRef(graph string) string {
	return graphPrefix(graph) + "checkpoints/head"
}

// CoverageHeadRef builds the reference name for a graph's coverage anchor
// head.
func CoverageHeadRef(graph string) string {
	return graphPrefix(graph) + "coverage/head"
}

// ActiveCursorRef builds the reference name for a graph's active seek
// cursor.
func ActiveCursorRef(graph string) string {
	return graphPrefix(graph) + "cursor/active"
}

// SavedCursorRef builds the reference name for a named saved cursor.
func SavedCursorRef(graph, name string) string {
	return graphPrefix(graph) + "cursor/saved/" + name
}

// SeekCacheRef builds the reference name for a graph's seek cache blob.
func SeekCacheRef(graph string) string {
	return graphPrefix(graph) + "seek-cache"
}

// ParseWriterRef extracts the writer id from ref if it names a writer tip
// under graph's namespace, and ok=false otherwise. Round-trips with
// WriterRef: ParseWriterRef(graph, WriterRef(graph, w)) == (w, true).
func ParseWriterRef(graph, ref string) (writer string, ok bool) {
	prefix := WritersPrefix(graph)
	if !strings.HasPrefix(ref, prefix) {
		return "", false
	}

	writer = strings.TrimPrefix(ref, prefix)
	if writer == "" || strings.Contains(writer, "/") {
		return "", false
	}

	return writer, true
}

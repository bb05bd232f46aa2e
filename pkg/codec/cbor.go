// Package codec provides the canonical, content-addressable encoding every
// warp object is written with: deterministic CBOR (sorted map keys, no
// floats, minimal integer widths) optionally lz4-compressed before it is
// handed to an objstore.Store as a blob. Byte-identical values must always
// produce byte-identical blobs, since blob hashes are how patches, state
// snapshots, and seek-cache entries are addressed and deduplicated.
package codec

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var encMode = mustCanonicalEncMode()

var decMode = mustDecMode()

func mustCanonicalEncMode() cbor.EncMode {
	opts := cbor.CanonicalEncOptions()
	// CanonicalEncOptions already sorts map keys (RFC 8949 §4.2.1) and picks
	// the minimal integer/float width; warp never encodes floats, so the
	// default ShortestFloat mode is never exercised but kept for parity with
	// RFC-compliant canonical CBOR.

	mode, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("codec: build canonical encode mode: %v", err))
	}

	return mode
}

func mustDecMode() cbor.DecMode {
	opts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthForbidden,
		TimeTag:     cbor.DecTagIgnored,
	}

	mode, err := opts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("codec: build decode mode: %v", err))
	}

	return mode
}

// Marshal encodes v as canonical CBOR. Two calls with equal v (by deep
// value, field order irrelevant for maps) always produce identical bytes.
func Marshal(v any) ([]byte, error) {
	data, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("codec: marshal: %w", err)
	}

	return data, nil
}

// Unmarshal decodes canonical CBOR into v, which must be a pointer.
func Unmarshal(data []byte, v any) error {
	if err := decMode.Unmarshal(data, v); err != nil {
		return fmt.Errorf("codec: unmarshal: %w", err)
	}

	return nil
}

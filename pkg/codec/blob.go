package codec

import (
	"errors"
	"fmt"
)

// Framing tags. The first byte of every blob codec.EncodeBlob produces
// names which of the two representations follows, so DecodeBlob never
// needs a caller-supplied hint.
const (
	tagRaw byte = iota
	tagLZ4
)

// CompressionThreshold is the minimum canonical-CBOR payload size, in
// bytes, at which EncodeBlob switches to LZ4 framing. Below it the
// compression header would cost more than it saves, and checkpoint/state
// blobs under the threshold are already small enough not to matter for
// storage or transfer.
const CompressionThreshold = 256

var (
	errIncompressible = errors.New("lz4 block reports zero bytes written")
	errCorruptHeader  = errors.New("corrupt varint length header")
	errSizeMismatch   = errors.New("decompressed size does not match header")
	errUnknownTag     = errors.New("unknown blob framing tag")
)

// EncodeBlob canonically encodes v and, if the result is at least
// CompressionThreshold bytes, lz4-compresses it. The returned bytes are
// ready to hand to objstore.Store.WriteBlob.
func EncodeBlob(v any) ([]byte, error) {
	raw, err := Marshal(v)
	if err != nil {
		return nil, err
	}

	if len(raw) < CompressionThreshold {
		return append([]byte{tagRaw}, raw...), nil
	}

	compressed, err := compressBlock(raw)
	if err != nil {
		if errors.Is(err, errIncompressible) {
			return append([]byte{tagRaw}, raw...), nil
		}

		return nil, err
	}

	return append([]byte{tagLZ4}, compressed...), nil
}

// DecodeBlob reverses EncodeBlob and unmarshals the result into v.
func DecodeBlob(blob []byte, v any) error {
	if len(blob) == 0 {
		return fmt.Errorf("codec: decode blob: %w", errCorruptHeader)
	}

	tag, body := blob[0], blob[1:]

	switch tag {
	case tagRaw:
		return Unmarshal(body, v)
	case tagLZ4:
		raw, err := decompressBlock(body, -1)
		if err != nil {
			return err
		}

		return Unmarshal(raw, v)
	default:
		return fmt.Errorf("codec: decode blob: %w", errUnknownTag)
	}
}

package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// compressBlock lz4-compresses data, prefixing the result with the varint
// length of the uncompressed input, since lz4's block API (unlike its
// io.Writer frame wrapper) needs the destination buffer preallocated to the
// exact decompressed size. Grounded on the teacher's CompressUInt32Slice,
// which calls the same CompressBlock/CompressBlockBound pair directly
// instead of going through lz4.Writer.
func compressBlock(data []byte) ([]byte, error) {
	bound := lz4.CompressBlockBound(len(data))
	out := make([]byte, binary.MaxVarintLen64+bound)

	n := binary.PutUvarint(out, uint64(len(data)))

	var compressor lz4.Compressor

	written, err := compressor.CompressBlock(data, out[n:])
	if err != nil {
		return nil, fmt.Errorf("codec: lz4 compress: %w", err)
	}

	if written == 0 {
		// Incompressible input: CompressBlock reports 0 bytes written rather
		// than an error. Nothing to do but fail the call; callers fall back
		// to storing the data uncompressed.
		return nil, errIncompressible
	}

	return out[:n+written], nil
}

func decompressBlock(data []byte, originalSize int) ([]byte, error) {
	size, n := binary.Uvarint(data)
	if n <= 0 {
		return nil, fmt.Errorf("codec: lz4 decompress: %w", errCorruptHeader)
	}

	if originalSize >= 0 && int(size) != originalSize {
		return nil, fmt.Errorf("codec: lz4 decompress: %w", errSizeMismatch)
	}

	out := make([]byte, size)

	written, err := lz4.UncompressBlock(data[n:], out)
	if err != nil {
		return nil, fmt.Errorf("codec: lz4 decompress: %w", err)
	}

	return out[:written], nil
}

package codec

import (
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// LZ4 is LZ4 block compression. It is faster than LZF on large pixel sizes
// at a similar ratio.
type LZ4 struct{}

// Name returns "lz4".
func (LZ4) Name() string { return "lz4" }

// Flag returns FlagLZ4.
func (LZ4) Flag() Flag { return FlagLZ4 }

// CompressBlock implements Codec.
func (LZ4) CompressBlock(dst, src []byte) int {
	n, err := lz4.CompressBlock(src, dst, nil)
	if err != nil {
		// Destination too small: treat as incompressible.
		return 0
	}
	return n
}

// DecompressBlock implements Codec.
func (LZ4) DecompressBlock(dst, src []byte) (int, error) {
	n, err := lz4.UncompressBlock(src, dst)
	if err != nil {
		return 0, fmt.Errorf("%w: lz4: %w", ErrCorrupt, err)
	}
	return n, nil
}

package codec

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
		zstd.WithEncoderConcurrency(1),
	)
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// Zstd is Zstandard compression. It gives the best ratio and is the usual
// choice for the background compressor when swap IO is the bottleneck.
type Zstd struct{}

// Name returns "zstd".
func (Zstd) Name() string { return "zstd" }

// Flag returns FlagZstd.
func (Zstd) Flag() Flag { return FlagZstd }

// CompressBlock implements Codec.
func (Zstd) CompressBlock(dst, src []byte) int {
	enc := getZstdEncoder()
	defer putZstdEncoder(enc)

	out := enc.EncodeAll(src, nil)
	if len(out) > len(dst) {
		return 0
	}
	return copy(dst, out)
}

// DecompressBlock implements Codec.
func (Zstd) DecompressBlock(dst, src []byte) (int, error) {
	dec := getZstdDecoder()
	defer putZstdDecoder(dec)

	out, err := dec.DecodeAll(src, dst[:0])
	if err != nil {
		return 0, fmt.Errorf("%w: zstd: %w", ErrCorrupt, err)
	}
	if len(out) > len(dst) {
		return 0, fmt.Errorf("%w: zstd output of %d bytes overflows capacity %d", ErrCorrupt, len(out), len(dst))
	}
	if len(out) > 0 && &out[0] != &dst[0] {
		copy(dst, out)
	}
	return len(out), nil
}

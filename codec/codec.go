// Package codec implements the byte format used for swapped tile data.
//
// Every swapped tile is stored as a self-describing frame:
//
//	[4 bytes little-endian uncompressed length][1 byte flag][payload]
//
// The flag selects how the payload must be decoded. Flag 0 is always a
// verbatim copy of the input; it is written whenever a codec fails to make
// the payload strictly smaller than the input, so decoding never depends on
// a codec having been useful.
//
// Treat the flag values as a breaking-change boundary: frames written by one
// process are only ever read back by the same process, but the values are
// still never reused for a different algorithm.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Flag identifies the payload encoding of a frame.
type Flag uint8

const (
	// FlagRaw stores the payload unmodified.
	FlagRaw Flag = 0
	// FlagLZF is the native LZ-style byte compressor.
	FlagLZF Flag = 1
	// FlagLZ4 is LZ4 block compression.
	FlagLZ4 Flag = 2
	// FlagZstd is Zstandard compression.
	FlagZstd Flag = 3
)

// HeaderSize is the size of the frame header in bytes.
const HeaderSize = 5

var (
	// ErrCorrupt is returned when a frame cannot be decoded: a back-reference
	// points before the start of the output, the output would overflow the
	// destination, or the header is malformed.
	ErrCorrupt = errors.New("codec: corrupt frame")

	// ErrUnknownFlag is returned for frames with an unsupported flag.
	ErrUnknownFlag = errors.New("codec: unknown frame flag")
)

// Codec is a block compressor.
// Implementations must be safe for concurrent use.
type Codec interface {
	// Name returns the stable name of the codec.
	Name() string

	// Flag returns the frame flag written for payloads produced by this codec.
	Flag() Flag

	// CompressBlock compresses src into dst and returns the number of bytes
	// written. It returns 0 if the result does not fit into len(dst).
	CompressBlock(dst, src []byte) int

	// DecompressBlock decompresses src into dst and returns the number of
	// bytes produced.
	DecompressBlock(dst, src []byte) (int, error)
}

// Default is the codec used when none is configured.
var Default Codec = LZF{}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "lzf", "":
		return LZF{}, true
	case "lz4":
		return LZ4{}, true
	case "zstd":
		return Zstd{}, true
	default:
		return nil, false
	}
}

// ByFlag returns the codec that decodes payloads carrying flag.
func ByFlag(flag Flag) (Codec, bool) {
	switch flag {
	case FlagLZF:
		return LZF{}, true
	case FlagLZ4:
		return LZ4{}, true
	case FlagZstd:
		return Zstd{}, true
	default:
		return nil, false
	}
}

// Names lists the built-in codec names.
func Names() []string {
	return []string{"lzf", "lz4", "zstd"}
}

// Compress encodes src with the default codec.
func Compress(src []byte) []byte {
	return Encode(Default, src)
}

// Encode builds a frame for src using c. If c is nil or cannot make the
// payload strictly smaller than src, the frame stores src verbatim.
func Encode(c Codec, src []byte) []byte {
	out := make([]byte, HeaderSize+len(src))
	binary.LittleEndian.PutUint32(out[0:], uint32(len(src)))

	if c != nil && len(src) > 1 {
		if n := c.CompressBlock(out[HeaderSize:HeaderSize+len(src)-1], src); n > 0 && n < len(src) {
			out[4] = byte(c.Flag())
			return out[:HeaderSize+n]
		}
	}

	out[4] = byte(FlagRaw)
	copy(out[HeaderSize:], src)
	return out
}

// Header returns the uncompressed length and flag of a frame.
func Header(frame []byte) (int, Flag, error) {
	if len(frame) < HeaderSize {
		return 0, 0, fmt.Errorf("%w: frame shorter than header (%d bytes)", ErrCorrupt, len(frame))
	}
	return int(binary.LittleEndian.Uint32(frame[0:])), Flag(frame[4]), nil
}

// Decompress decodes frame into dst and returns the number of bytes
// produced, which always equals the length recorded in the header.
// On any failure it returns 0 and an error wrapping ErrCorrupt or
// ErrUnknownFlag.
func Decompress(frame, dst []byte) (int, error) {
	expected, flag, err := Header(frame)
	if err != nil {
		return 0, err
	}
	if expected > len(dst) {
		return 0, fmt.Errorf("%w: output of %d bytes overflows capacity %d", ErrCorrupt, expected, len(dst))
	}

	payload := frame[HeaderSize:]
	if flag == FlagRaw {
		if len(payload) < expected {
			return 0, fmt.Errorf("%w: raw payload truncated (%d < %d)", ErrCorrupt, len(payload), expected)
		}
		return copy(dst[:expected], payload[:expected]), nil
	}

	c, ok := ByFlag(flag)
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownFlag, flag)
	}

	n, err := c.DecompressBlock(dst[:expected], payload)
	if err != nil {
		return 0, err
	}
	if n != expected {
		return 0, fmt.Errorf("%w: %s produced %d bytes, want %d", ErrCorrupt, c.Name(), n, expected)
	}
	return n, nil
}

package mem

import (
	"unsafe"
)

// Alignment is the start alignment of tile buffers (one cache line).
const Alignment = 64

// AllocAligned allocates a byte slice of the given size whose first byte sits
// on a 64-byte boundary. The slice keeps the over-allocated array alive.
func AllocAligned(size int) []byte {
	if size <= 0 {
		return nil
	}

	buf := make([]byte, size+Alignment)

	addr := uintptr(unsafe.Pointer(&buf[0])) //nolint:gosec // unsafe is required for memory alignment
	offset := int((Alignment - (addr & (Alignment - 1))) & (Alignment - 1))

	return buf[offset : offset+size : offset+size]
}

// IsAligned reports whether b starts on a 64-byte boundary.
func IsAligned(b []byte) bool {
	if len(b) == 0 {
		return true
	}
	return uintptr(unsafe.Pointer(&b[0]))&(Alignment-1) == 0 //nolint:gosec // unsafe is required for memory alignment
}

// AlignUp rounds n up to a multiple of align, which must be a power of two.
func AlignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}

// FillPattern tiles pattern across dst. A trailing partial copy is written
// when len(dst) is not a multiple of len(pattern).
func FillPattern(dst, pattern []byte) {
	if len(dst) == 0 {
		return
	}
	if len(pattern) == 0 {
		clear(dst)
		return
	}

	n := copy(dst, pattern)
	for n < len(dst) {
		n += copy(dst[n:], dst[:n])
	}
}

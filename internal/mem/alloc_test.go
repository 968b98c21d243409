package mem

import (
	"bytes"
	"fmt"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func TestAllocAligned(t *testing.T) {
	sizes := []int{1, 10, 63, 64, 65, 100, 4096, 64 * 64 * 4}

	for _, size := range sizes {
		buf := AllocAligned(size)
		assert.Len(t, buf, size)
		assert.Equal(t, size, cap(buf))

		addr := uintptr(unsafe.Pointer(&buf[0]))
		assert.Equal(t, uintptr(0), addr%Alignment, "Address %d should be aligned to %d for size %d", addr, Alignment, size)
		assert.True(t, IsAligned(buf))
	}

	assert.Nil(t, AllocAligned(0))
	assert.Nil(t, AllocAligned(-1))
}

func TestAlignUp(t *testing.T) {
	assert.Equal(t, 0, AlignUp(0, 512))
	assert.Equal(t, 512, AlignUp(1, 512))
	assert.Equal(t, 512, AlignUp(512, 512))
	assert.Equal(t, 1024, AlignUp(513, 512))
	assert.Equal(t, 64, AlignUp(33, 64))
}

func TestFillPattern(t *testing.T) {
	for _, pattern := range [][]byte{{7}, {1, 2, 3}, {0xde, 0xad, 0xbe, 0xef}} {
		for _, n := range []int{0, 1, 5, 64, 4096, 4097} {
			dst := make([]byte, n)
			FillPattern(dst, pattern)

			want := bytes.Repeat(pattern, n/len(pattern)+1)[:n]
			assert.Equal(t, want, dst, "pattern %v len %d", pattern, n)
		}
	}

	dst := []byte{1, 2, 3}
	FillPattern(dst, nil)
	assert.Equal(t, []byte{0, 0, 0}, dst)
}

func BenchmarkAllocAligned(b *testing.B) {
	sizes := []int{4096, 64 * 64 * 4, 64 * 64 * 16}
	for _, size := range sizes {
		b.Run(fmt.Sprintf("size=%d", size), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = AllocAligned(size)
			}
		})
	}
}

func BenchmarkFillPattern(b *testing.B) {
	dst := make([]byte, 64*64*4)
	pattern := []byte{1, 2, 3, 4}
	b.SetBytes(int64(len(dst)))
	for i := 0; i < b.N; i++ {
		FillPattern(dst, pattern)
	}
}

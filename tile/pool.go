package tile

import (
	"github.com/hupe1980/tilestore/internal/mem"
	"github.com/hupe1980/tilestore/internal/mmap"
)

const (
	// MaxPooledPixelSize is the largest pixel size served from slab pools.
	MaxPooledPixelSize = 10

	slabTiles = 64
)

// allocator hands out tile buffers of one size.
type allocator interface {
	get() []byte
	put(buf []byte)
	outstanding() int
	close()
}

func newAllocator(pixelSize int) allocator {
	size := Width * Height * pixelSize
	if pixelSize <= MaxPooledPixelSize {
		return &slabPool{bufSize: size}
	}
	return &heapAllocator{bufSize: size}
}

// slabPool carves equal buffers out of large slabs and recycles them.
// Slabs come from anonymous mappings, or the heap when mapping fails.
type slabPool struct {
	bufSize int
	free    [][]byte
	slabs   []*mmap.Mapping
	out     int
}

func (p *slabPool) get() []byte {
	if len(p.free) == 0 {
		p.grow()
	}
	buf := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	p.out++
	return buf
}

func (p *slabPool) grow() {
	var slab []byte
	if m, err := mmap.Anon(p.bufSize * slabTiles); err == nil {
		p.slabs = append(p.slabs, m)
		slab = m.Bytes()
	} else {
		slab = mem.AllocAligned(p.bufSize * slabTiles)
	}

	for i := slabTiles - 1; i >= 0; i-- {
		off := i * p.bufSize
		p.free = append(p.free, slab[off:off+p.bufSize:off+p.bufSize])
	}
}

func (p *slabPool) put(buf []byte) {
	p.free = append(p.free, buf)
	p.out--
}

func (p *slabPool) outstanding() int { return p.out }

// close unmaps the slabs unless buffers are still handed out, in which case
// the mappings live until the process exits.
func (p *slabPool) close() {
	if p.out > 0 {
		return
	}
	for _, m := range p.slabs {
		_ = m.Close()
	}
	p.slabs = nil
	p.free = nil
}

// heapAllocator allocates every buffer individually and lets the GC free it.
type heapAllocator struct {
	bufSize int
	out     int
}

func (a *heapAllocator) get() []byte {
	a.out++
	return mem.AllocAligned(a.bufSize)
}

func (a *heapAllocator) put([]byte) { a.out-- }

func (a *heapAllocator) outstanding() int { return a.out }

func (a *heapAllocator) close() {}

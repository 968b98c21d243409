package tile

import (
	"fmt"
	"sync/atomic"

	"github.com/hupe1980/tilestore/internal/mem"
)

const (
	// Width is the tile width in pixels.
	Width = 64
	// Height is the tile height in pixels.
	Height = 64
	// Pixels is the number of pixels in a tile.
	Pixels = Width * Height
)

// Tile is a 64x64 block of opaque pixels. Its buffer may only be touched
// while the caller holds a reader.
type Tile struct {
	mgr       *Manager
	col, row  int
	pixelSize int

	readers atomic.Int32

	// data is nil while the tile is swapped. It only changes under the
	// manager lock with no readers present.
	data []byte
}

// NewTile allocates a tile at (col,row) filled with defaultPixel and
// registers it.
func (m *Manager) NewTile(pixelSize, col, row int, defaultPixel []byte) (*Tile, error) {
	if pixelSize <= 0 || len(defaultPixel) != pixelSize {
		return nil, fmt.Errorf("%w: pixel size %d with %d-byte default pixel",
			ErrPixelSize, pixelSize, len(defaultPixel))
	}
	if m.isClosed() {
		return nil, ErrClosed
	}

	buf := m.RequestBuffer(pixelSize)
	mem.FillPattern(buf, defaultPixel)

	t := &Tile{mgr: m, col: col, row: row, pixelSize: pixelSize, data: buf}
	m.Register(t)
	return t, nil
}

// Copy clones t's bytes into a new registered tile at (col,row). A swapped
// source is faulted in first.
func (t *Tile) Copy(col, row int) (*Tile, error) {
	g, err := t.Acquire()
	if err != nil {
		return nil, err
	}
	defer g.Release()

	buf := t.mgr.RequestBuffer(t.pixelSize)
	copy(buf, g.Data())

	c := &Tile{mgr: t.mgr, col: col, row: row, pixelSize: t.pixelSize, data: buf}
	t.mgr.Register(c)
	return c, nil
}

// Col returns the tile column.
func (t *Tile) Col() int { return t.col }

// Row returns the tile row.
func (t *Tile) Row() int { return t.row }

// PixelSize returns the number of bytes per pixel.
func (t *Tile) PixelSize() int { return t.pixelSize }

// Readers returns the current reader count.
func (t *Tile) Readers() int { return int(t.readers.Load()) }

// Manager returns the manager that owns t.
func (t *Tile) Manager() *Manager { return t.mgr }

// Resident reports whether t's bytes are in memory.
func (t *Tile) Resident() bool { return t.mgr.isResident(t) }

// AddReader pins t in memory, faulting it in on the first reader.
func (t *Tile) AddReader() error {
	return t.mgr.addReader(t)
}

// RemoveReader unpins t. The last reader makes it eligible for eviction.
func (t *Tile) RemoveReader() {
	t.mgr.removeReader(t)
}

// Data returns the tile buffer. It panics when t has no readers.
func (t *Tile) Data() []byte {
	if t.readers.Load() <= 0 {
		panic(fmt.Sprintf("tile: (%d,%d) data accessed without a reader", t.col, t.row))
	}
	return t.data
}

// Offset returns the byte offset of pixel (x,y) inside the buffer.
func (t *Tile) Offset(x, y int) int {
	return (y*Width + x) * t.pixelSize
}

// Fill sets every pixel to pixel. The caller must hold a reader.
func (t *Tile) Fill(pixel []byte) error {
	if len(pixel) != t.pixelSize {
		return fmt.Errorf("%w: %d-byte pixel for pixel size %d", ErrPixelSize, len(pixel), t.pixelSize)
	}
	mem.FillPattern(t.Data(), pixel)
	return nil
}

// Destroy removes t from the compressor queue and the manager and releases
// its buffer. Destroying a tile with readers panics.
func (t *Tile) Destroy() {
	if t.readers.Load() > 0 {
		panic(fmt.Sprintf("tile: (%d,%d) destroyed with %d readers", t.col, t.row, t.readers.Load()))
	}

	m := t.mgr
	if c := m.compressorRef(); c != nil {
		c.Dequeue(t)
	}
	m.Deregister(t)

	if t.data != nil {
		m.ReleaseBuffer(t.data, t.pixelSize)
		t.data = nil
	}
}

func (t *Tile) String() string {
	return fmt.Sprintf("tile(%d,%d)", t.col, t.row)
}

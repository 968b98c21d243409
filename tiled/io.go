package tiled

import (
	"fmt"

	"github.com/hupe1980/tilestore/internal/mem"
	"github.com/hupe1980/tilestore/tile"
)

// SetPixel writes one pixel at (x,y).
func (d *Directory) SetPixel(x, y int, pixel []byte) error {
	return d.WriteBytes(R(x, y, 1, 1), pixel, 0)
}

// Pixel returns a copy of the pixel at (x,y).
func (d *Directory) Pixel(x, y int) ([]byte, error) {
	buf := make([]byte, d.pixelSize)
	if err := d.ReadBytes(R(x, y, 1, 1), buf, 0); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadBytes copies the pixels of r into dst, one row every stride bytes.
// A zero stride means rows are packed. Empty rectangles are a no-op.
func (d *Directory) ReadBytes(r Rect, dst []byte, stride int) error {
	if r.Empty() {
		return nil
	}
	stride, err := d.checkBuffer(r, len(dst), stride)
	if err != nil {
		return err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	return d.readLocked(r, dst, stride, d.liveSourceLocked)
}

// WriteBytes copies src into the pixels of r, reading one row every stride
// bytes. Every tile touched goes through the same memento bookkeeping as
// GetTile with write access.
func (d *Directory) WriteBytes(r Rect, src []byte, stride int) error {
	if r.Empty() {
		return nil
	}
	stride, err := d.checkBuffer(r, len(src), stride)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	return d.writeLocked(r, src, stride)
}

// ReadOldBytes is ReadBytes against the state the directory had when the
// open memento was taken. Without an open memento it reads current data.
func (d *Directory) ReadOldBytes(r Rect, dst []byte, stride int) error {
	if r.Empty() {
		return nil
	}
	stride, err := d.checkBuffer(r, len(dst), stride)
	if err != nil {
		return err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	return d.readLocked(r, dst, stride, d.oldSourceLocked)
}

// ReadPlanarBytes reads r and splits it into one plane per channel. The
// channel sizes must add up to the pixel size.
func (d *Directory) ReadPlanarBytes(channelSizes []int, r Rect) ([][]byte, error) {
	if err := d.checkChannels(channelSizes); err != nil {
		return nil, err
	}
	interleaved := make([]byte, r.Area()*d.pixelSize)
	if err := d.ReadBytes(r, interleaved, 0); err != nil {
		return nil, err
	}

	planes := make([][]byte, len(channelSizes))
	for i, cs := range channelSizes {
		planes[i] = make([]byte, r.Area()*cs)
	}
	deinterleave(interleaved, planes, channelSizes, d.pixelSize)
	return planes, nil
}

// WritePlanarBytes writes one plane per channel into r. A nil plane leaves
// that channel untouched.
func (d *Directory) WritePlanarBytes(planes [][]byte, channelSizes []int, r Rect) error {
	if err := d.checkChannels(channelSizes); err != nil {
		return err
	}
	if len(planes) != len(channelSizes) {
		return fmt.Errorf("%w: %d planes for %d channels", ErrPixelSizeMismatch, len(planes), len(channelSizes))
	}
	if r.Empty() {
		return nil
	}
	partial := false
	for i, p := range planes {
		if p == nil {
			partial = true
			continue
		}
		if len(p) < r.Area()*channelSizes[i] {
			return fmt.Errorf("%w: plane %d has %d bytes, need %d", ErrShortBuffer, i, len(p), r.Area()*channelSizes[i])
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}

	stride := r.W * d.pixelSize
	interleaved := make([]byte, r.Area()*d.pixelSize)
	if partial {
		if err := d.readLocked(r, interleaved, stride, d.liveSourceLocked); err != nil {
			return err
		}
	}
	interleave(planes, interleaved, channelSizes, d.pixelSize)
	return d.writeLocked(r, interleaved, stride)
}

func (d *Directory) checkBuffer(r Rect, n, stride int) (int, error) {
	row := r.W * d.pixelSize
	if stride == 0 {
		stride = row
	}
	if stride < row {
		return 0, fmt.Errorf("%w: stride %d shorter than row of %d bytes", ErrShortBuffer, stride, row)
	}
	if need := (r.H-1)*stride + row; n < need {
		return 0, fmt.Errorf("%w: have %d bytes, need %d for %s", ErrShortBuffer, n, need, r)
	}
	return stride, nil
}

func (d *Directory) checkChannels(sizes []int) error {
	sum := 0
	for _, cs := range sizes {
		if cs <= 0 {
			return fmt.Errorf("%w: channel size %d", ErrPixelSizeMismatch, cs)
		}
		sum += cs
	}
	if sum != d.pixelSize {
		return fmt.Errorf("%w: channels add up to %d, pixel size is %d", ErrPixelSizeMismatch, sum, d.pixelSize)
	}
	return nil
}

// source resolves a coordinate to a tile, or to a pixel when no tile
// exists there.
type source func(Coord) (*tile.Tile, []byte)

func (d *Directory) liveSourceLocked(c Coord) (*tile.Tile, []byte) {
	if t, ok := d.tiles[c]; ok {
		return t, nil
	}
	return nil, d.defPixel
}

// oldSourceLocked resolves c against the open memento: the recorded copy
// if c was modified since, the memento's default pixel if c did not exist
// then, otherwise the live tile.
func (d *Directory) oldSourceLocked(c Coord) (*tile.Tile, []byte) {
	m := d.memento
	if m == nil {
		return d.liveSourceLocked(c)
	}
	if t, ok := m.undo[c]; ok {
		return t, nil
	}
	if _, ok := m.created[c]; ok {
		return nil, m.defPixel
	}
	if t, ok := d.tiles[c]; ok {
		return t, nil
	}
	return nil, m.defPixel
}

func (d *Directory) readLocked(r Rect, dst []byte, stride int, src source) error {
	return forEachTile(r, func(c Coord, part Rect) error {
		out := dst[d.bufOffset(r, part, stride):]
		line := part.W * d.pixelSize

		t, pixel := src(c)
		if t == nil {
			for i := 0; i < part.H; i++ {
				mem.FillPattern(out[i*stride:i*stride+line], pixel)
			}
			return nil
		}

		g, err := t.Acquire()
		if err != nil {
			return err
		}
		defer g.Release()
		copyRows(out, stride, g.Data()[d.tileOffset(c, part):], d.rowStride(), line, part.H)
		return nil
	})
}

func (d *Directory) writeLocked(r Rect, src []byte, stride int) error {
	return forEachTile(r, func(c Coord, part Rect) error {
		t, err := d.writeTileLocked(c)
		if err != nil {
			return err
		}
		g, err := t.Acquire()
		if err != nil {
			return err
		}
		defer g.Release()
		copyRows(g.Data()[d.tileOffset(c, part):], d.rowStride(), src[d.bufOffset(r, part, stride):], stride, part.W*d.pixelSize, part.H)
		return nil
	})
}

func (d *Directory) rowStride() int { return tile.Width * d.pixelSize }

// tileOffset is the byte offset of part's top-left pixel inside tile c.
func (d *Directory) tileOffset(c Coord, part Rect) int {
	return ((part.Y-c.Row*tile.Height)*tile.Width + (part.X - c.Col*tile.Width)) * d.pixelSize
}

// bufOffset is the byte offset of part's top-left pixel inside a caller
// buffer laid out for r.
func (d *Directory) bufOffset(r, part Rect, stride int) int {
	return (part.Y-r.Y)*stride + (part.X-r.X)*d.pixelSize
}

func copyRows(dst []byte, dstStride int, src []byte, srcStride int, lineSize, rows int) {
	for i := 0; i < rows; i++ {
		copy(dst[i*dstStride:i*dstStride+lineSize], src[i*srcStride:i*srcStride+lineSize])
	}
}

func deinterleave(src []byte, planes [][]byte, sizes []int, pixelSize int) {
	for p := 0; p*pixelSize < len(src); p++ {
		px := src[p*pixelSize:]
		off := 0
		for i, cs := range sizes {
			copy(planes[i][p*cs:(p+1)*cs], px[off:off+cs])
			off += cs
		}
	}
}

func interleave(planes [][]byte, dst []byte, sizes []int, pixelSize int) {
	for p := 0; p*pixelSize < len(dst); p++ {
		px := dst[p*pixelSize:]
		off := 0
		for i, cs := range sizes {
			if planes[i] != nil {
				copy(px[off:off+cs], planes[i][p*cs:(p+1)*cs])
			}
			off += cs
		}
	}
}

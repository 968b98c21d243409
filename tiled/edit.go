package tiled

import (
	"bytes"
	"fmt"

	"github.com/hupe1980/tilestore/internal/mem"
	"github.com/hupe1980/tilestore/tile"
)

// Clear fills r with pixel. Whole tiles cleared to the default pixel are
// dropped instead of being filled.
func (d *Directory) Clear(r Rect, pixel []byte) error {
	if len(pixel) != d.pixelSize {
		return fmt.Errorf("%w: %d-byte pixel for pixel size %d", ErrPixelSizeMismatch, len(pixel), d.pixelSize)
	}
	if r.Empty() {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}

	isDefault := bytes.Equal(pixel, d.defPixel)
	removed := false
	defer func() {
		if removed {
			d.recalculateExtentLocked()
		}
	}()

	return forEachTile(r, func(c Coord, part Rect) error {
		whole := part == c.Rect()
		if whole && isDefault {
			ok, err := d.deleteLocked(c)
			removed = removed || ok
			return err
		}

		t, err := d.writeTileLocked(c)
		if err != nil {
			return err
		}
		g, err := t.Acquire()
		if err != nil {
			return err
		}
		defer g.Release()

		if whole {
			return t.Fill(pixel)
		}
		d.fillRowsLocked(g.Data()[d.tileOffset(c, part):], part.W, part.H, pixel)
		return nil
	})
}

// ClearAll removes every tile. An open memento records them so that
// rollback restores them.
func (d *Directory) ClearAll() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}

	defer d.recalculateExtentLocked()
	for _, c := range d.coordsLocked() {
		if _, err := d.deleteLocked(c); err != nil {
			return err
		}
	}
	return nil
}

// Paste copies the pixels of r from src into d. Whole tiles that are
// missing in src, and read as d's default pixel, are removed from d rather
// than copied.
func (d *Directory) Paste(src *Directory, r Rect) error {
	return d.paste(src, r, false)
}

// PasteOldData is Paste reading src as it was when src's open memento was
// taken.
func (d *Directory) PasteOldData(src *Directory, r Rect) error {
	return d.paste(src, r, true)
}

func (d *Directory) paste(src *Directory, r Rect, old bool) error {
	if src == nil {
		return fmt.Errorf("%w: nil source", ErrPixelSizeMismatch)
	}
	if src.pixelSize != d.pixelSize {
		return fmt.Errorf("%w: pasting %d-byte pixels into %d-byte pixels",
			ErrPixelSizeMismatch, src.pixelSize, d.pixelSize)
	}
	if r.Empty() {
		return nil
	}

	scratch := make([]byte, d.tileBytes)
	removed := false
	defer func() {
		if removed {
			d.mu.Lock()
			d.recalculateExtentLocked()
			d.mu.Unlock()
		}
	}()

	// The source lock is released before the destination lock is taken, so
	// pasting between two directories in both directions cannot deadlock.
	return forEachTile(r, func(c Coord, part Rect) error {
		fill, err := src.snapshotTile(c, scratch, old)
		if err != nil {
			return err
		}

		d.mu.Lock()
		defer d.mu.Unlock()
		if d.closed {
			return ErrClosed
		}

		if part == c.Rect() && fill != nil && bytes.Equal(fill, d.defPixel) {
			ok, err := d.deleteLocked(c)
			removed = removed || ok
			return err
		}

		t, err := d.writeTileLocked(c)
		if err != nil {
			return err
		}
		g, err := t.Acquire()
		if err != nil {
			return err
		}
		defer g.Release()

		off := d.tileOffset(c, part)
		copyRows(g.Data()[off:], d.rowStride(), scratch[off:], d.rowStride(), part.W*d.pixelSize, part.H)
		return nil
	})
}

// PasteRough copies every tile r touches from src into d as a whole,
// without clipping to r. It is cheaper than Paste when the caller only
// needs r covered. Tiles missing in src are removed from d when both
// directories share the same default pixel.
func (d *Directory) PasteRough(src *Directory, r Rect) error {
	return d.pasteRough(src, r, false)
}

// PasteRoughOldData is PasteRough reading src as it was when src's open
// memento was taken.
func (d *Directory) PasteRoughOldData(src *Directory, r Rect) error {
	return d.pasteRough(src, r, true)
}

func (d *Directory) pasteRough(src *Directory, r Rect, old bool) error {
	if src == nil {
		return fmt.Errorf("%w: nil source", ErrPixelSizeMismatch)
	}
	if src.pixelSize != d.pixelSize {
		return fmt.Errorf("%w: pasting %d-byte pixels into %d-byte pixels",
			ErrPixelSizeMismatch, src.pixelSize, d.pixelSize)
	}
	if r.Empty() {
		return nil
	}

	scratch := make([]byte, d.tileBytes)
	removed := false
	defer func() {
		if removed {
			d.mu.Lock()
			d.recalculateExtentLocked()
			d.mu.Unlock()
		}
	}()

	return forEachTile(r, func(c Coord, _ Rect) error {
		fill, err := src.snapshotTile(c, scratch, old)
		if err != nil {
			return err
		}

		d.mu.Lock()
		defer d.mu.Unlock()
		if d.closed {
			return ErrClosed
		}

		if fill != nil && bytes.Equal(fill, d.defPixel) {
			ok, err := d.deleteLocked(c)
			removed = removed || ok
			return err
		}

		t, err := d.writeTileLocked(c)
		if err != nil {
			return err
		}
		g, err := t.Acquire()
		if err != nil {
			return err
		}
		defer g.Release()
		copy(g.Data(), scratch)
		return nil
	})
}

// snapshotTile copies the bytes of tile c into buf. When no tile exists it
// fills buf with the pixel the coordinate reads as and returns that pixel.
func (d *Directory) snapshotTile(c Coord, buf []byte, old bool) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return nil, ErrClosed
	}

	var (
		t     *tile.Tile
		pixel []byte
	)
	if old {
		t, pixel = d.oldSourceLocked(c)
	} else {
		t, pixel = d.liveSourceLocked(c)
	}
	if t == nil {
		mem.FillPattern(buf, pixel)
		return bytes.Clone(pixel), nil
	}

	g, err := t.Acquire()
	if err != nil {
		return nil, err
	}
	defer g.Release()
	copy(buf, g.Data())
	return nil, nil
}

// Purge drops the tiles intersecting r whose every pixel equals the
// default pixel. It returns the number of tiles removed.
func (d *Directory) Purge(r Rect) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, ErrClosed
	}

	def := make([]byte, d.tileBytes)
	mem.FillPattern(def, d.defPixel)

	var victims []Coord
	for _, c := range d.coordsLocked() {
		if !c.Rect().Intersects(r) {
			continue
		}
		g, err := d.tiles[c].Acquire()
		if err != nil {
			return 0, err
		}
		same := bytes.Equal(g.Data(), def)
		g.Release()
		if same {
			victims = append(victims, c)
		}
	}

	defer d.recalculateExtentLocked()
	for i, c := range victims {
		if _, err := d.deleteLocked(c); err != nil {
			return i, err
		}
	}
	return len(victims), nil
}

// SetExtent crops the directory to r. Tiles wholly outside r are removed
// and pixels of straddling tiles that fall outside r are reset to the
// default pixel. Growing the extent is a no-op since writes extend it on
// demand. Afterwards the extent is recomputed from the remaining tiles.
func (d *Directory) SetExtent(r Rect) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if r.Contains(d.extentLocked()) {
		return nil
	}

	defer d.recalculateExtentLocked()
	for _, c := range d.coordsLocked() {
		tr := c.Rect()
		switch {
		case r.Contains(tr):
		case r.Intersects(tr):
			if err := d.cropTileLocked(c, r.Intersect(tr)); err != nil {
				return err
			}
		default:
			if _, err := d.deleteLocked(c); err != nil {
				return err
			}
		}
	}
	return nil
}

// cropTileLocked resets every pixel of tile c outside keep.
func (d *Directory) cropTileLocked(c Coord, keep Rect) error {
	t, err := d.writeTileLocked(c)
	if err != nil {
		return err
	}
	g, err := t.Acquire()
	if err != nil {
		return err
	}
	defer g.Release()

	data := g.Data()
	tr := c.Rect()
	left := keep.X - tr.X
	right := tr.Right() - keep.Right()
	top := keep.Y - tr.Y
	bottom := tr.Bottom() - keep.Bottom()

	d.fillRowsLocked(data, tile.Width, top, d.defPixel)
	d.fillRowsLocked(data[d.tileOffset(c, R(tr.X, keep.Bottom()+1, tile.Width, bottom)):], tile.Width, bottom, d.defPixel)
	if left > 0 {
		d.fillRowsLocked(data[d.tileOffset(c, R(tr.X, keep.Y, left, keep.H)):], left, keep.H, d.defPixel)
	}
	if right > 0 {
		d.fillRowsLocked(data[d.tileOffset(c, R(keep.Right()+1, keep.Y, right, keep.H)):], right, keep.H, d.defPixel)
	}
	return nil
}

// fillRowsLocked fills a w x h block of a tile buffer starting at data.
func (d *Directory) fillRowsLocked(data []byte, w, h int, pixel []byte) {
	line := w * d.pixelSize
	for i := 0; i < h; i++ {
		off := i * d.rowStride()
		mem.FillPattern(data[off:off+line], pixel)
	}
}

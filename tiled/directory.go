package tiled

import (
	"bytes"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"

	"github.com/hupe1980/tilestore/tile"
)

// Directory is a sparse grid of tiles addressed by (col,row). Missing tiles
// read as the default pixel and are created on first write.
//
// A Directory is safe for concurrent use. Writes to overlapping regions
// must still be serialized by the caller if their order matters.
type Directory struct {
	mu sync.RWMutex

	mgr       *tile.Manager
	pixelSize int
	logger    *slog.Logger

	tiles      map[Coord]*tile.Tile
	defPixel   []byte
	defTile    *tile.Tile
	tileBytes  int
	minX, minY int
	maxX, maxY int

	memento  *Memento
	mementos map[*Memento]struct{}
	closed   bool
}

// New creates an empty directory whose tiles are owned by mgr.
func New(mgr *tile.Manager, pixelSize int, defaultPixel []byte, opts ...Option) (*Directory, error) {
	if pixelSize <= 0 || len(defaultPixel) != pixelSize {
		return nil, fmt.Errorf("%w: pixel size %d with %d-byte default pixel",
			ErrPixelSizeMismatch, pixelSize, len(defaultPixel))
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	defTile, err := mgr.NewTile(pixelSize, 0, 0, defaultPixel)
	if err != nil {
		return nil, err
	}

	d := &Directory{
		mgr:       mgr,
		pixelSize: pixelSize,
		logger:    o.logger,
		tiles:     make(map[Coord]*tile.Tile),
		defPixel:  bytes.Clone(defaultPixel),
		defTile:   defTile,
		tileBytes: tile.Pixels * pixelSize,
		mementos:  make(map[*Memento]struct{}),
	}
	if o.name != "" {
		d.logger = d.logger.With("directory", o.name)
	}
	d.resetExtentLocked()
	return d, nil
}

// PixelSize returns the number of bytes per pixel.
func (d *Directory) PixelSize() int { return d.pixelSize }

// Manager returns the tile manager backing d.
func (d *Directory) Manager() *tile.Manager { return d.mgr }

// Close destroys every tile owned by d, including those held by its
// mementos. Further operations return ErrClosed.
func (d *Directory) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	for m := range d.mementos {
		m.releaseLocked()
		m.state = Discarded
	}
	clear(d.mementos)
	d.memento = nil

	for c, t := range d.tiles {
		t.Destroy()
		delete(d.tiles, c)
	}
	d.defTile.Destroy()
	d.resetExtentLocked()
	return nil
}

// GetTile returns the tile at (col,row). With write set, a missing tile is
// created and the tile's pre-edit state is recorded in the open memento.
// Without it, a missing tile yields the shared default tile, which callers
// must not modify.
func (d *Directory) GetTile(col, row int, write bool) (*tile.Tile, error) {
	if !write {
		d.mu.RLock()
		defer d.mu.RUnlock()
		if d.closed {
			return nil, ErrClosed
		}
		t, _ := d.lookupLocked(Coord{Col: col, Row: row})
		return t, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}
	return d.writeTileLocked(Coord{Col: col, Row: row})
}

// Tile is a read-only lookup. The second result reports whether the tile
// exists; when it does not, the shared default tile is returned.
func (d *Directory) Tile(col, row int) (*tile.Tile, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lookupLocked(Coord{Col: col, Row: row})
}

// NumTiles returns the number of materialized tiles.
func (d *Directory) NumTiles() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.tiles)
}

// Coords returns the coordinates of all materialized tiles ordered by row,
// then column.
func (d *Directory) Coords() []Coord {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.coordsLocked()
}

// BucketHistogram counts the tiles falling into each of the Buckets hash
// buckets.
func (d *Directory) BucketHistogram() []int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	h := make([]int, Buckets)
	for c := range d.tiles {
		h[c.Hash()]++
	}
	return h
}

// DefaultPixel returns a copy of the default pixel.
func (d *Directory) DefaultPixel() []byte {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return bytes.Clone(d.defPixel)
}

// SetDefaultPixel changes the value missing tiles read as. An open memento
// restores the previous value on rollback.
func (d *Directory) SetDefaultPixel(pixel []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	return d.setDefaultPixelLocked(pixel)
}

func (d *Directory) setDefaultPixelLocked(pixel []byte) error {
	if len(pixel) != d.pixelSize {
		return fmt.Errorf("%w: %d-byte default pixel for pixel size %d",
			ErrPixelSizeMismatch, len(pixel), d.pixelSize)
	}
	g, err := d.defTile.Acquire()
	if err != nil {
		return err
	}
	defer g.Release()

	if err := g.Tile().Fill(pixel); err != nil {
		return err
	}
	d.defPixel = bytes.Clone(pixel)
	return nil
}

// Extent returns the bounding rectangle of all materialized tiles.
func (d *Directory) Extent() Rect {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.extentLocked()
}

// RecalculateExtent rebuilds the extent from the tile table.
func (d *Directory) RecalculateExtent() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recalculateExtentLocked()
}

// Region returns the rectangles of all materialized tiles ordered by row,
// then column.
func (d *Directory) Region() []Rect {
	d.mu.RLock()
	defer d.mu.RUnlock()

	coords := d.coordsLocked()
	rects := make([]Rect, len(coords))
	for i, c := range coords {
		rects[i] = c.Rect()
	}
	return rects
}

func (d *Directory) coordsLocked() []Coord {
	coords := make([]Coord, 0, len(d.tiles))
	for c := range d.tiles {
		coords = append(coords, c)
	}
	slices.SortFunc(coords, compareCoords)
	return coords
}

func compareCoords(a, b Coord) int {
	if a.Row != b.Row {
		return a.Row - b.Row
	}
	return a.Col - b.Col
}

func (d *Directory) lookupLocked(c Coord) (*tile.Tile, bool) {
	if t, ok := d.tiles[c]; ok {
		return t, true
	}
	return d.defTile, false
}

// writeTileLocked returns the tile at c for modification, creating it if
// needed and recording it in the open memento.
func (d *Directory) writeTileLocked(c Coord) (*tile.Tile, error) {
	if t, ok := d.tiles[c]; ok {
		if err := d.mementoLocked(c, t); err != nil {
			return nil, err
		}
		return t, nil
	}

	t, err := d.mgr.NewTile(d.pixelSize, c.Col, c.Row, d.defPixel)
	if err != nil {
		return nil, err
	}
	d.insertLocked(c, t)
	if m := d.memento; m != nil && !m.contains(c) {
		m.markCreated(c)
	}
	return t, nil
}

// mementoLocked saves a copy of t into the open memento unless c was
// already recorded.
func (d *Directory) mementoLocked(c Coord, t *tile.Tile) error {
	m := d.memento
	if m == nil || m.contains(c) {
		return nil
	}
	cp, err := t.Copy(c.Col, c.Row)
	if err != nil {
		return err
	}
	m.undo[c] = cp
	return nil
}

func (d *Directory) insertLocked(c Coord, t *tile.Tile) {
	d.tiles[c] = t
	d.growExtentLocked(c)
}

// takeLocked removes the tile at c from the table without destroying it.
// The extent is left stale.
func (d *Directory) takeLocked(c Coord) *tile.Tile {
	t, ok := d.tiles[c]
	if !ok {
		return nil
	}
	delete(d.tiles, c)
	return t
}

// deleteLocked records the tile at c in the open memento and destroys it.
// It reports whether a tile was removed. The extent is left stale.
func (d *Directory) deleteLocked(c Coord) (bool, error) {
	t, ok := d.tiles[c]
	if !ok {
		return false, nil
	}
	if err := d.mementoLocked(c, t); err != nil {
		return false, err
	}
	delete(d.tiles, c)
	t.Destroy()
	return true, nil
}

func (d *Directory) resetExtentLocked() {
	d.minX, d.minY = math.MaxInt, math.MaxInt
	d.maxX, d.maxY = math.MinInt, math.MinInt
}

func (d *Directory) growExtentLocked(c Coord) {
	r := c.Rect()
	d.minX = min(d.minX, r.X)
	d.minY = min(d.minY, r.Y)
	d.maxX = max(d.maxX, r.Right())
	d.maxY = max(d.maxY, r.Bottom())
}

func (d *Directory) recalculateExtentLocked() {
	d.resetExtentLocked()
	for c := range d.tiles {
		d.growExtentLocked(c)
	}
}

func (d *Directory) extentLocked() Rect {
	if d.maxX < d.minX || d.maxY < d.minY {
		return Rect{}
	}
	return Rect{X: d.minX, Y: d.minY, W: d.maxX - d.minX + 1, H: d.maxY - d.minY + 1}
}

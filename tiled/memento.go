package tiled

import (
	"bytes"
	"fmt"

	"github.com/hupe1980/tilestore/tile"
)

// State is the lifecycle position of a Memento.
type State int

const (
	// Open mementos record the first write to every coordinate.
	Open State = iota
	// Closed mementos stopped recording because a newer one was opened.
	Closed
	// Undone mementos have been rolled back and may be rolled forward.
	Undone
	// Redone mementos have been rolled forward and may be rolled back.
	Redone
	// Discarded mementos have released their tiles and cannot be replayed.
	Discarded
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case Closed:
		return "closed"
	case Undone:
		return "undone"
	case Redone:
		return "redone"
	case Discarded:
		return "discarded"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Memento is a copy-on-write snapshot of a Directory used for undo and
// redo. It holds pre-edit copies of every tile modified after it was
// opened and the coordinates of every tile created since.
//
// A memento is guarded by the lock of the directory that created it.
type Memento struct {
	dir   *Directory
	state State

	undo map[Coord]*tile.Tile
	redo map[Coord]*tile.Tile

	// created mirrors deleteOnUndo for membership tests.
	created      map[Coord]struct{}
	deleteOnUndo []Coord
	deleteOnRedo []Coord

	defPixel     []byte
	redoDefPixel []byte
}

func newMemento(d *Directory) *Memento {
	return &Memento{
		dir:      d,
		state:    Open,
		undo:     make(map[Coord]*tile.Tile),
		redo:     make(map[Coord]*tile.Tile),
		created:  make(map[Coord]struct{}),
		defPixel: bytes.Clone(d.defPixel),
	}
}

// State returns the current lifecycle state.
func (m *Memento) State() State {
	m.dir.mu.RLock()
	defer m.dir.mu.RUnlock()
	return m.state
}

// Valid reports whether m can still be replayed in some direction.
func (m *Memento) Valid() bool {
	return m.State() != Discarded
}

// NumTiles returns the number of pre-edit tile copies held by m.
func (m *Memento) NumTiles() int {
	m.dir.mu.RLock()
	defer m.dir.mu.RUnlock()
	return len(m.undo)
}

// Created returns the coordinates of tiles created after m was opened, in
// creation order.
func (m *Memento) Created() []Coord {
	m.dir.mu.RLock()
	defer m.dir.mu.RUnlock()
	return append([]Coord(nil), m.deleteOnUndo...)
}

// Discard releases every tile held by m. A discarded memento cannot be
// replayed.
func (m *Memento) Discard() {
	d := m.dir
	d.mu.Lock()
	defer d.mu.Unlock()

	if m.state == Discarded {
		return
	}
	m.releaseLocked()
	m.state = Discarded
	if d.memento == m {
		d.memento = nil
	}
	delete(d.mementos, m)
}

func (m *Memento) contains(c Coord) bool {
	if _, ok := m.undo[c]; ok {
		return true
	}
	_, ok := m.created[c]
	return ok
}

func (m *Memento) markCreated(c Coord) {
	m.created[c] = struct{}{}
	m.deleteOnUndo = append(m.deleteOnUndo, c)
}

func (m *Memento) releaseLocked() {
	for c, t := range m.undo {
		t.Destroy()
		delete(m.undo, c)
	}
	m.clearRedoLocked()
}

func (m *Memento) clearRedoLocked() {
	for c, t := range m.redo {
		t.Destroy()
		delete(m.redo, c)
	}
	m.deleteOnRedo = m.deleteOnRedo[:0]
}

// GetMemento opens a new memento. The previously open memento, if any,
// stops recording.
func (d *Directory) GetMemento() (*Memento, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}

	d.closeMementoLocked()
	m := newMemento(d)
	d.memento = m
	d.mementos[m] = struct{}{}
	return m, nil
}

// HasOpenMemento reports whether writes are currently being recorded.
func (d *Directory) HasOpenMemento() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.memento != nil
}

func (d *Directory) closeMementoLocked() {
	if d.memento != nil {
		d.memento.state = Closed
		d.memento = nil
	}
}

// Rollback restores the tiles and default pixel recorded in m. Tiles
// created after m was opened are removed. The replaced state is kept in m
// so that Rollforward can restore it.
func (d *Directory) Rollback(m *Memento) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if m == nil || m.dir != d {
		return fmt.Errorf("%w: memento belongs to another directory", ErrInvalidMemento)
	}
	switch m.state {
	case Open, Closed, Redone:
	default:
		return fmt.Errorf("%w: cannot roll back a %s memento", ErrInvalidMemento, m.state)
	}

	// Copy before touching the table so a corrupt saved tile leaves the
	// directory unchanged.
	restore := make(map[Coord]*tile.Tile, len(m.undo))
	for c, saved := range m.undo {
		cp, err := saved.Copy(c.Col, c.Row)
		if err != nil {
			for _, t := range restore {
				t.Destroy()
			}
			return err
		}
		restore[c] = cp
	}

	d.closeMementoLocked()
	m.clearRedoLocked()

	m.redoDefPixel = bytes.Clone(d.defPixel)
	if err := d.setDefaultPixelLocked(m.defPixel); err != nil {
		for _, t := range restore {
			t.Destroy()
		}
		return err
	}

	for c, t := range restore {
		if cur := d.takeLocked(c); cur != nil {
			m.redo[c] = cur
		} else {
			m.deleteOnRedo = append(m.deleteOnRedo, c)
		}
		d.tiles[c] = t
	}
	for _, c := range m.deleteOnUndo {
		if cur := d.takeLocked(c); cur != nil {
			m.redo[c] = cur
		}
	}
	d.recalculateExtentLocked()
	m.state = Undone

	d.logger.Debug("memento rolled back",
		"restored", len(restore), "removed", len(m.deleteOnUndo), "tiles", len(d.tiles))
	return nil
}

// Rollforward reapplies the state that the last Rollback of m replaced.
func (d *Directory) Rollforward(m *Memento) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if m == nil || m.dir != d {
		return fmt.Errorf("%w: memento belongs to another directory", ErrInvalidMemento)
	}
	if m.state != Undone {
		return fmt.Errorf("%w: cannot roll forward a %s memento", ErrInvalidMemento, m.state)
	}

	d.closeMementoLocked()
	if err := d.setDefaultPixelLocked(m.redoDefPixel); err != nil {
		return err
	}

	restored := len(m.redo)
	for c, t := range m.redo {
		if cur := d.takeLocked(c); cur != nil {
			cur.Destroy()
		}
		d.tiles[c] = t
		delete(m.redo, c)
	}
	for _, c := range m.deleteOnRedo {
		if cur := d.takeLocked(c); cur != nil {
			cur.Destroy()
		}
	}
	m.deleteOnRedo = m.deleteOnRedo[:0]
	d.recalculateExtentLocked()
	m.state = Redone

	d.logger.Debug("memento rolled forward", "restored", restored, "tiles", len(d.tiles))
	return nil
}

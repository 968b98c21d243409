package tile

import "sync/atomic"

// Guard holds one reader on a tile until Release.
type Guard struct {
	t        *Tile
	released atomic.Bool
}

// Acquire adds a reader and returns a guard that removes it.
func (t *Tile) Acquire() (*Guard, error) {
	if err := t.AddReader(); err != nil {
		return nil, err
	}
	return &Guard{t: t}, nil
}

// Data returns the guarded tile's buffer.
func (g *Guard) Data() []byte { return g.t.Data() }

// Tile returns the guarded tile.
func (g *Guard) Tile() *Tile { return g.t }

// Release removes the reader. Further calls are no-ops.
func (g *Guard) Release() {
	if g.released.Swap(true) {
		return
	}
	g.t.RemoveReader()
}

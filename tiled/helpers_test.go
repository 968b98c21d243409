package tiled

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tilestore/internal/fs"
	"github.com/hupe1980/tilestore/internal/swap"
	"github.com/hupe1980/tilestore/tile"
)

func newTestManager(t *testing.T, opts ...tile.Option) *tile.Manager {
	t.Helper()
	store := swap.New(swap.WithDir(t.TempDir()))
	m := tile.NewManager(append([]tile.Option{tile.WithSwapStore(store)}, opts...)...)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func newTestDirectory(t *testing.T, pixelSize int, def []byte, opts ...tile.Option) *Directory {
	t.Helper()
	d, err := New(newTestManager(t, opts...), pixelSize, def)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// recordingFS remembers the swap files it creates so tests can damage them.
type recordingFS struct {
	fs.LocalFS
	mu    sync.Mutex
	names []string
}

func (r *recordingFS) CreateTemp(dir, pattern string) (fs.File, error) {
	f, err := r.LocalFS.CreateTemp(dir, pattern)
	if err == nil {
		r.mu.Lock()
		r.names = append(r.names, f.Name())
		r.mu.Unlock()
	}
	return f, err
}

// contents reads every materialized tile of d.
func contents(t *testing.T, d *Directory) map[Coord][]byte {
	t.Helper()
	out := make(map[Coord][]byte)
	for _, c := range d.Coords() {
		buf := make([]byte, tile.Pixels*d.PixelSize())
		require.NoError(t, d.ReadBytes(c.Rect(), buf, 0))
		out[c] = buf
	}
	return out
}

func readRect(t *testing.T, d *Directory, r Rect) []byte {
	t.Helper()
	buf := make([]byte, r.Area()*d.PixelSize())
	require.NoError(t, d.ReadBytes(r, buf, 0))
	return buf
}

// requireWithinExtent checks that every tile lies inside the extent.
func requireWithinExtent(t *testing.T, d *Directory) {
	t.Helper()
	ext := d.Extent()
	for _, c := range d.Coords() {
		require.True(t, ext.Contains(c.Rect()), "tile %s outside extent %s", c, ext)
	}
	if d.NumTiles() == 0 {
		require.True(t, ext.Empty())
	}
}

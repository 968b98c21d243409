package tile

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tilestore/internal/fs"
	"github.com/hupe1980/tilestore/internal/swap"
)

func newTestManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	store := swap.New(swap.WithDir(t.TempDir()))
	m := NewManager(append([]Option{WithSwapStore(store)}, opts...)...)
	t.Cleanup(func() { _ = m.Close() })
	return m
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

type swapEvent struct {
	bytes, frame int
	err          error
}

type recordingObserver struct {
	NoopObserver
	mu        sync.Mutex
	swapOuts  []swapEvent
	swapIns   int
	compress  int
	residents []int
}

func (o *recordingObserver) OnSwapOut(b, frame int, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.swapOuts = append(o.swapOuts, swapEvent{bytes: b, frame: frame, err: err})
}

func (o *recordingObserver) OnSwapIn(int, time.Duration, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.swapIns++
}

func (o *recordingObserver) OnCompress(int, int, time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.compress++
}

func (o *recordingObserver) OnResident(tiles int, _ int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.residents = append(o.residents, tiles)
}

func (o *recordingObserver) lastSwapOut() swapEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.swapOuts[len(o.swapOuts)-1]
}

func writeTile(t *testing.T, tl *Tile, data []byte) {
	t.Helper()
	g, err := tl.Acquire()
	require.NoError(t, err)
	defer g.Release()
	copy(g.Data(), data)
}

func readTile(t *testing.T, tl *Tile) []byte {
	t.Helper()
	g, err := tl.Acquire()
	require.NoError(t, err)
	defer g.Release()
	return bytes.Clone(g.Data())
}

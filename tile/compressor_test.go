package tile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tilestore/codec"
	"github.com/hupe1980/tilestore/internal/swap"
	"github.com/hupe1980/tilestore/testutil"
)

func TestCompressor_PrecompressedFrameIsUsed(t *testing.T) {
	obs := &recordingObserver{}
	m := newTestManager(t, WithLimits(1, 100), WithObserver(obs))
	c := NewCompressor(m)

	a, err := m.NewTile(4, 0, 0, []byte{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, 1, c.Pending())

	assert.Equal(t, 1, c.Drain())
	assert.Equal(t, 1, obs.compress)
	assert.Equal(t, int64(1), c.Processed())

	_, err = m.NewTile(4, 1, 0, []byte{5, 6, 7, 8})
	require.NoError(t, err)
	require.False(t, a.Resident())

	ev := obs.lastSwapOut()
	assert.Equal(t, Pixels*4, ev.bytes)
	assert.Less(t, ev.frame, ev.bytes/10)
	assert.Equal(t, testutil.Repeat([]byte{1, 2, 3, 4}, Pixels), readTile(t, a))
}

func TestCompressor_WriteInvalidatesFrame(t *testing.T) {
	m := newTestManager(t, WithLimits(1, 100))
	c := NewCompressor(m)

	a, err := m.NewTile(1, 0, 0, []byte{0})
	require.NoError(t, err)
	require.Equal(t, 1, c.Drain())

	pattern := testutil.NewRNG(3).Runs(Pixels, 8)
	writeTile(t, a, pattern)

	// Evict before the compressor sees the new contents.
	_, err = m.NewTile(1, 1, 0, []byte{0})
	require.NoError(t, err)
	require.False(t, a.Resident())

	assert.Equal(t, pattern, readTile(t, a))
}

func TestCompressor_ShrinksRawFrames(t *testing.T) {
	obs := &recordingObserver{}
	m := newTestManager(t, WithLimits(1, 100), WithObserver(obs))
	c := NewCompressor(m, WithWorkers(2))
	c.Start(t.Context())
	c.Start(t.Context())
	assert.True(t, c.Running())

	var tiles []*Tile
	for i := 0; i < 12; i++ {
		tl, err := m.NewTile(4, i, 0, []byte{byte(i), 0, 0, 255})
		require.NoError(t, err)
		tiles = append(tiles, tl)
	}

	require.Eventually(t, func() bool {
		st := m.Stats()
		return st.Swapped == 11 && st.Swap.UsedBytes == int64(st.Swapped)*swap.BlockSize
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, c.Stop())
	require.NoError(t, c.Stop())
	assert.False(t, c.Running())

	for i, tl := range tiles {
		assert.Equal(t, testutil.Repeat([]byte{byte(i), 0, 0, 255}, Pixels), readTile(t, tl))
	}
}

func TestCompressor_RawCodecSkipsWork(t *testing.T) {
	m := newTestManager(t, WithCodec(nil))
	c := NewCompressor(m)

	_, err := m.NewTile(1, 0, 0, []byte{0})
	require.NoError(t, err)
	assert.Equal(t, 0, c.Pending())
}

func TestCompressor_QueueSemantics(t *testing.T) {
	m := newTestManager(t)
	c := NewCompressor(m)

	a, err := m.NewTile(1, 0, 0, []byte{0})
	require.NoError(t, err)
	b, err := m.NewTile(1, 1, 0, []byte{0})
	require.NoError(t, err)
	assert.Equal(t, 2, c.Pending())

	c.Enqueue(a)
	assert.Equal(t, 2, c.Pending())

	a.Destroy()
	assert.Equal(t, 1, c.Pending())

	c.Dequeue(b)
	assert.Equal(t, 0, c.Pending())
	assert.Equal(t, 0, c.Drain())
	assert.NoError(t, c.Stop())
}

func TestCompressor_IncompressibleFrameStaysRaw(t *testing.T) {
	obs := &recordingObserver{}
	m := newTestManager(t, WithLimits(1, 100), WithObserver(obs))
	c := NewCompressor(m)

	a, err := m.NewTile(1, 0, 0, []byte{0})
	require.NoError(t, err)
	noise := testutil.NewRNG(11).Noise(Pixels)
	writeTile(t, a, noise)
	c.Drain()

	_, err = m.NewTile(1, 1, 0, []byte{0})
	require.NoError(t, err)

	assert.Equal(t, Pixels+codec.HeaderSize, obs.lastSwapOut().frame)
	assert.Equal(t, noise, readTile(t, a))
}

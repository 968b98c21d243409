package tilestore_test

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tilestore"
	"github.com/hupe1980/tilestore/tiled"
)

// TestNoGoroutineLeaks verifies that compressor workers stop on Close.
func TestNoGoroutineLeaks(t *testing.T) {
	tests := []struct {
		name     string
		cfg      tilestore.Config
		maxLeaks int
	}{
		{name: "no compressor", cfg: tilestore.Config{CompressorWorkers: 0, Codec: "lzf"}, maxLeaks: 2},
		{name: "one worker", cfg: tilestore.Config{CompressorWorkers: 1}, maxLeaks: 2},
		{name: "four workers zstd", cfg: tilestore.Config{CompressorWorkers: 4, Codec: "zstd"}, maxLeaks: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runtime.GC()
			time.Sleep(20 * time.Millisecond)
			before := runtime.NumGoroutine()

			cfg := tt.cfg
			cfg.SwapDir = t.TempDir()
			cfg.MaxResidentTiles = 4

			eng, err := tilestore.New(tilestore.WithConfig(cfg))
			require.NoError(t, err)

			dir, err := eng.NewDirectory(4, []byte{0, 0, 0, 0})
			require.NoError(t, err)
			for i := 0; i < 16; i++ {
				require.NoError(t, dir.Clear(tiled.R(i*64, 0, 64, 64), []byte{byte(i), 1, 2, 3}))
			}

			require.NoError(t, eng.Close())

			var after int
			for i := 0; i < 50; i++ {
				runtime.GC()
				after = runtime.NumGoroutine()
				if after <= before+tt.maxLeaks {
					break
				}
				time.Sleep(10 * time.Millisecond)
			}
			assert.LessOrEqual(t, after, before+tt.maxLeaks, "goroutines leaked")
		})
	}
}

func TestEngine_CloseIsFinal(t *testing.T) {
	eng, err := tilestore.New(tilestore.WithConfig(tilestore.Config{SwapDir: t.TempDir()}))
	require.NoError(t, err)

	dir, err := eng.NewDirectory(1, []byte{0})
	require.NoError(t, err)
	require.NoError(t, dir.SetPixel(0, 0, []byte{1}))

	require.NoError(t, eng.Close())
	require.NoError(t, eng.Close())

	assert.ErrorIs(t, dir.SetPixel(0, 0, []byte{2}), tiled.ErrClosed)
	_, err = eng.NewDirectory(1, []byte{0})
	assert.ErrorIs(t, err, tilestore.ErrClosed)
	assert.ErrorIs(t, eng.ApplyConfig(tilestore.DefaultConfig()), tilestore.ErrClosed)
}

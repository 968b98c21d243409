package main

import (
	"bytes"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"

	"github.com/hupe1980/tilestore"
	"github.com/hupe1980/tilestore/codec"
	"github.com/hupe1980/tilestore/tile"
)

func TestEngineFlags_Config(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte("maxResidentTiles: 50\ncodec: lz4\n"), 0o600))

	f := &engineFlags{ConfigFile: path, Swappiness: 200, Workers: 3}
	cfg, err := f.config()
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.MaxResidentTiles)
	assert.Equal(t, 200, cfg.Swappiness)
	assert.Equal(t, "lz4", cfg.Codec)
	assert.Equal(t, 3, cfg.CompressorWorkers)

	f = &engineFlags{Codec: "snappy"}
	_, err = f.config()
	assert.ErrorIs(t, err, tilestore.ErrInvalidConfig)
}

func TestStress_PaintAndVerifyUnderBudget(t *testing.T) {
	f := &engineFlags{Max: 4, Codec: "zstd", SwapDir: t.TempDir()}
	mc := &tilestore.BasicMetricsCollector{}
	eng, _, err := f.engine(mc)
	require.NoError(t, err)
	defer eng.Close()

	dir, err := eng.NewDirectory(4, make([]byte, 4))
	require.NoError(t, err)

	const n, side = 40, 7
	require.NoError(t, paintTiles(dir, n, side, 3))

	bad, err := verifyTiles(dir, n, side, 3)
	require.NoError(t, err)
	assert.Zero(t, bad)
	assert.Positive(t, eng.Stats().SwapOuts)

	bad, err = verifyTiles(dir, n, side, 4)
	require.NoError(t, err)
	assert.Positive(t, bad)
}

func TestCodecs_Measure(t *testing.T) {
	tileBytes := tile.Width * tile.Height * 4
	for _, s := range syntheticSamples(tileBytes, 4) {
		for _, name := range codec.Names() {
			cd, ok := codec.ByName(name)
			require.True(t, ok)
			r, err := measure(cd, s.tiles, 1)
			require.NoError(t, err, "%s/%s", s.name, name)
			assert.Positive(t, r.ratio)
			if s.name == "flat" {
				assert.Less(t, r.ratio, 0.1, name)
			}
		}
	}

	r, err := measure(nil, [][]byte{make([]byte, 64)}, 1)
	require.NoError(t, err)
	assert.Greater(t, r.ratio, 1.0)
}

func TestDump_PaintCanvas(t *testing.T) {
	f := &engineFlags{Max: 2, SwapDir: t.TempDir()}
	eng, _, err := f.engine(nil)
	require.NoError(t, err)
	defer eng.Close()

	dir, err := eng.NewDirectory(4, []byte{255, 255, 255, 255})
	require.NoError(t, err)
	require.NoError(t, paintCanvas(dir, 100))

	ext := dir.Extent()
	assert.Equal(t, 128, ext.W)
	assert.Equal(t, 128, ext.H)

	img := image.NewRGBA(image.Rect(0, 0, ext.W, ext.H))
	require.NoError(t, dir.ReadBytes(ext, img.Pix, img.Stride))
	assert.Equal(t, []byte{32, 32, 32, 255}, img.Pix[0:4])
	// Outside the painted square the default pixel shows through.
	off := img.PixOffset(120, 120)
	assert.Equal(t, []byte{255, 255, 255, 255}, img.Pix[off:off+4])

	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, img))
	decoded, err := bmp.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())
}

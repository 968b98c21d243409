// Package tilestore is a tiled raster storage engine: it keeps painting
// surfaces as sparse grids of 64x64 pixel tiles, holds resident tile memory
// under a configurable ceiling by swapping cold tiles to compressed frames
// in temporary files, and records copy-on-write mementos for undo and redo.
//
// # Quick Start
//
//	eng, err := tilestore.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close()
//
//	dir, err := eng.NewDirectory(4, []byte{0, 0, 0, 0}) // RGBA, transparent
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	m, _ := dir.GetMemento()
//	_ = dir.SetPixel(100, 100, []byte{255, 0, 0, 255})
//	_ = dir.Rollback(m) // undo
//
// # Architecture
//
// One Engine owns the process-wide tile.Manager. The manager tracks every
// tile of every directory, keeps released tiles in least-recently-released
// order and evicts the oldest once the resident count exceeds
// maxResidentTiles*100/swappiness. Evicted tiles are encoded as frames
//
//	[u32 little-endian length][flag][payload]
//
// and written to block-aligned slots of anonymous swap files. A tile with
// readers is never evicted; the first reader faults a swapped tile back in.
//
// The optional background compressor encodes released tiles ahead of
// eviction and shrinks frames that were written raw, so swap-out under
// pressure stays cheap.
//
// # Configuration
//
// Settings are plain YAML:
//
//	maxResidentTiles: 4000
//	swappiness: 100
//	codec: lzf
//	compressorWorkers: 1
//
// Load them with LoadConfig and pass them to New with WithConfig.
// ApplyConfig re-applies the ceiling inputs to a running engine.
//
// # Failure handling
//
// A swap file that cannot be created, grown or mapped switches the engine
// into a degraded mode for the rest of the session: nothing more is
// swapped and resident tiles may exceed the ceiling. A swapped tile whose
// frame fails its checksum or decompression is reported as ErrCorruptTile
// to the directory operation that touched it; no partial data is exposed.
package tilestore

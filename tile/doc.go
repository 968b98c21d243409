// Package tile implements 64x64 pixel tiles and the process-wide manager
// that decides which tile buffers stay in memory.
//
// # Residency
//
// Every tile is registered with a [Manager]. A tile is either resident (its
// bytes live in a buffer) or swapped (its bytes live only in a swap file as
// a compressed frame). Callers bracket buffer access with AddReader and
// RemoveReader, or with the [Guard] returned by Acquire:
//
//	g, err := t.Acquire()
//	if err != nil {
//	    return err // *CorruptTileError when the swapped frame is damaged
//	}
//	defer g.Release()
//	px := g.Data()
//
// The first reader faults a swapped tile back in. When the last reader
// leaves, the tile joins the swappable list and the eviction policy runs:
// while more tiles are resident than the ceiling allows, the least recently
// released tile is written to swap and its buffer recycled.
//
// # Buffers
//
// Buffers for pixel sizes up to 10 bytes come from fixed-size pools carved out
// of anonymous mappings. Larger tiles use aligned heap allocations.
//
// # Degraded Mode
//
// The first swap failure switches the manager into swap-forbidden mode for
// the rest of its life. Resident tiles may then exceed the ceiling; callers
// never see the failure.
//
// # Compression
//
// A [Compressor] runs in the background. It pre-compresses swappable tiles
// so eviction can write a ready frame, and it recompresses raw frames that
// were swapped out in a hurry. Compression never affects correctness: a tile
// that gains a reader drops any pending frame.
package tile

// Package swap stores compressed tile frames in anonymous temporary files.
//
// # Layout
//
// Each swap file is capped (1 GiB by default) and divided into 512-byte
// blocks. A record occupies a whole number of blocks:
//
//	[u64 LE xxhash(frame)][frame][padding]
//
// Slots are addressed by (file, block) and keep their capacity for their
// whole life, so a tile swapped out again can be rewritten in place when the
// new frame still fits.
//
// # Free Lists
//
// Freed slots are kept in one roaring bitmap per size class, keyed by the
// slot's block count. Allocation prefers the lowest free slot of the exact
// class and falls back to the file tail.
//
// # Reads
//
// Files grow by truncation and are mapped read-only; Read hands the caller a
// view straight into the mapping. If a mapping cannot be created the store
// falls back to ReadAt and reports the failure through Err so the tile
// manager can stop swapping.
//
// Files are removed on Close. Nothing survives the process.
package swap

// Package mem provides memory allocation utilities for tile buffers.
//
// # Aligned Allocation
//
// Tile buffers larger than the slab threshold come from the Go heap with
// 64-byte start alignment.
package mem

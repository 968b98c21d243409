// Package mmap maps swap files and anonymous slabs into memory.
//
// # Usage
//
// The swap store keeps a shared read-only view over each swap file and
// remaps it when the file grows:
//
//	m, err := mmap.Map(f.Fd(), size)
//	if err != nil { ... }
//	defer m.Close()
//
//	r, _ := m.Region(offset, n)
//	frame := r.Bytes()
//
// Tile pools carve fixed-size buffers out of anonymous mappings:
//
//	slab, err := mmap.Anon(64 * 64 * 4 * 64)
//
// # Platform Support
//
//   - Unix: mmap(2), with madvise(2) for access hints
//   - Windows: CreateFileMapping/MapViewOfFile and VirtualAlloc (advice is a no-op)
//
// # Thread Safety
//
// Mapping and Region are safe for concurrent reads. Close is idempotent,
// but callers must not touch slices returned by Bytes after Close.
package mmap

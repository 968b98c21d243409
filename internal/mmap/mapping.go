package mmap

import (
	"io"
	"sync/atomic"
)

// Mapping is a mapped memory range. It owns the slice and unmaps it on Close.
type Mapping struct {
	data     []byte
	size     int
	writable bool
	closed   atomic.Bool
	unmap    func([]byte) error
}

// Map creates a shared read-only view of the first size bytes of the open
// file fd. Writes through the file descriptor are visible in the view.
func Map(fd uintptr, size int) (*Mapping, error) {
	if size < 0 {
		return nil, ErrInvalidSize
	}
	if size == 0 {
		return &Mapping{}, nil
	}

	data, unmap, err := osMap(fd, size)
	if err != nil {
		return nil, err
	}
	return &Mapping{data: data, size: size, unmap: unmap}, nil
}

// Anon creates a private read-write anonymous mapping outside the Go heap.
func Anon(size int) (*Mapping, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	data, unmap, err := osMapAnon(size)
	if err != nil {
		return nil, err
	}
	return &Mapping{data: data, size: size, writable: true, unmap: unmap}, nil
}

// Close unmaps the memory. It is idempotent.
func (m *Mapping) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	if m.unmap != nil && m.data != nil {
		return m.unmap(m.data)
	}
	return nil
}

// Bytes returns the mapped memory.
// The slice is valid only until Close is called.
func (m *Mapping) Bytes() []byte {
	if m.closed.Load() {
		return nil
	}
	return m.data
}

// Size returns the size of the mapping in bytes.
func (m *Mapping) Size() int {
	return m.size
}

// Writable reports whether the mapping may be written through Bytes.
func (m *Mapping) Writable() bool {
	return m.writable
}

// Advise provides hints to the kernel about how the memory will be accessed.
func (m *Mapping) Advise(pattern AccessPattern) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if m.data == nil {
		return nil
	}
	return osAdvise(m.data, pattern)
}

// ReadAt implements io.ReaderAt.
func (m *Mapping) ReadAt(p []byte, off int64) (n int, err error) {
	if m.closed.Load() {
		return 0, ErrClosed
	}
	if off < 0 {
		return 0, ErrInvalidOffset
	}
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n = copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

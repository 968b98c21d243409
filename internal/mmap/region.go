package mmap

// Region is a window into a Mapping. It does not own the memory.
type Region struct {
	parent *Mapping
	offset int
	size   int
}

// Region returns the window [offset, offset+size) of the mapping.
func (m *Mapping) Region(offset, size int) (*Region, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}
	if offset < 0 || size < 0 || offset+size > m.size {
		return nil, ErrOutOfBounds
	}
	return &Region{parent: m, offset: offset, size: size}, nil
}

// Bytes returns the window's memory, or nil once the parent is closed.
func (r *Region) Bytes() []byte {
	if r.parent.closed.Load() {
		return nil
	}
	return r.parent.data[r.offset : r.offset+r.size]
}

// Advise provides hints to the kernel about how this region will be accessed.
func (r *Region) Advise(pattern AccessPattern) error {
	if r.parent.closed.Load() {
		return ErrClosed
	}
	return osAdvise(r.parent.data[r.offset:r.offset+r.size], pattern)
}

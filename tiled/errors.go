package tiled

import "errors"

var (
	// ErrInvalidMemento is returned when a memento is replayed in a state
	// that does not allow it, or against a directory that did not create it.
	ErrInvalidMemento = errors.New("tiled: invalid memento")

	// ErrPixelSizeMismatch is returned when pixel sizes of buffers,
	// directories or default pixels disagree.
	ErrPixelSizeMismatch = errors.New("tiled: pixel size mismatch")

	// ErrShortBuffer is returned when a caller buffer cannot hold the
	// requested rectangle.
	ErrShortBuffer = errors.New("tiled: buffer too small")

	// ErrClosed is returned by a closed directory.
	ErrClosed = errors.New("tiled: directory is closed")
)

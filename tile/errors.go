package tile

import (
	"errors"
	"fmt"
)

var (
	// ErrCorruptTile is the sentinel wrapped by *CorruptTileError.
	ErrCorruptTile = errors.New("tile: corrupt swapped data")

	// ErrSwapForbidden reports that a swap failure disabled eviction.
	ErrSwapForbidden = errors.New("tile: swapping forbidden")

	// ErrPixelSize is returned for non-positive pixel sizes or default pixels
	// whose length does not match the pixel size.
	ErrPixelSize = errors.New("tile: invalid pixel size")

	// ErrClosed is returned by a closed manager.
	ErrClosed = errors.New("tile: manager is closed")
)

// CorruptTileError reports a swapped tile whose frame failed verification
// or decompression. The tile stays swapped; no partial data is exposed.
type CorruptTileError struct {
	Col, Row int
	Cause    error
}

func (e *CorruptTileError) Error() string {
	return fmt.Sprintf("tile (%d,%d): corrupt swapped data: %v", e.Col, e.Row, e.Cause)
}

func (e *CorruptTileError) Unwrap() []error {
	return []error{ErrCorruptTile, e.Cause}
}

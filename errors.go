package tilestore

import (
	"errors"
	"fmt"

	"github.com/hupe1980/tilestore/tile"
	"github.com/hupe1980/tilestore/tiled"
)

var (
	// ErrClosed is returned by a closed engine or directory.
	ErrClosed = errors.New("tilestore: closed")

	// ErrCorruptTile reports swapped tile data that failed verification.
	ErrCorruptTile = errors.New("tilestore: corrupt tile")

	// ErrInvalidMemento reports a memento replayed in a state that does not
	// allow it.
	ErrInvalidMemento = errors.New("tilestore: invalid memento")

	// ErrInvalidConfig reports an out-of-range configuration value.
	ErrInvalidConfig = errors.New("tilestore: invalid config")
)

// ErrPixelSize indicates a pixel size or default pixel that does not fit.
//
// The underlying error can be accessed via errors.Unwrap.
type ErrPixelSize struct {
	PixelSize int
	cause     error
}

func (e *ErrPixelSize) Error() string {
	return fmt.Sprintf("invalid pixel size %d: %v", e.PixelSize, e.cause)
}

func (e *ErrPixelSize) Unwrap() error { return e.cause }

// TranslateError maps errors from the tile packages onto the sentinels of
// this package while keeping the original in the chain.
func TranslateError(err error) error {
	return translateError(err)
}

func translateError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, tile.ErrCorruptTile):
		return fmt.Errorf("%w: %w", ErrCorruptTile, err)
	case errors.Is(err, tiled.ErrInvalidMemento):
		return fmt.Errorf("%w: %w", ErrInvalidMemento, err)
	case errors.Is(err, tiled.ErrClosed), errors.Is(err, tile.ErrClosed):
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}

	return err
}

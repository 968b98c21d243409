package tiled

import (
	"fmt"

	"github.com/hupe1980/tilestore/tile"
)

// Buckets is the number of hash buckets reported by BucketHistogram.
const Buckets = 1024

// Coord addresses a tile in the grid.
type Coord struct {
	Col, Row int
}

// Hash folds the coordinate into one of Buckets buckets.
func (c Coord) Hash() int {
	return ((c.Row << 5) + (c.Col & 0x1F)) & 0x3FF
}

// Rect returns the pixel rectangle covered by the tile at c.
func (c Coord) Rect() Rect {
	return Rect{X: c.Col * tile.Width, Y: c.Row * tile.Height, W: tile.Width, H: tile.Height}
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.Col, c.Row)
}

// ColOf maps a pixel x coordinate to its tile column. Negative coordinates
// round toward negative infinity, so -1 and -64 are column -1 and -65 is -2.
func ColOf(x int) int {
	if x >= 0 {
		return x / tile.Width
	}
	return -((-x-1)/tile.Width + 1)
}

// RowOf maps a pixel y coordinate to its tile row.
func RowOf(y int) int {
	if y >= 0 {
		return y / tile.Height
	}
	return -((-y-1)/tile.Height + 1)
}

// CoordOf returns the tile containing pixel (x,y).
func CoordOf(x, y int) Coord {
	return Coord{Col: ColOf(x), Row: RowOf(y)}
}

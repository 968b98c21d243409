package tiled

import "fmt"

// Rect is a pixel rectangle. Rectangles with a non-positive width or height
// are empty.
type Rect struct {
	X, Y, W, H int
}

// R is shorthand for Rect{x, y, w, h}.
func R(x, y, w, h int) Rect { return Rect{X: x, Y: y, W: w, H: h} }

// Empty reports whether r covers no pixels.
func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

// Right returns the last column inside r.
func (r Rect) Right() int { return r.X + r.W - 1 }

// Bottom returns the last row inside r.
func (r Rect) Bottom() int { return r.Y + r.H - 1 }

// Area returns the number of pixels in r.
func (r Rect) Area() int {
	if r.Empty() {
		return 0
	}
	return r.W * r.H
}

// Intersect returns the overlap of r and o, or the zero Rect.
func (r Rect) Intersect(o Rect) Rect {
	if r.Empty() || o.Empty() {
		return Rect{}
	}
	x0, y0 := max(r.X, o.X), max(r.Y, o.Y)
	x1, y1 := min(r.Right(), o.Right()), min(r.Bottom(), o.Bottom())
	if x1 < x0 || y1 < y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0 + 1, H: y1 - y0 + 1}
}

// Intersects reports whether r and o share a pixel.
func (r Rect) Intersects(o Rect) bool { return !r.Intersect(o).Empty() }

// Contains reports whether o lies entirely inside r. An empty o is
// contained by any rectangle.
func (r Rect) Contains(o Rect) bool {
	if o.Empty() {
		return true
	}
	if r.Empty() {
		return false
	}
	return o.X >= r.X && o.Y >= r.Y && o.Right() <= r.Right() && o.Bottom() <= r.Bottom()
}

// ContainsPoint reports whether pixel (x,y) is inside r.
func (r Rect) ContainsPoint(x, y int) bool {
	return !r.Empty() && x >= r.X && y >= r.Y && x <= r.Right() && y <= r.Bottom()
}

// Union returns the smallest rectangle covering r and o.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	x0, y0 := min(r.X, o.X), min(r.Y, o.Y)
	x1, y1 := max(r.Right(), o.Right()), max(r.Bottom(), o.Bottom())
	return Rect{X: x0, Y: y0, W: x1 - x0 + 1, H: y1 - y0 + 1}
}

// Tiles returns the range of tile coordinates overlapped by r.
func (r Rect) Tiles() (first, last Coord) {
	return CoordOf(r.X, r.Y), CoordOf(r.Right(), r.Bottom())
}

func (r Rect) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.W, r.H, r.X, r.Y)
}

// forEachTile calls fn with every tile touched by r and the part of r that
// falls inside it, row by row.
func forEachTile(r Rect, fn func(c Coord, part Rect) error) error {
	if r.Empty() {
		return nil
	}
	first, last := r.Tiles()
	for row := first.Row; row <= last.Row; row++ {
		for col := first.Col; col <= last.Col; col++ {
			c := Coord{Col: col, Row: row}
			if err := fn(c, r.Intersect(c.Rect())); err != nil {
				return err
			}
		}
	}
	return nil
}

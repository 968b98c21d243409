package tiled

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColOf(t *testing.T) {
	tests := []struct {
		x, want int
	}{
		{0, 0}, {1, 0}, {63, 0}, {64, 1}, {127, 1}, {128, 2},
		{-1, -1}, {-63, -1}, {-64, -1}, {-65, -2}, {-128, -2}, {-129, -3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ColOf(tt.x), "ColOf(%d)", tt.x)
		assert.Equal(t, tt.want, RowOf(tt.x), "RowOf(%d)", tt.x)
	}

	for x := 0; x < 1000; x++ {
		assert.Equal(t, x/64, ColOf(x))
	}
	// Every pixel falls inside the rectangle of its own tile.
	for x := -300; x < 300; x++ {
		c := CoordOf(x, -x)
		assert.True(t, c.Rect().ContainsPoint(x, -x), "pixel (%d,%d) not in %s", x, -x, c)
	}
}

func TestCoord_Hash(t *testing.T) {
	assert.Equal(t, 0, Coord{0, 0}.Hash())
	assert.Equal(t, 1, Coord{1, 0}.Hash())
	assert.Equal(t, 32, Coord{0, 1}.Hash())
	assert.Equal(t, 0, Coord{32, 0}.Hash())
	assert.Equal(t, 31, Coord{-1, 0}.Hash())
	assert.Equal(t, 1023, Coord{-1, -1}.Hash())

	for col := -100; col < 100; col++ {
		for row := -100; row < 100; row++ {
			h := Coord{col, row}.Hash()
			assert.True(t, h >= 0 && h < Buckets)
		}
	}
}

func TestRect(t *testing.T) {
	a := R(0, 0, 10, 10)
	b := R(5, 5, 10, 10)

	assert.Equal(t, R(5, 5, 5, 5), a.Intersect(b))
	assert.True(t, a.Intersects(b))
	assert.Equal(t, R(0, 0, 15, 15), a.Union(b))
	assert.False(t, a.Intersects(R(10, 0, 5, 5)))
	assert.True(t, a.Intersect(R(10, 0, 5, 5)).Empty())

	assert.True(t, a.Contains(R(2, 2, 3, 3)))
	assert.False(t, a.Contains(b))
	assert.True(t, a.Contains(Rect{}))
	assert.False(t, Rect{}.Contains(a))
	assert.Equal(t, b, Rect{}.Union(b))

	assert.Equal(t, 9, a.Right())
	assert.Equal(t, 100, a.Area())
	assert.Equal(t, 0, R(0, 0, -3, 4).Area())
	assert.Equal(t, "10x10+5+5", b.String())

	first, last := R(-1, -1, 66, 2).Tiles()
	assert.Equal(t, Coord{-1, -1}, first)
	assert.Equal(t, Coord{1, 0}, last)
}

func TestForEachTile(t *testing.T) {
	r := R(-10, 60, 80, 10)

	var coords []Coord
	area := 0
	err := forEachTile(r, func(c Coord, part Rect) error {
		coords = append(coords, c)
		assert.True(t, c.Rect().Contains(part))
		assert.True(t, r.Contains(part))
		area += part.Area()
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, []Coord{{-1, 0}, {0, 0}, {1, 0}, {-1, 1}, {0, 1}, {1, 1}}, coords)
	assert.Equal(t, r.Area(), area)

	called := false
	assert.NoError(t, forEachTile(Rect{}, func(Coord, Rect) error { called = true; return nil }))
	assert.False(t, called)
}

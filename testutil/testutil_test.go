package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRNG_Deterministic(t *testing.T) {
	a := NewRNG(4711)
	b := NewRNG(4711)

	assert.Equal(t, a.Bytes(32), b.Bytes(32))
	assert.Equal(t, a.Runs(100, 8), b.Runs(100, 8))

	a.Reset()
	b.Reset()
	assert.Equal(t, a.Intn(1000), b.Intn(1000))
	assert.Equal(t, int64(4711), a.Seed())
}

func TestRNG_Runs(t *testing.T) {
	rng := NewRNG(1)
	b := rng.Runs(1000, 4)
	assert.Len(t, b, 1000)

	v := rng.IntRange(-5, 5)
	assert.GreaterOrEqual(t, v, -5)
	assert.Less(t, v, 5)
}

func TestGradient(t *testing.T) {
	img := Gradient(10, 5, 4)
	assert.Len(t, img, 10*5*4)

	off := (3*10 + 7) * 4
	assert.Equal(t, byte(7), img[off])
	assert.Equal(t, byte(3), img[off+1])
}

func TestRepeat(t *testing.T) {
	assert.Equal(t, []byte{1, 2, 1, 2, 1, 2}, Repeat([]byte{1, 2}, 3))
	assert.Empty(t, Repeat([]byte{1}, 0))
}

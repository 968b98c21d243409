package testutil

import (
	"math/rand"
	"sync"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// IntRange returns a pseudo-random number in [lo,hi).
func (r *RNG) IntRange(lo, hi int) int {
	return lo + r.Intn(hi-lo)
}

// Bytes returns n random bytes.
func (r *RNG) Bytes(n int) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := make([]byte, n)
	r.rand.Read(b)
	return b
}

// Pixel returns a random pixel of pixelSize bytes.
func (r *RNG) Pixel(pixelSize int) []byte {
	return r.Bytes(pixelSize)
}

// Noise returns an incompressible buffer of n bytes.
func (r *RNG) Noise(n int) []byte {
	return r.Bytes(n)
}

// Runs returns n bytes made of random-length runs of random values, the
// kind of data a painted tile compresses from.
func (r *RNG) Runs(n, maxRun int) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := make([]byte, 0, n)
	for len(b) < n {
		v := byte(r.rand.Intn(256))
		run := 1 + r.rand.Intn(maxRun)
		for i := 0; i < run && len(b) < n; i++ {
			b = append(b, v)
		}
	}
	return b
}

// Gradient returns a w*h image of pixelSize bytes per pixel whose first
// channel encodes x and second channel y. Pixel (x,y) is distinguishable from
// its neighbours, which makes misplaced copies easy to spot.
func Gradient(w, h, pixelSize int) []byte {
	b := make([]byte, w*h*pixelSize)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			off := (y*w + x) * pixelSize
			b[off] = byte(x)
			if pixelSize > 1 {
				b[off+1] = byte(y)
			}
			for c := 2; c < pixelSize; c++ {
				b[off+c] = byte(x ^ y ^ c)
			}
		}
	}
	return b
}

// Repeat returns n copies of pixel.
func Repeat(pixel []byte, n int) []byte {
	b := make([]byte, 0, len(pixel)*n)
	for i := 0; i < n; i++ {
		b = append(b, pixel...)
	}
	return b
}

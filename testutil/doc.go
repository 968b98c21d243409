// Package testutil provides deterministic data generators for tests and
// benchmarks.
//
//	rng := testutil.NewRNG(seed)
//	px := rng.Pixel(4)
//	frame := rng.Runs(64*64*4, 16)
//	img := testutil.Gradient(100, 80, 4)
package testutil

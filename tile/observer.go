package tile

import "time"

// Observer receives manager and compressor events.
type Observer interface {
	// OnSwapOut is called after a tile buffer of bytes was written as a
	// frame of frameBytes.
	OnSwapOut(bytes, frameBytes int, d time.Duration, err error)

	// OnSwapIn is called after a swapped tile was faulted back in.
	OnSwapIn(bytes int, d time.Duration, err error)

	// OnCompress is called after the compressor encoded in bytes into out bytes.
	OnCompress(in, out int, d time.Duration)

	// OnResident reports the resident tile count and buffer bytes.
	OnResident(tiles int, bytes int64)
}

// NoopObserver is a no-op implementation of Observer.
type NoopObserver struct{}

func (NoopObserver) OnSwapOut(bytes, frameBytes int, d time.Duration, err error) {}
func (NoopObserver) OnSwapIn(bytes int, d time.Duration, err error)              {}
func (NoopObserver) OnCompress(in, out int, d time.Duration)                     {}
func (NoopObserver) OnResident(tiles int, bytes int64)                           {}

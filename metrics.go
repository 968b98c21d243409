package tilestore

import (
	"sync/atomic"
	"time"

	"github.com/hupe1980/tilestore/tile"
)

// MetricsCollector receives swap, compression and residency events from
// the engine. Implement it to feed a monitoring system.
type MetricsCollector interface {
	// OnSwapOut is called after a tile of bytes was written to swap as a
	// frame of frameBytes. err is set when the write failed.
	OnSwapOut(bytes, frameBytes int, d time.Duration, err error)

	// OnSwapIn is called after a swapped tile was read back.
	OnSwapIn(bytes int, d time.Duration, err error)

	// OnCompress is called after the background compressor encoded a tile.
	OnCompress(in, out int, d time.Duration)

	// OnResident reports the resident tile count and buffer bytes whenever
	// they change.
	OnResident(tiles int, bytes int64)
}

var _ tile.Observer = MetricsCollector(nil)

// NoopMetricsCollector discards all events.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) OnSwapOut(int, int, time.Duration, error) {}
func (NoopMetricsCollector) OnSwapIn(int, time.Duration, error)       {}
func (NoopMetricsCollector) OnCompress(int, int, time.Duration)       {}
func (NoopMetricsCollector) OnResident(int, int64)                    {}

// BasicMetricsCollector keeps in-memory counters.
type BasicMetricsCollector struct {
	SwapOutCount      atomic.Int64
	SwapOutErrors     atomic.Int64
	SwapOutBytes      atomic.Int64
	SwapOutFrameBytes atomic.Int64
	SwapOutNanos      atomic.Int64
	SwapInCount       atomic.Int64
	SwapInErrors      atomic.Int64
	SwapInNanos       atomic.Int64
	CompressCount     atomic.Int64
	CompressIn        atomic.Int64
	CompressOut       atomic.Int64
	ResidentTiles     atomic.Int64
	ResidentBytes     atomic.Int64
	PeakResidentTiles atomic.Int64
}

// OnSwapOut implements MetricsCollector.
func (b *BasicMetricsCollector) OnSwapOut(bytes, frameBytes int, d time.Duration, err error) {
	b.SwapOutCount.Add(1)
	b.SwapOutNanos.Add(d.Nanoseconds())
	if err != nil {
		b.SwapOutErrors.Add(1)
		return
	}
	b.SwapOutBytes.Add(int64(bytes))
	b.SwapOutFrameBytes.Add(int64(frameBytes))
}

// OnSwapIn implements MetricsCollector.
func (b *BasicMetricsCollector) OnSwapIn(_ int, d time.Duration, err error) {
	b.SwapInCount.Add(1)
	b.SwapInNanos.Add(d.Nanoseconds())
	if err != nil {
		b.SwapInErrors.Add(1)
	}
}

// OnCompress implements MetricsCollector.
func (b *BasicMetricsCollector) OnCompress(in, out int, _ time.Duration) {
	b.CompressCount.Add(1)
	b.CompressIn.Add(int64(in))
	b.CompressOut.Add(int64(out))
}

// OnResident implements MetricsCollector.
func (b *BasicMetricsCollector) OnResident(tiles int, bytes int64) {
	b.ResidentTiles.Store(int64(tiles))
	b.ResidentBytes.Store(bytes)
	for {
		peak := b.PeakResidentTiles.Load()
		if int64(tiles) <= peak || b.PeakResidentTiles.CompareAndSwap(peak, int64(tiles)) {
			return
		}
	}
}

// GetStats returns a snapshot of the counters.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	s := BasicMetricsStats{
		SwapOutCount:      b.SwapOutCount.Load(),
		SwapOutErrors:     b.SwapOutErrors.Load(),
		SwapInCount:       b.SwapInCount.Load(),
		SwapInErrors:      b.SwapInErrors.Load(),
		CompressCount:     b.CompressCount.Load(),
		ResidentTiles:     b.ResidentTiles.Load(),
		ResidentBytes:     b.ResidentBytes.Load(),
		PeakResidentTiles: b.PeakResidentTiles.Load(),
	}
	if s.SwapOutCount > 0 {
		s.SwapOutAvgNanos = b.SwapOutNanos.Load() / s.SwapOutCount
	}
	if s.SwapInCount > 0 {
		s.SwapInAvgNanos = b.SwapInNanos.Load() / s.SwapInCount
	}
	if out := b.SwapOutBytes.Load(); out > 0 {
		s.SwapRatio = float64(b.SwapOutFrameBytes.Load()) / float64(out)
	}
	if in := b.CompressIn.Load(); in > 0 {
		s.CompressRatio = float64(b.CompressOut.Load()) / float64(in)
	}
	return s
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector.
type BasicMetricsStats struct {
	SwapOutCount      int64
	SwapOutErrors     int64
	SwapOutAvgNanos   int64
	SwapInCount       int64
	SwapInErrors      int64
	SwapInAvgNanos    int64
	CompressCount     int64
	ResidentTiles     int64
	ResidentBytes     int64
	PeakResidentTiles int64

	// SwapRatio is frame bytes over tile bytes for successful swap-outs.
	SwapRatio float64
	// CompressRatio is output over input bytes for background compression.
	CompressRatio float64
}

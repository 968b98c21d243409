package tilestore

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBasicMetricsCollector(t *testing.T) {
	mc := &BasicMetricsCollector{}

	mc.OnSwapOut(16384, 4096, 2*time.Millisecond, nil)
	mc.OnSwapOut(16384, 8192, 4*time.Millisecond, nil)
	mc.OnSwapOut(16384, 0, time.Millisecond, errors.New("disk full"))
	mc.OnSwapIn(16384, time.Millisecond, nil)
	mc.OnSwapIn(16384, time.Millisecond, errors.New("checksum"))
	mc.OnCompress(1000, 250, time.Microsecond)
	mc.OnResident(10, 10*16384)
	mc.OnResident(4, 4*16384)

	s := mc.GetStats()
	assert.Equal(t, int64(3), s.SwapOutCount)
	assert.Equal(t, int64(1), s.SwapOutErrors)
	assert.Equal(t, int64(time.Millisecond*7/3), s.SwapOutAvgNanos)
	assert.Equal(t, int64(2), s.SwapInCount)
	assert.Equal(t, int64(1), s.SwapInErrors)
	assert.InDelta(t, 12288.0/32768.0, s.SwapRatio, 1e-9)
	assert.InDelta(t, 0.25, s.CompressRatio, 1e-9)
	assert.Equal(t, int64(4), s.ResidentTiles)
	assert.Equal(t, int64(4*16384), s.ResidentBytes)
	assert.Equal(t, int64(10), s.PeakResidentTiles)
}

func TestBasicMetricsCollector_ConcurrentPeak(t *testing.T) {
	mc := &BasicMetricsCollector{}

	var wg sync.WaitGroup
	for i := 1; i <= 64; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			mc.OnResident(n, int64(n))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(64), mc.GetStats().PeakResidentTiles)
}

func TestNoopMetricsCollector(t *testing.T) {
	var mc MetricsCollector = NoopMetricsCollector{}
	assert.NotPanics(t, func() {
		mc.OnSwapOut(1, 1, 0, nil)
		mc.OnSwapIn(1, 0, nil)
		mc.OnCompress(1, 1, 0)
		mc.OnResident(1, 1)
	})
}

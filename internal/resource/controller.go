package resource

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrMemoryLimitExceeded is returned when a reservation would pass the memory limit.
var ErrMemoryLimitExceeded = errors.New("memory limit exceeded")

// minIOBurst keeps the token bucket large enough for a whole swapped tile
// frame even with very low byte rates.
const minIOBurst = 256 << 10

// Config holds resource limits.
type Config struct {
	// MemoryLimitBytes caps resident tile memory. Zero means tracking only.
	MemoryLimitBytes int64

	// MaxBackgroundWorkers bounds concurrent compressor jobs. Defaults to 1.
	MaxBackgroundWorkers int64

	// IOLimitBytesPerSec bounds swap file throughput. Zero means unlimited.
	IOLimitBytesPerSec int64
}

// Controller governs resident memory, background workers and swap IO.
type Controller struct {
	cfg Config

	memUsed atomic.Int64

	bgSem *semaphore.Weighted

	ioLimiter *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxBackgroundWorkers <= 0 {
		cfg.MaxBackgroundWorkers = 1
	}

	c := &Controller{
		cfg:   cfg,
		bgSem: semaphore.NewWeighted(cfg.MaxBackgroundWorkers),
	}

	if cfg.IOLimitBytesPerSec > 0 {
		burst := max(int(cfg.IOLimitBytesPerSec), minIOBurst)
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), burst)
	}

	return c
}

// AcquireMemory reserves bytes, failing fast with ErrMemoryLimitExceeded.
func (c *Controller) AcquireMemory(bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}

	limit := c.cfg.MemoryLimitBytes
	for {
		used := c.memUsed.Load()
		if limit > 0 && used+bytes > limit {
			return ErrMemoryLimitExceeded
		}
		if c.memUsed.CompareAndSwap(used, used+bytes) {
			return nil
		}
	}
}

// ForceMemory records bytes regardless of the limit. Tile buffers are never
// refused; an overcommitted controller only makes eviction more eager.
func (c *Controller) ForceMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}
	c.memUsed.Add(bytes)
}

// ReleaseMemory releases reserved memory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the current memory usage in bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// MemoryLimit returns the configured memory limit in bytes (0 if unlimited).
func (c *Controller) MemoryLimit() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.MemoryLimitBytes
}

// OverMemoryLimit reports whether usage exceeds a configured limit.
func (c *Controller) OverMemoryLimit() bool {
	if c == nil || c.cfg.MemoryLimitBytes <= 0 {
		return false
	}
	return c.memUsed.Load() > c.cfg.MemoryLimitBytes
}

// AcquireBackground reserves a background worker slot, blocking while all are busy.
func (c *Controller) AcquireBackground(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.bgSem.Acquire(ctx, 1)
}

// ReleaseBackground releases a background worker slot.
func (c *Controller) ReleaseBackground() {
	if c == nil {
		return
	}
	c.bgSem.Release(1)
}

// AcquireIO waits until the IO limit admits bytes. Requests larger than the
// bucket are admitted in burst-sized steps.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || c.ioLimiter == nil {
		return nil
	}
	burst := c.ioLimiter.Burst()
	for bytes > 0 {
		n := min(bytes, burst)
		if err := c.ioLimiter.WaitN(ctx, n); err != nil {
			return err
		}
		bytes -= n
	}
	return nil
}

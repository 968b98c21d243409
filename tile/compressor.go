package tile

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/tilestore/internal/cache"
	"github.com/hupe1980/tilestore/internal/resource"
)

// Compressor compresses tiles in the background. Its queue has its own lock;
// the manager lock is only taken for the short copy and commit steps of a job.
type Compressor struct {
	mgr      *Manager
	logger   *slog.Logger
	observer Observer
	rc       *resource.Controller
	workers  int

	mu       sync.Mutex
	queue    *cache.ReleaseOrder[*Tile]
	inflight map[*Tile]struct{}
	wake     chan struct{}

	life    sync.Mutex
	cancel  context.CancelFunc
	group   *errgroup.Group
	running atomic.Bool

	processed atomic.Int64
}

// CompressorOption configures a Compressor.
type CompressorOption func(*Compressor)

// WithWorkers sets the number of worker goroutines. Defaults to 1.
func WithWorkers(n int) CompressorOption {
	return func(c *Compressor) {
		if n > 0 {
			c.workers = n
		}
	}
}

// NewCompressor creates a compressor and attaches it to m. Until Start is
// called, queued work only runs through Drain.
func NewCompressor(m *Manager, opts ...CompressorOption) *Compressor {
	c := &Compressor{
		mgr:      m,
		logger:   m.logger,
		observer: m.observer,
		rc:       m.rc,
		workers:  1,
		queue:    cache.NewReleaseOrder[*Tile](),
		inflight: make(map[*Tile]struct{}),
		wake:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	m.attachCompressor(c)
	return c
}

// Start launches the workers. It is a no-op when already running.
func (c *Compressor) Start(ctx context.Context) {
	c.life.Lock()
	defer c.life.Unlock()

	if c.running.Load() {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < c.workers; i++ {
		g.Go(func() error {
			return c.run(gctx)
		})
	}
	c.cancel, c.group = cancel, g
	c.running.Store(true)
	c.logger.Debug("tile compressor started", "workers", c.workers)
}

// Stop cancels the workers and waits for them. Queued tiles stay queued.
func (c *Compressor) Stop() error {
	c.life.Lock()
	defer c.life.Unlock()

	if !c.running.Load() {
		return nil
	}
	c.running.Store(false)
	c.cancel()

	err := c.group.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	c.logger.Debug("tile compressor stopped", "processed", c.processed.Load(), "pending", c.Pending())
	return err
}

// Running reports whether the workers are active.
func (c *Compressor) Running() bool {
	return c.running.Load()
}

// Enqueue schedules t. Tiles already queued or being compressed are left alone.
func (c *Compressor) Enqueue(t *Tile) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, busy := c.inflight[t]; busy || c.queue.Contains(t) {
		return
	}
	c.queue.PushBack(t)
	c.signal()
}

// Dequeue removes a queued tile. A tile being compressed is left to finish;
// its result is discarded if the tile is gone by then.
func (c *Compressor) Dequeue(t *Tile) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, busy := c.inflight[t]; busy {
		return
	}
	c.queue.Remove(t)
}

// Pending returns the number of queued tiles.
func (c *Compressor) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.Len()
}

// Processed returns the number of jobs that produced a frame.
func (c *Compressor) Processed() int64 {
	return c.processed.Load()
}

// Drain runs every queued job on the calling goroutine and returns how many
// produced a frame.
func (c *Compressor) Drain() int {
	n := 0
	for {
		t, ok := c.next()
		if !ok {
			return n
		}
		if c.process(t) {
			n++
		}
		c.finish(t)
	}
}

func (c *Compressor) run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		t, ok := c.next()
		if !ok {
			select {
			case <-ctx.Done():
				return nil
			case <-c.wake:
				continue
			}
		}

		if err := c.rc.AcquireBackground(ctx); err != nil {
			c.requeue(t)
			return nil
		}
		c.process(t)
		c.rc.ReleaseBackground()
		c.finish(t)

		// Keep the manager lock available to foreground readers.
		runtime.Gosched()
	}
}

func (c *Compressor) next() (*Tile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.queue.PopOldest()
	if !ok {
		return nil, false
	}
	c.inflight[t] = struct{}{}
	if c.queue.Len() > 0 {
		c.signal()
	}
	return t, true
}

func (c *Compressor) finish(t *Tile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, t)
}

func (c *Compressor) requeue(t *Tile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, t)
	c.queue.PushBack(t)
}

// signal wakes one idle worker. Callers hold c.mu.
func (c *Compressor) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Compressor) process(t *Tile) bool {
	start := time.Now()
	in, out, ok := c.mgr.compress(t)
	if !ok {
		return false
	}
	c.observer.OnCompress(in, out, time.Since(start))
	c.processed.Add(1)
	return true
}

package tilestore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/tilestore/internal/resource"
	"github.com/hupe1980/tilestore/internal/swap"
	"github.com/hupe1980/tilestore/tile"
	"github.com/hupe1980/tilestore/tiled"
)

// Engine owns the process-wide tile manager, its swap store and the
// background compressor. Create one per process and share it between all
// directories.
type Engine struct {
	mu sync.Mutex

	cfg     Config
	logger  *Logger
	metrics MetricsCollector

	rc   *resource.Controller
	mgr  *tile.Manager
	comp *tile.Compressor

	dirs   map[*tiled.Directory]struct{}
	closed bool
}

// Stats is a snapshot of engine state.
type Stats struct {
	tile.Stats

	Directories         int
	CompressorPending   int
	CompressorProcessed int64
	MemoryUsage         int64

	// MemoryLimit is the configured resident memory cap; zero means none.
	MemoryLimit int64
}

// New creates an engine. Swap files are created lazily in the configured
// directory and removed by Close.
func New(optFns ...Option) (*Engine, error) {
	o := applyOptions(optFns)

	cfg := o.config.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cd, err := cfg.codec()
	if err != nil {
		return nil, err
	}
	if cfg.SwapDir != "" {
		if err := o.fileSystem.MkdirAll(cfg.SwapDir, 0o700); err != nil {
			return nil, fmt.Errorf("tilestore: create swap dir: %w", err)
		}
	}

	rc := resource.NewController(resource.Config{
		MemoryLimitBytes:     cfg.MemoryLimitBytes,
		MaxBackgroundWorkers: int64(max(1, cfg.CompressorWorkers)),
		IOLimitBytesPerSec:   cfg.SwapIOBytesPerSec,
	})

	store := swap.New(
		swap.WithFileSystem(o.fileSystem),
		swap.WithDir(cfg.SwapDir),
		swap.WithMaxFileSize(cfg.MaxSwapFileSize),
		swap.WithResourceController(rc),
		swap.WithLogger(o.logger.With("component", "swap")),
	)

	mgr := tile.NewManager(
		tile.WithLogger(o.logger.With("component", "tiles")),
		tile.WithObserver(o.metricsCollector),
		tile.WithSwapStore(store),
		tile.WithCodec(cd),
		tile.WithLimits(cfg.MaxResidentTiles, cfg.Swappiness),
		tile.WithResourceController(rc),
	)

	e := &Engine{
		cfg:     cfg,
		logger:  o.logger,
		metrics: o.metricsCollector,
		rc:      rc,
		mgr:     mgr,
		dirs:    make(map[*tiled.Directory]struct{}),
	}

	if cfg.CompressorWorkers > 0 && cd != nil {
		e.comp = tile.NewCompressor(mgr, tile.WithWorkers(cfg.CompressorWorkers))
		e.comp.Start(context.Background())
	}

	e.logger.LogConfig(context.Background(), cfg)
	return e, nil
}

// NewDirectory creates an empty directory of pixelSize-byte pixels whose
// missing tiles read as defaultPixel.
func (e *Engine) NewDirectory(pixelSize int, defaultPixel []byte, opts ...tiled.Option) (*tiled.Directory, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}

	opts = append([]tiled.Option{tiled.WithLogger(e.logger.With("component", "directory"))}, opts...)
	d, err := tiled.New(e.mgr, pixelSize, defaultPixel, opts...)
	if err != nil {
		if errors.Is(err, tiled.ErrPixelSizeMismatch) || errors.Is(err, tile.ErrPixelSize) {
			return nil, &ErrPixelSize{PixelSize: pixelSize, cause: err}
		}
		return nil, translateError(err)
	}
	e.dirs[d] = struct{}{}
	return d, nil
}

// ReleaseDirectory closes d and forgets it.
func (e *Engine) ReleaseDirectory(d *tiled.Directory) error {
	e.mu.Lock()
	delete(e.dirs, d)
	e.mu.Unlock()
	return translateError(d.Close())
}

// ApplyConfig re-reads the resident ceiling inputs and runs the eviction
// policy at once. Other settings only take effect on a new engine.
func (e *Engine) ApplyConfig(cfg Config) error {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}

	e.mgr.SetLimits(cfg.MaxResidentTiles, cfg.Swappiness)
	e.cfg.MaxResidentTiles, e.cfg.Swappiness = e.mgr.Limits()

	if cfg.Codec != e.cfg.Codec || cfg.SwapDir != e.cfg.SwapDir || cfg.CompressorWorkers != e.cfg.CompressorWorkers {
		e.logger.Warn("some settings need a restart to take effect",
			"codec", cfg.Codec, "swap_dir", cfg.SwapDir, "compressor_workers", cfg.CompressorWorkers)
	}
	e.logger.Info("tile limits applied",
		"max_resident_tiles", e.cfg.MaxResidentTiles, "swappiness", e.cfg.Swappiness)
	return nil
}

// Config returns the effective settings.
func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// Manager returns the process-wide tile manager.
func (e *Engine) Manager() *tile.Manager { return e.mgr }

// SwapErr reports why swapping was disabled, or nil.
func (e *Engine) SwapErr() error { return e.mgr.SwapErr() }

// Stats returns a snapshot of engine state.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	dirs := len(e.dirs)
	e.mu.Unlock()

	s := Stats{
		Stats:       e.mgr.Stats(),
		Directories: dirs,
		MemoryUsage: e.rc.MemoryUsage(),
		MemoryLimit: e.rc.MemoryLimit(),
	}
	if e.comp != nil {
		s.CompressorPending = e.comp.Pending()
		s.CompressorProcessed = e.comp.Processed()
	}
	return s
}

// Close stops the compressor, closes every directory created by e and
// deletes the swap files.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true

	var errs []error
	if e.comp != nil {
		errs = append(errs, e.comp.Stop())
	}
	n := len(e.dirs)
	for d := range e.dirs {
		errs = append(errs, d.Close())
	}
	clear(e.dirs)
	errs = append(errs, e.mgr.Close())

	err := errors.Join(errs...)
	e.logger.LogClose(context.Background(), n, err)
	return err
}

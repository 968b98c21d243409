package tilestore

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with tile-engine specific helpers so that log
// records use consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger for handler. A nil handler logs text at INFO
// to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger creates a Logger that writes JSON records at or above level.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger creates a Logger that writes human-readable records at or
// above level.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards everything.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.DiscardHandler)}
}

// WithDirectory tags records with a directory name.
func (l *Logger) WithDirectory(name string) *Logger {
	return &Logger{Logger: l.Logger.With("directory", name)}
}

// LogConfig logs the effective engine configuration.
func (l *Logger) LogConfig(ctx context.Context, cfg Config) {
	l.InfoContext(ctx, "tile engine configured",
		"max_resident_tiles", cfg.MaxResidentTiles,
		"swappiness", cfg.Swappiness,
		"codec", cfg.Codec,
		"swap_dir", cfg.SwapDir,
		"compressor_workers", cfg.CompressorWorkers,
	)
}

// LogSwapForbidden logs the switch to degraded mode.
func (l *Logger) LogSwapForbidden(ctx context.Context, resident, ceiling int, err error) {
	l.WarnContext(ctx, "swap forbidden, resident tiles may exceed the ceiling",
		"resident", resident,
		"ceiling", ceiling,
		"error", err,
	)
}

// LogCorruption logs a tile whose swapped data could not be restored.
func (l *Logger) LogCorruption(ctx context.Context, col, row int, err error) {
	l.ErrorContext(ctx, "corrupt tile",
		"col", col,
		"row", row,
		"error", err,
	)
}

// LogClose logs engine shutdown.
func (l *Logger) LogClose(ctx context.Context, directories int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "tile engine close failed",
			"directories", directories,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "tile engine closed", "directories", directories)
}

package tilestore

import (
	"log/slog"

	"github.com/hupe1980/tilestore/internal/fs"
)

type options struct {
	config           Config
	metricsCollector MetricsCollector
	logger           *Logger
	fileSystem       fs.FileSystem
}

// Option configures New.
type Option func(*options)

// WithConfig sets the engine settings. Zero fields take their defaults.
//
// Example loading persisted settings:
//
//	cfg, err := tilestore.LoadConfig("tiles.yaml")
//	if err != nil {
//	    return err
//	}
//	eng, err := tilestore.New(tilestore.WithConfig(cfg))
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.config = cfg
	}
}

// WithMetricsCollector receives swap and residency events. Pass nil to
// disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &tilestore.BasicMetricsCollector{}
//	eng, _ := tilestore.New(tilestore.WithMetricsCollector(metrics))
//	// ... paint ...
//	fmt.Println(metrics.GetStats().SwapOutCount)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging. Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel is shorthand for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithFileSystem replaces the file system used for swap files.
func WithFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) {
		o.fileSystem = fsys
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		config:           DefaultConfig(),
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		fileSystem:       fs.Default,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

package tiled

import "log/slog"

// Option configures a Directory.
type Option func(*options)

type options struct {
	logger *slog.Logger
	name   string
}

// WithLogger sets the logger used for undo/redo diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithName labels the directory in log output.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

func defaultOptions() options {
	return options{
		logger: slog.New(slog.DiscardHandler),
	}
}

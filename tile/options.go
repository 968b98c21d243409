package tile

import (
	"log/slog"

	"github.com/hupe1980/tilestore/codec"
	"github.com/hupe1980/tilestore/internal/resource"
	"github.com/hupe1980/tilestore/internal/swap"
)

const (
	// DefaultMaxResidentTiles is the resident ceiling at swappiness 100.
	DefaultMaxResidentTiles = 4000
	// DefaultSwappiness leaves the ceiling equal to the configured maximum.
	DefaultSwappiness = 100

	minSwappiness = 1
	maxSwappiness = 1000
)

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger for the manager.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithObserver sets the observer for swap and residency events.
func WithObserver(o Observer) Option {
	return func(m *Manager) {
		if o != nil {
			m.observer = o
		}
	}
}

// WithSwapStore sets the backing store. The manager takes ownership and
// closes it on Close.
func WithSwapStore(s *swap.Store) Option {
	return func(m *Manager) {
		m.store = s
	}
}

// WithCodec sets the codec used for swap frames. A nil codec stores raw frames.
func WithCodec(c codec.Codec) Option {
	return func(m *Manager) {
		m.codec = c
	}
}

// WithLimits sets the resident ceiling inputs.
func WithLimits(maxResidentTiles, swappiness int) Option {
	return func(m *Manager) {
		m.maxResident, m.swappiness = normalizeLimits(maxResidentTiles, swappiness)
	}
}

// WithResourceController sets the controller that accounts resident bytes
// and rate-limits swap IO.
func WithResourceController(rc *resource.Controller) Option {
	return func(m *Manager) {
		m.rc = rc
	}
}

// Ceiling returns the resident tile count above which a manager with these
// limits starts evicting.
func Ceiling(maxResidentTiles, swappiness int) int {
	m, s := normalizeLimits(maxResidentTiles, swappiness)
	return max(1, m*DefaultSwappiness/s)
}

func normalizeLimits(maxResident, swappiness int) (int, int) {
	if maxResident <= 0 {
		maxResident = DefaultMaxResidentTiles
	}
	if swappiness == 0 {
		swappiness = DefaultSwappiness
	}
	return maxResident, min(max(swappiness, minSwappiness), maxSwappiness)
}

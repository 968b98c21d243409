package tilestore

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/hupe1980/tilestore/codec"
	"github.com/hupe1980/tilestore/internal/swap"
	"github.com/hupe1980/tilestore/tile"
)

// CodecRaw disables swap compression.
const CodecRaw = "raw"

// Config holds the persisted engine settings. Zero values select the
// defaults.
type Config struct {
	// MaxResidentTiles is the number of tiles kept in memory at swappiness 100.
	MaxResidentTiles int `yaml:"maxResidentTiles"`

	// Swappiness scales the resident ceiling: the engine starts swapping
	// above MaxResidentTiles*100/Swappiness tiles. Clamped to [1,1000].
	Swappiness int `yaml:"swappiness"`

	// SwapDir holds the anonymous swap files. Empty means os.TempDir.
	SwapDir string `yaml:"swapDir,omitempty"`

	// Codec names the swap frame codec: lzf, lz4, zstd or raw.
	Codec string `yaml:"codec"`

	// CompressorWorkers is the number of background compression workers.
	// Zero disables background compression.
	CompressorWorkers int `yaml:"compressorWorkers"`

	// SwapIOBytesPerSec throttles swap file IO. Zero means unlimited.
	SwapIOBytesPerSec int64 `yaml:"swapIOBytesPerSec,omitempty"`

	// MaxSwapFileSize caps each swap file.
	MaxSwapFileSize int64 `yaml:"maxSwapFileSize"`

	// MemoryLimitBytes makes the manager evict whenever resident tile
	// buffers exceed it. Zero disables the byte limit.
	MemoryLimitBytes int64 `yaml:"memoryLimitBytes,omitempty"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		MaxResidentTiles:  tile.DefaultMaxResidentTiles,
		Swappiness:        tile.DefaultSwappiness,
		Codec:             codec.Default.Name(),
		CompressorWorkers: 1,
		MaxSwapFileSize:   swap.DefaultMaxFileSize,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxResidentTiles == 0 {
		c.MaxResidentTiles = def.MaxResidentTiles
	}
	if c.Swappiness == 0 {
		c.Swappiness = def.Swappiness
	}
	if c.Codec == "" {
		c.Codec = def.Codec
	}
	if c.MaxSwapFileSize == 0 {
		c.MaxSwapFileSize = def.MaxSwapFileSize
	}
	return c
}

// Validate reports the first out-of-range field.
func (c Config) Validate() error {
	switch {
	case c.MaxResidentTiles < 0:
		return fmt.Errorf("%w: maxResidentTiles %d", ErrInvalidConfig, c.MaxResidentTiles)
	case c.Swappiness < 0:
		return fmt.Errorf("%w: swappiness %d", ErrInvalidConfig, c.Swappiness)
	case c.CompressorWorkers < 0:
		return fmt.Errorf("%w: compressorWorkers %d", ErrInvalidConfig, c.CompressorWorkers)
	case c.SwapIOBytesPerSec < 0:
		return fmt.Errorf("%w: swapIOBytesPerSec %d", ErrInvalidConfig, c.SwapIOBytesPerSec)
	case c.MaxSwapFileSize < 0 || (c.MaxSwapFileSize > 0 && c.MaxSwapFileSize < swap.BlockSize):
		return fmt.Errorf("%w: maxSwapFileSize %d", ErrInvalidConfig, c.MaxSwapFileSize)
	case c.MemoryLimitBytes < 0:
		return fmt.Errorf("%w: memoryLimitBytes %d", ErrInvalidConfig, c.MemoryLimitBytes)
	}
	if _, err := c.codec(); err != nil {
		return err
	}
	return nil
}

// ResidentCeiling returns the resident tile count above which an engine
// with these settings swaps.
func (c Config) ResidentCeiling() int {
	return tile.Ceiling(c.MaxResidentTiles, c.Swappiness)
}

// codec resolves Codec. Raw yields a nil codec.
func (c Config) codec() (codec.Codec, error) {
	if c.Codec == CodecRaw {
		return nil, nil
	}
	cd, ok := codec.ByName(c.Codec)
	if !ok {
		return nil, fmt.Errorf("%w: unknown codec %q", ErrInvalidConfig, c.Codec)
	}
	return cd, nil
}

// ParseConfig decodes YAML settings. Unknown keys are rejected and missing
// keys take their defaults.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.UnmarshalWithOptions(data, &cfg, yaml.DisallowUnknownField()); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads settings from a YAML file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("tilestore: load config: %w", err)
	}
	return ParseConfig(data)
}

// YAML renders c as YAML.
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

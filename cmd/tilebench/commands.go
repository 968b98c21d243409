package main

import (
	"log/slog"

	"github.com/scott-cotton/cli"

	"github.com/hupe1980/tilestore"
)

const usageText = `tilebench - exercise a tile engine under a memory budget

Usage:
  tilebench stress [-tiles N] [-max M] [-swappiness S] [-codec C]
  tilebench codecs [files]
  tilebench dump -o out.bmp [-size N] [-scale PCT]
  tilebench config [-f file]

Examples:
  tilebench stress -tiles 5000 -max 200 -codec zstd
  tilebench codecs testdata/*.raw
  tilebench dump -o canvas.bmp -max 4
  tilebench config -f tiles.yaml`

// MainCommand returns the root command.
func MainCommand() *cli.Command {
	return cli.NewCommand("tilebench").
		WithSynopsis("tilebench <command> [opts]").
		WithDescription(usageText).
		WithSubs(
			StressCommand(),
			CodecsCommand(),
			DumpCommand(),
			ConfigCommand(),
		)
}

// engineFlags are shared by commands that build an engine.
type engineFlags struct {
	ConfigFile string `cli:"name=f aliases=config desc='YAML settings file'"`
	Max        int    `cli:"name=max desc='max resident tiles at swappiness 100'"`
	Swappiness int    `cli:"name=swappiness desc='resident ceiling scale, 1..1000'"`
	Codec      string `cli:"name=codec desc='swap codec: lzf, lz4, zstd or raw'"`
	Workers    int    `cli:"name=workers desc='background compressor workers'"`
	SwapDir    string `cli:"name=swap-dir desc='directory for swap files'"`
	Verbose    bool   `cli:"name=v desc='log tile traffic at debug level'"`
	JSON       bool   `cli:"name=json desc='log JSON records'"`
}

// config merges the settings file and the flags. Zero flags keep the file
// value.
func (f *engineFlags) config() (tilestore.Config, error) {
	cfg := tilestore.DefaultConfig()
	if f.ConfigFile != "" {
		var err error
		if cfg, err = tilestore.LoadConfig(f.ConfigFile); err != nil {
			return cfg, err
		}
	}
	if f.Max != 0 {
		cfg.MaxResidentTiles = f.Max
	}
	if f.Swappiness != 0 {
		cfg.Swappiness = f.Swappiness
	}
	if f.Codec != "" {
		cfg.Codec = f.Codec
	}
	if f.Workers != 0 {
		cfg.CompressorWorkers = f.Workers
	}
	if f.SwapDir != "" {
		cfg.SwapDir = f.SwapDir
	}
	return cfg, cfg.Validate()
}

func (f *engineFlags) logger() *tilestore.Logger {
	level := slog.LevelWarn
	if f.Verbose {
		level = slog.LevelDebug
	}
	if f.JSON {
		return tilestore.NewJSONLogger(level)
	}
	return tilestore.NewTextLogger(level)
}

func (f *engineFlags) engine(mc tilestore.MetricsCollector) (*tilestore.Engine, *tilestore.Logger, error) {
	cfg, err := f.config()
	if err != nil {
		return nil, nil, err
	}
	logger := f.logger()
	eng, err := tilestore.New(
		tilestore.WithConfig(cfg),
		tilestore.WithLogger(logger),
		tilestore.WithMetricsCollector(mc),
	)
	if err != nil {
		return nil, nil, err
	}
	return eng, logger, nil
}

// structOpts collects the tagged options of every struct in vs.
func structOpts(vs ...any) []*cli.Opt {
	var opts []*cli.Opt
	for _, v := range vs {
		o, err := cli.StructOpts(v)
		if err != nil {
			panic(err)
		}
		opts = append(opts, o...)
	}
	return opts
}

package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/scott-cotton/cli"

	"github.com/hupe1980/tilestore/codec"
	"github.com/hupe1980/tilestore/testutil"
	"github.com/hupe1980/tilestore/tile"
)

type codecsConfig struct {
	Codecs    *cli.Command
	PixelSize int `cli:"name=pixel-size desc='bytes per pixel of the sample tiles (default 4)'"`
	Rounds    int `cli:"name=rounds desc='encode/decode rounds per sample (default 20)'"`
}

// CodecsCommand returns the codecs subcommand.
func CodecsCommand() *cli.Command {
	cfg := &codecsConfig{}
	return cli.NewCommandAt(&cfg.Codecs, "codecs").
		WithSynopsis("codecs [-pixel-size N] [-rounds N] [files]").
		WithDescription("compare swap codecs on synthetic tiles or on tiles cut from files").
		WithOpts(structOpts(cfg)...).
		WithRun(func(cc *cli.Context, args []string) error {
			return codecs(cfg, cc, args)
		})
}

type sample struct {
	name  string
	tiles [][]byte
}

func codecs(cfg *codecsConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Codecs.Parse(cc, args)
	if err != nil {
		return err
	}
	if cfg.PixelSize <= 0 {
		cfg.PixelSize = 4
	}
	if cfg.Rounds <= 0 {
		cfg.Rounds = 20
	}
	tileBytes := tile.Width * tile.Height * cfg.PixelSize

	var samples []sample
	if len(args) == 0 {
		samples = syntheticSamples(tileBytes, cfg.PixelSize)
	}
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		s := sample{name: filepath.Base(path)}
		for off := 0; off+tileBytes <= len(data); off += tileBytes {
			s.tiles = append(s.tiles, data[off:off+tileBytes])
		}
		if len(s.tiles) == 0 {
			return fmt.Errorf("%w: %s is smaller than one %d-byte tile", cli.ErrUsage, path, tileBytes)
		}
		samples = append(samples, s)
	}

	p := newPalette(cc.Out)
	fmt.Fprintln(cc.Out, p.head("%-12s %-6s %8s %10s %10s", "sample", "codec", "ratio", "enc MB/s", "dec MB/s"))
	names := append([]string{"raw"}, codec.Names()...)
	for _, s := range samples {
		for _, name := range names {
			cd, _ := codec.ByName(name)
			if name == "raw" {
				cd = nil
			}
			r, err := measure(cd, s.tiles, cfg.Rounds)
			if err != nil {
				fmt.Fprintln(cc.Out, p.bad("%-12s %-6s %v", s.name, name, err))
				return cli.ExitCodeErr(1)
			}
			ratio := fmt.Sprintf("%8.3f", r.ratio)
			switch {
			case r.ratio < 0.5:
				ratio = p.good("%s", ratio)
			case r.ratio >= 1:
				ratio = p.dim("%s", ratio)
			}
			fmt.Fprintf(cc.Out, "%-12s %-6s %s %10.1f %10.1f\n", s.name, name, ratio, r.encMBps, r.decMBps)
		}
	}
	return nil
}

func syntheticSamples(tileBytes, pixelSize int) []sample {
	rng := testutil.NewRNG(1)
	const n = 16
	mk := func(name string, gen func() []byte) sample {
		s := sample{name: name}
		for i := 0; i < n; i++ {
			s.tiles = append(s.tiles, gen())
		}
		return s
	}
	return []sample{
		mk("flat", func() []byte { return testutil.Repeat(rng.Pixel(pixelSize), tileBytes/pixelSize) }),
		mk("gradient", func() []byte { return testutil.Gradient(tile.Width, tile.Height, pixelSize) }),
		mk("strokes", func() []byte { return rng.Runs(tileBytes, 96) }),
		mk("noise", func() []byte { return rng.Noise(tileBytes) }),
	}
}

type result struct {
	ratio   float64
	encMBps float64
	decMBps float64
}

// measure round-trips every tile through cd and fails on any mismatch.
func measure(cd codec.Codec, tiles [][]byte, rounds int) (result, error) {
	var (
		in, out    int
		encT, decT time.Duration
	)
	dst := make([]byte, len(tiles[0]))
	for r := 0; r < rounds; r++ {
		for _, t := range tiles {
			start := time.Now()
			frame := codec.Encode(cd, t)
			encT += time.Since(start)

			start = time.Now()
			n, err := codec.Decompress(frame, dst[:len(t)])
			decT += time.Since(start)
			if err != nil {
				return result{}, err
			}
			if n != len(t) || !bytes.Equal(dst[:n], t) {
				return result{}, fmt.Errorf("%w: round trip mismatch", codec.ErrCorrupt)
			}
			in += len(t)
			out += len(frame)
		}
	}
	mb := float64(in) / (1 << 20)
	return result{
		ratio:   float64(out) / float64(in),
		encMBps: mb / max(encT.Seconds(), 1e-9),
		decMBps: mb / max(decT.Seconds(), 1e-9),
	}, nil
}

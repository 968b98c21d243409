package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/scott-cotton/cli"

	"github.com/hupe1980/tilestore"
	"github.com/hupe1980/tilestore/testutil"
	"github.com/hupe1980/tilestore/tile"
	"github.com/hupe1980/tilestore/tiled"
)

type stressConfig struct {
	Stress *cli.Command
	Engine *engineFlags

	Tiles     int  `cli:"name=tiles desc='number of tiles to paint (default 2000)'"`
	PixelSize int  `cli:"name=pixel-size desc='bytes per pixel (default 4)'"`
	Seed      int  `cli:"name=seed desc='random seed'"`
	Undo      bool `cli:"name=undo desc='paint a second pass inside a memento and roll it back'"`
}

// StressCommand returns the stress subcommand.
func StressCommand() *cli.Command {
	cfg := &stressConfig{Engine: &engineFlags{}}
	return cli.NewCommandAt(&cfg.Stress, "stress").
		WithSynopsis("stress [-tiles N] [-max M] [-swappiness S] [-codec C] [-undo]").
		WithDescription("paint tiles under a resident budget and verify every byte reads back").
		WithOpts(structOpts(cfg.Engine, cfg)...).
		WithRun(func(cc *cli.Context, args []string) error {
			return stress(cfg, cc, args)
		})
}

func stress(cfg *stressConfig, cc *cli.Context, args []string) error {
	if _, err := cfg.Stress.Parse(cc, args); err != nil {
		return err
	}
	if cfg.Tiles == 0 {
		cfg.Tiles = 2000
	}
	if cfg.PixelSize == 0 {
		cfg.PixelSize = 4
	}
	if cfg.Tiles < 0 || cfg.PixelSize < 0 {
		return fmt.Errorf("%w: -tiles and -pixel-size must be positive", cli.ErrUsage)
	}

	mc := &tilestore.BasicMetricsCollector{}
	eng, logger, err := cfg.Engine.engine(mc)
	if err != nil {
		return err
	}
	defer eng.Close()

	dir, err := eng.NewDirectory(cfg.PixelSize, make([]byte, cfg.PixelSize), tiled.WithName("stress"))
	if err != nil {
		return err
	}

	ctx := context.Background()
	logger = logger.WithDirectory("stress")
	p := newPalette(cc.Out)
	side := 1
	for side*side < cfg.Tiles {
		side++
	}

	start := time.Now()
	if err := paintTiles(dir, cfg.Tiles, side, cfg.Seed); err != nil {
		return reportTileError(ctx, logger, err)
	}
	painted := time.Since(start)

	var m *tiled.Memento
	if cfg.Undo {
		if m, err = dir.GetMemento(); err != nil {
			return err
		}
		if err := paintTiles(dir, cfg.Tiles, side, cfg.Seed+1); err != nil {
			return reportTileError(ctx, logger, err)
		}
		if err := dir.Rollback(m); err != nil {
			return reportTileError(ctx, logger, err)
		}
	}

	start = time.Now()
	bad, err := verifyTiles(dir, cfg.Tiles, side, cfg.Seed)
	if err != nil {
		return reportTileError(ctx, logger, err)
	}
	verified := time.Since(start)

	st := eng.Stats()
	if swapErr := eng.SwapErr(); swapErr != nil {
		logger.LogSwapForbidden(ctx, st.Resident, st.Ceiling, swapErr)
	}

	ms := mc.GetStats()
	fmt.Fprintln(cc.Out, p.head("stress: %d tiles of %d-byte pixels", cfg.Tiles, cfg.PixelSize))
	fmt.Fprintf(cc.Out, "  paint        %v\n", painted.Round(time.Millisecond))
	fmt.Fprintf(cc.Out, "  verify       %v\n", verified.Round(time.Millisecond))
	fmt.Fprintf(cc.Out, "  ceiling      %d\n", st.Ceiling)
	fmt.Fprintf(cc.Out, "  resident     %d (peak %d, %d bytes)\n", st.Resident, ms.PeakResidentTiles, st.ResidentBytes)
	fmt.Fprintf(cc.Out, "  swapped      %d\n", st.Swapped)
	fmt.Fprintf(cc.Out, "  buffers      %d outstanding\n", st.OutstandingBuffers)
	fmt.Fprintf(cc.Out, "  swap out/in  %d / %d\n", st.SwapOuts, st.SwapIns)
	fmt.Fprintf(cc.Out, "  swap files   %d (%d bytes used, %d free)\n", st.Swap.Files, st.Swap.UsedBytes, st.Swap.FreeBytes)
	if ms.SwapRatio > 0 {
		fmt.Fprintf(cc.Out, "  frame ratio  %.3f\n", ms.SwapRatio)
	}
	if st.CompressorProcessed > 0 {
		fmt.Fprintf(cc.Out, "  compressed   %d in background (%d pending)\n", st.CompressorProcessed, st.CompressorPending)
	}
	if m != nil {
		fmt.Fprintf(cc.Out, "  memento      %s, %d saved tiles\n", m.State(), m.NumTiles())
	}
	if st.SwapForbidden {
		fmt.Fprintln(cc.Out, p.warn("  swapping was forbidden during the run"))
	}
	if bad > 0 {
		fmt.Fprintln(cc.Out, p.bad("  %d tiles read back wrong", bad))
		return cli.ExitCodeErr(1)
	}
	fmt.Fprintln(cc.Out, p.good("  all tiles verified"))
	return nil
}

// tilePixel is the fill pixel of tile i for seed.
func tilePixel(i, seed, pixelSize int) []byte {
	rng := testutil.NewRNG(int64(seed)*1_000_003 + int64(i))
	return rng.Pixel(pixelSize)
}

func paintTiles(dir *tiled.Directory, n, side, seed int) error {
	ps := dir.PixelSize()
	for i := 0; i < n; i++ {
		c := tiled.Coord{Col: i % side, Row: i / side}
		if err := dir.Clear(c.Rect(), tilePixel(i, seed, ps)); err != nil {
			return err
		}
	}
	return nil
}

func verifyTiles(dir *tiled.Directory, n, side, seed int) (int, error) {
	ps := dir.PixelSize()
	buf := make([]byte, tile.Width*tile.Height*ps)
	bad := 0
	for i := 0; i < n; i++ {
		c := tiled.Coord{Col: i % side, Row: i / side}
		if err := dir.ReadBytes(c.Rect(), buf, 0); err != nil {
			return bad, err
		}
		want := tilePixel(i, seed, ps)
		if !bytes.Equal(buf, bytes.Repeat(want, tile.Width*tile.Height)) {
			bad++
		}
	}
	return bad, nil
}

func reportTileError(ctx context.Context, logger *tilestore.Logger, err error) error {
	var cte *tile.CorruptTileError
	if errors.As(err, &cte) {
		logger.LogCorruption(ctx, cte.Col, cte.Row, err)
	}
	return tilestore.TranslateError(err)
}

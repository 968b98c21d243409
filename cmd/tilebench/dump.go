package main

import (
	"fmt"
	"image"
	"io"
	"os"

	"github.com/scott-cotton/cli"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"

	"github.com/hupe1980/tilestore/testutil"
	"github.com/hupe1980/tilestore/tiled"
)

type dumpConfig struct {
	Dump   *cli.Command
	Engine *engineFlags

	Out   string `cli:"name=o desc='output BMP file, - for stdout'"`
	Size  int    `cli:"name=size desc='canvas edge in pixels (default 512)'"`
	Scale int    `cli:"name=scale desc='resample the region to this percentage'"`
}

// DumpCommand returns the dump subcommand.
func DumpCommand() *cli.Command {
	cfg := &dumpConfig{Engine: &engineFlags{}}
	return cli.NewCommandAt(&cfg.Dump, "dump").
		WithSynopsis("dump -o out.bmp [-size N] [-scale PCT] [-max M]").
		WithDescription("paint a test canvas into an RGBA directory and export its extent as BMP").
		WithOpts(structOpts(cfg.Engine, cfg)...).
		WithRun(func(cc *cli.Context, args []string) error {
			return dump(cfg, cc, args)
		})
}

func dump(cfg *dumpConfig, cc *cli.Context, args []string) error {
	if _, err := cfg.Dump.Parse(cc, args); err != nil {
		return err
	}
	if cfg.Out == "" {
		return fmt.Errorf("%w: -o is required", cli.ErrUsage)
	}
	if cfg.Size <= 0 {
		cfg.Size = 512
	}

	eng, _, err := cfg.Engine.engine(nil)
	if err != nil {
		return err
	}
	defer eng.Close()

	dir, err := eng.NewDirectory(4, []byte{255, 255, 255, 255}, tiled.WithName("canvas"))
	if err != nil {
		return err
	}
	if err := paintCanvas(dir, cfg.Size); err != nil {
		return err
	}

	ext := dir.Extent()
	img := image.NewRGBA(image.Rect(0, 0, ext.W, ext.H))
	if err := dir.ReadBytes(ext, img.Pix, img.Stride); err != nil {
		return err
	}

	var out image.Image = img
	if cfg.Scale > 0 && cfg.Scale != 100 {
		w := max(1, ext.W*cfg.Scale/100)
		h := max(1, ext.H*cfg.Scale/100)
		scaled := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), img, img.Bounds(), draw.Src, nil)
		out = scaled
	}

	var w io.Writer = cc.Out
	if cfg.Out != "-" {
		f, err := os.Create(cfg.Out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := bmp.Encode(w, out); err != nil {
		return err
	}

	if cfg.Out != "-" {
		st := eng.Stats()
		p := newPalette(cc.Out)
		fmt.Fprintln(cc.Out, p.head("wrote %s", cfg.Out))
		fmt.Fprintf(cc.Out, "  extent  %s\n", ext)
		fmt.Fprintf(cc.Out, "  tiles   %d (%d swapped, %d swap-ins)\n", dir.NumTiles(), st.Swapped, st.SwapIns)
	}
	return nil
}

// paintCanvas draws a gradient square with an opaque frame and a ring.
func paintCanvas(dir *tiled.Directory, size int) error {
	grad := testutil.Gradient(size, size, 4)
	for i := 3; i < len(grad); i += 4 {
		grad[i] = 255
	}
	if err := dir.WriteBytes(tiled.R(0, 0, size, size), grad, 0); err != nil {
		return err
	}

	frame := []byte{32, 32, 32, 255}
	const border = 8
	for _, r := range []tiled.Rect{
		tiled.R(0, 0, size, border),
		tiled.R(0, size-border, size, border),
		tiled.R(0, 0, border, size),
		tiled.R(size-border, 0, border, size),
	} {
		if err := dir.Clear(r, frame); err != nil {
			return err
		}
	}

	ring := []byte{220, 40, 40, 255}
	c, r := size/2, size/3
	for y := c - r; y <= c+r; y++ {
		for x := c - r; x <= c+r; x++ {
			d := (x-c)*(x-c) + (y-c)*(y-c)
			if d <= r*r && d >= (r-6)*(r-6) {
				if err := dir.SetPixel(x, y, ring); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

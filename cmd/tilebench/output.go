package main

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// palette colours report output when it goes to a terminal.
type palette struct {
	head func(format string, a ...any) string
	good func(format string, a ...any) string
	warn func(format string, a ...any) string
	bad  func(format string, a ...any) string
	dim  func(format string, a ...any) string
}

func newPalette(w io.Writer) palette {
	enabled := false
	if f, ok := w.(*os.File); ok {
		enabled = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	mk := func(attrs ...color.Attribute) func(string, ...any) string {
		c := color.New(attrs...)
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c.SprintfFunc()
	}
	return palette{
		head: mk(color.Bold, color.FgCyan),
		good: mk(color.FgGreen),
		warn: mk(color.FgYellow),
		bad:  mk(color.Bold, color.FgRed),
		dim:  mk(color.Faint),
	}
}

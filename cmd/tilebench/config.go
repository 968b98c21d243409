package main

import (
	"fmt"

	"github.com/scott-cotton/cli"

	"github.com/hupe1980/tilestore"
)

type configConfig struct {
	Config *cli.Command
	File   string `cli:"name=f aliases=file desc='YAML settings file to validate'"`
}

// ConfigCommand returns the config subcommand.
func ConfigCommand() *cli.Command {
	cfg := &configConfig{}
	return cli.NewCommandAt(&cfg.Config, "config").
		WithSynopsis("config [-f file]").
		WithDescription("print the effective settings, with defaults filled in").
		WithOpts(structOpts(cfg)...).
		WithRun(func(cc *cli.Context, args []string) error {
			return printConfig(cfg, cc, args)
		})
}

func printConfig(cfg *configConfig, cc *cli.Context, args []string) error {
	if _, err := cfg.Config.Parse(cc, args); err != nil {
		return err
	}

	c := tilestore.DefaultConfig()
	if cfg.File != "" {
		var err error
		if c, err = tilestore.LoadConfig(cfg.File); err != nil {
			return err
		}
	}
	data, err := c.YAML()
	if err != nil {
		return err
	}

	p := newPalette(cc.Out)
	src := "defaults"
	if cfg.File != "" {
		src = cfg.File
	}
	fmt.Fprintln(cc.Out, p.dim("# %s, resident ceiling %d tiles", src, c.ResidentCeiling()))
	_, err = cc.Out.Write(data)
	return err
}

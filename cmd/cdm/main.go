package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/SNUH-BMI/CDM/internal/cli"
	"github.com/SNUH-BMI/CDM/internal/config"
)

const quickStart = `cdm - clinical device export normalization

Quick start:
  cdm merge -i /data/baxter -o /data/out      Merge .LOX archives per machine and year
  cdm textlog -i /data/exalis -o /data/out    Collect device parameter dumps
  cdm waveform -i /data/edf -o /data/json     Convert EDF recordings to JSON
  cdm registry                                Show how archive members are decoded

For help:
  cdm --help
`

func main() {
	if len(os.Args) == 1 {
		fmt.Print(quickStart)
		return
	}

	// CDM_CONFIG points at an explicit file; otherwise the standard locations are searched
	var (
		cfg *config.Config
		err error
	)
	if path := os.Getenv("CDM_CONFIG"); path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		cfg = config.Default()
	}

	var c cli.CLI
	kctx := kong.Parse(&c,
		kong.Name("cdm"),
		kong.Description("Normalize clinical device exports into analysis tables"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
		kong.Vars(cli.Vars(cfg)),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	globals, err := cli.NewGlobals(ctx, &c, cfg, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	err = kctx.Run(globals)
	_ = globals.Logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

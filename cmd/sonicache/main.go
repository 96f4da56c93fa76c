package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	app := newApp(NewRunner(RunnerOpts{}))
	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp(runner *Runner) *cli.Command {
	return &cli.Command{
		Name:    "sonicache",
		Usage:   "Browse and warm the local cache of a Subsonic music server",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log to the terminal at debug level",
			},
		},
		Before:   runner.Before,
		After:    runner.After,
		Commands: runner.register(),
	}
}

package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.App{
		Name:        appName,
		Description: "downloads torrents on request, a bounded number at a time",
		Commands: []*cli.Command{{
			Name:        "serve",
			Aliases:     []string{"run"},
			Description: "serve the torrent api until interrupted",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name: "readmit",
					Usage: "before serving, start again every torrent a " +
						"previous process left active",
				},
			},
			Action: withConfig(serve),
		}, {
			Name: "reconcile",
			Description: "mark every torrent a previous process left " +
				"active as failed",
			Action: withConfig(reconcile),
		}},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func withConfig(f func(*Config, *cli.Context) error) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		c, err := LoadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := c.Validate(); err != nil {
			return err
		}
		slog.SetLogLoggerLevel(c.LogLevel)
		return f(c, ctx)
	}
}

func logger(component string) *slog.Logger {
	return slog.Default().With("component", component)
}

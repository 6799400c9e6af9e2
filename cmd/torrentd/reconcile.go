package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"torrentd/pkg/td"
)

func reconcile(c *Config, cctx *cli.Context) error {
	torrents, closeStore, err := c.openStore(cctx.Context)
	if err != nil {
		return err
	}
	defer closeStore()

	reconciler := td.Reconciler{
		Torrents: torrents,
		Logger:   logger("RECONCILER"),
	}
	report, err := reconciler.Reconcile(cctx.Context)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		return fmt.Errorf("printing reconcile report: %w", err)
	}
	return nil
}

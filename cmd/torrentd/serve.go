package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"torrentd/pkg/td"
	"torrentd/pkg/td/api"
	"torrentd/pkg/td/engine/anacrolix"
	"torrentd/pkg/td/engine/rain"
)

func serve(c *Config, cctx *cli.Context) error {
	ctx, stop := signal.NotifyContext(
		cctx.Context,
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	torrents, closeStore, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	storage, err := c.openStorage()
	if err != nil {
		return err
	}

	engine, closeEngine, err := c.openEngine()
	if err != nil {
		return err
	}
	defer closeEngine()

	orchestrator := td.NewOrchestrator(
		c.Capacity,
		engine,
		torrents,
		storage,
		logger("ORCHESTRATOR"),
	)
	orchestrator.AdmissionTimeout = c.AdmissionTimeout
	orchestrator.PersistTimeout = c.PersistTimeout

	if cctx.Bool("readmit") {
		reconciler := td.Reconciler{
			Torrents:     torrents,
			Logger:       logger("RECONCILER"),
			Orchestrator: orchestrator,
			Trackers:     c.Trackers,
		}
		report, err := reconciler.Reconcile(ctx)
		if err != nil {
			return fmt.Errorf("serving: %w", err)
		}
		reconciler.Logger.Info(
			"reconciled torrents",
			"readmits", len(report.Readmits),
			"failed", len(report.Failed),
		)
	}

	torrentAPI := api.API{
		Sessions: orchestrator,
		Trackers: c.Trackers,
		Logger:   logger("TORRENT-API"),
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error { return torrentAPI.Run(ctx, c.Addr) })
	group.Go(func() error {
		<-ctx.Done()
		return orchestrator.Close()
	})
	return group.Wait()
}

// openStore connects to postgres when a database is configured. Without one,
// records only live as long as the process.
func (c *Config) openStore(
	ctx context.Context,
) (td.TorrentStore, func(), error) {
	if c.DatabaseURL == "" {
		logger("STORE").Warn("no database configured; using memory store")
		return new(td.MemoryTorrentStore), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, c.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf(
			"connecting to postgres database: %w",
			err,
		)
	}
	store := td.PostgresTorrentStore{DB: pool}
	if err := store.EnsureTable(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return store, pool.Close, nil
}

func (c *Config) openStorage() (td.BillyStorage, error) {
	if err := os.MkdirAll(c.DataDirectory, 0755); err != nil {
		return td.BillyStorage{}, fmt.Errorf(
			"creating data directory: %w",
			err,
		)
	}
	return td.BillyStorage{FS: osfs.New(c.DataDirectory)}, nil
}

func (c *Config) openEngine() (td.Engine, func(), error) {
	switch c.Engine {
	case EngineRain:
		return rain.NewEngine(
			c.RainServerURL,
			c.PollInterval,
			logger("RAIN-ENGINE"),
		), func() {}, nil
	default:
		engine, err := anacrolix.NewEngine(
			c.DataDirectory,
			c.PollInterval,
			logger("ANACROLIX-ENGINE"),
		)
		if err != nil {
			return nil, nil, err
		}
		return engine, func() {
			if err := engine.Close(); err != nil {
				engine.Logger.Error("closing engine", "err", err.Error())
			}
		}, nil
	}
}

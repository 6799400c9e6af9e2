// Package anacrolix runs download sessions in-process on
// github.com/anacrolix/torrent.
package anacrolix

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/anacrolix/torrent"
	"github.com/anacrolix/torrent/storage"

	"torrentd/pkg/td"
)

type Engine struct {
	Client       *torrent.Client
	Logger       *slog.Logger
	PollInterval time.Duration
}

var _ td.Engine = (*Engine)(nil)

// NewEngine creates a torrent client whose default data directory is
// `dataDir`. Each session still writes to the directory it is given.
func NewEngine(
	dataDir string,
	pollInterval time.Duration,
	logger *slog.Logger,
) (*Engine, error) {
	config := torrent.NewDefaultClientConfig()
	config.DataDir = dataDir
	config.Seed = false

	client, err := torrent.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("creating torrent client: %w", err)
	}
	return &Engine{
		Client:       client,
		Logger:       logger,
		PollInterval: pollInterval,
	}, nil
}

func (e *Engine) Close() error {
	if errs := e.Client.Close(); len(errs) > 0 {
		return fmt.Errorf("closing torrent client: %v", errs)
	}
	return nil
}

// StartSession adds the torrent to the client and starts polling it. The
// session outlives `ctx`; it only ends when it is stopped, completes or is
// closed by the client.
func (e *Engine) StartSession(
	ctx context.Context,
	spec td.SessionSpec,
	dir string,
	onProgress func(td.Stats),
) (td.SessionHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("starting session: %w", err)
	}

	h, err := spec.InfoHash.Hash()
	if err != nil {
		return nil, fmt.Errorf("starting session: %w", err)
	}

	files := storage.NewFile(dir)
	t, added := e.Client.AddTorrentOpt(torrent.AddTorrentOpts{
		InfoHash: h,
		Storage:  files,
	})
	if !added {
		_ = files.Close()
		return nil, fmt.Errorf(
			"starting session: torrent `%s` already in client",
			spec.InfoHash,
		)
	}
	if spec.Name != "" {
		t.SetDisplayName(spec.Name)
	}
	if len(spec.Trackers) > 0 {
		t.AddTrackers([][]string{spec.Trackers})
	}

	s := &session{
		torrent:  t,
		storage:  files,
		stop:     make(chan struct{}),
		interval: e.PollInterval,
		logger:   e.Logger.With("infoHash", spec.InfoHash),
	}
	if s.interval <= 0 {
		s.interval = time.Second
	}
	go s.run(onProgress)
	return s, nil
}

type session struct {
	torrent  *torrent.Torrent
	storage  storage.ClientImplCloser
	stop     chan struct{}
	once     sync.Once
	interval time.Duration
	logger   *slog.Logger
}

// Stop drops the torrent from the client. It does not wait for the polling
// goroutine, since it may be called from within a progress callback.
func (s *session) Stop() (err error) {
	s.once.Do(func() {
		close(s.stop)
		s.torrent.Drop()
		if e := s.storage.Close(); e != nil {
			err = fmt.Errorf("closing torrent storage: %w", e)
		}
	})
	return
}

func (s *session) stopped() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

func (s *session) run(onProgress func(td.Stats)) {
	s.logger.Debug("awaiting torrent metadata")
	select {
	case <-s.stop:
		return
	case <-s.torrent.Closed():
		if !s.stopped() {
			onProgress(td.Stats{Err: td.ErrSessionClosed})
		}
		return
	case <-s.torrent.GotInfo():
	}

	s.logger.Debug("downloading torrent")
	s.torrent.DownloadAll()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-s.torrent.Closed():
			if !s.stopped() {
				onProgress(td.Stats{Err: td.ErrSessionClosed})
			}
			return
		case <-ticker.C:
			stats := td.Stats{
				Completed: uint64(s.torrent.BytesCompleted()),
				Total:     uint64(s.torrent.Length()),
			}
			onProgress(stats)
			if _, terminal := stats.Outcome(); terminal {
				return
			}
		}
	}
}

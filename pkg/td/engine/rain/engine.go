// Package rain runs download sessions on a remote rain daemon over its
// JSON-RPC interface. The daemon decides where data is written, so the
// destination directory handed to sessions is only logged.
package rain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/rain/rainrpc"

	"torrentd/pkg/td"
)

type Engine struct {
	Client       *rainrpc.Client
	Logger       *slog.Logger
	PollInterval time.Duration

	// MaxPollFailures is the number of consecutive failed stats requests
	// after which a session is reported as failed.
	MaxPollFailures int
}

var _ td.Engine = (*Engine)(nil)

func NewEngine(
	serverURL string,
	pollInterval time.Duration,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		Client:          rainrpc.NewClient(serverURL),
		Logger:          logger,
		PollInterval:    pollInterval,
		MaxPollFailures: 5,
	}
}

func (e *Engine) StartSession(
	ctx context.Context,
	spec td.SessionSpec,
	dir string,
	onProgress func(td.Stats),
) (td.SessionHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("starting session: %w", err)
	}

	id := spec.InfoHash.String()
	logger := e.Logger.With("infoHash", spec.InfoHash, "torrent", id)
	if _, err := e.Client.AddURI(
		td.Magnet(spec.Name, spec.InfoHash, spec.Trackers...),
		&rainrpc.AddTorrentOptions{ID: id},
	); err != nil {
		// the daemon keeps stopped torrents around, so a torrent from an
		// earlier session may still exist under the same id.
		if e2 := e.Client.StartTorrent(id); e2 != nil {
			return nil, fmt.Errorf(
				"starting session: %w",
				errors.Join(err, e2),
			)
		}
		logger.Debug("resumed existing torrent")
	}
	logger.Debug("started torrent", "dir", dir)

	s := &session{
		client:      e.Client,
		id:          id,
		stop:        make(chan struct{}),
		interval:    e.PollInterval,
		maxFailures: e.MaxPollFailures,
		logger:      logger,
	}
	if s.interval <= 0 {
		s.interval = time.Second
	}
	if s.maxFailures <= 0 {
		s.maxFailures = 1
	}
	go s.run(onProgress)
	return s, nil
}

type session struct {
	client      *rainrpc.Client
	id          string
	stop        chan struct{}
	once        sync.Once
	interval    time.Duration
	maxFailures int
	logger      *slog.Logger
}

func (s *session) Stop() (err error) {
	s.once.Do(func() {
		close(s.stop)
		if e := s.client.StopTorrent(s.id); e != nil {
			err = fmt.Errorf("stopping torrent `%s`: %w", s.id, e)
		}
	})
	return
}

func (s *session) run(onProgress func(td.Stats)) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var failures int
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
		}

		stats, err := s.client.GetTorrentStats(s.id)
		if err != nil {
			failures++
			s.logger.Error(
				"fetching torrent stats",
				"err", err.Error(),
				"failures", failures,
			)
			if failures >= s.maxFailures {
				onProgress(td.Stats{Err: fmt.Errorf(
					"fetching torrent stats: %w",
					err,
				)})
				return
			}
			continue
		}
		failures = 0

		select {
		case <-s.stop:
			return
		default:
		}

		report := translate(stats.Status, stats.Bytes.Completed, stats.Bytes.Total)
		onProgress(report)
		if _, terminal := report.Outcome(); terminal {
			return
		}
	}
}

const (
	statusStopped          = "Stopped"
	statusFetchingMetadata = "Downloading Metadata"
	statusSeeding          = "Seeding"
)

// translate converts a rain stats response into a progress report. Progress
// counts verified bytes, not bytes fetched from peers, so torrents resumed
// from earlier data report what is actually on disk. The daemon only seeds
// complete torrents, so seeding is success; a torrent which the daemon
// stopped on its own is treated as failed.
func translate(status string, completed, total int64) td.Stats {
	switch status {
	case statusStopped:
		return td.Stats{Err: ErrStoppedByDaemon}
	case statusSeeding:
		if total < 1 {
			total = 1
		}
		return td.Stats{Completed: uint64(total), Total: uint64(total)}
	case statusFetchingMetadata:
		return td.Stats{}
	}
	if total <= 0 {
		return td.Stats{}
	}
	if completed < 0 {
		completed = 0
	}
	return td.Stats{Completed: uint64(completed), Total: uint64(total)}
}

var ErrStoppedByDaemon = errors.New("torrent stopped by rain daemon")

package td

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Reconciler repairs torrent records left behind by a process which exited
// while sessions were live. It is a maintenance task and never runs on its
// own.
type Reconciler struct {
	Torrents TorrentStore
	Logger   *slog.Logger

	// Orchestrator, when set, is used to admit stale torrents again instead of
	// failing them. Stale torrents which cannot be admitted are failed.
	Orchestrator *Orchestrator

	// Trackers are announced for readmitted torrents, since records do not
	// keep the trackers of the magnet link they were created from.
	Trackers []string
}

type ReconcileReport struct {
	Failed   []InfoHash `json:"failed"`
	Readmits []InfoHash `json:"readmits"`
}

const interruptedMessage = "process exited while the torrent was active"

func (r *Reconciler) Reconcile(
	ctx context.Context,
) (report ReconcileReport, err error) {
	torrents, err := r.Torrents.ListTorrents(ctx)
	if err != nil {
		return report, fmt.Errorf("reconciling torrents: %w", err)
	}

	for i := range torrents {
		torrent := &torrents[i]
		if torrent.Status.Terminal() {
			continue
		}
		if r.Orchestrator != nil && r.Orchestrator.Active(torrent.InfoHash) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("reconciling torrents: %w", err)
		}

		logger := r.Logger.With(
			"infoHash", torrent.InfoHash,
			"status", torrent.Status,
		)

		if r.Orchestrator != nil {
			result, err := r.Orchestrator.Start(ctx, SessionSpec{
				InfoHash: torrent.InfoHash,
				Name:     torrent.Name,
				Trackers: r.Trackers,
			})
			if result == Accepted {
				logger.Info("readmitted stale torrent")
				report.Readmits = append(report.Readmits, torrent.InfoHash)
				continue
			}
			if result == RejectedDuplicateSession {
				continue
			}
			attrs := []any{"result", result}
			if err != nil {
				attrs = append(attrs, "err", err.Error())
			}
			logger.Warn("readmitting stale torrent", attrs...)
		}

		torrent.Status = TorrentStatusFailure
		torrent.Error = interruptedMessage
		torrent.Updated = time.Now()
		if err := r.Torrents.PutTorrent(ctx, torrent); err != nil {
			logger.Error("failing stale torrent", "err", err.Error())
			continue
		}
		logger.Info("failed stale torrent")
		report.Failed = append(report.Failed, torrent.InfoHash)
	}

	return report, nil
}

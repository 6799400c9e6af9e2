package testsupport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"torrentd/pkg/td"
)

// Store wraps a `td.MemoryTorrentStore` and records every status written with
// `PutTorrent`, so tests can assert on how many terminal writes happened.
type Store struct {
	td.MemoryTorrentStore

	// PutErr, if set, is returned from every `PutTorrent` call.
	PutErr error

	lock   sync.Mutex
	writes map[td.InfoHash][]td.TorrentStatus
}

var _ td.TorrentStore = (*Store)(nil)

func (store *Store) PutTorrent(ctx context.Context, torrent *td.Torrent) error {
	if store.PutErr != nil {
		return store.PutErr
	}
	if err := store.MemoryTorrentStore.PutTorrent(ctx, torrent); err != nil {
		return err
	}
	store.lock.Lock()
	defer store.lock.Unlock()
	if store.writes == nil {
		store.writes = make(map[td.InfoHash][]td.TorrentStatus)
	}
	store.writes[torrent.InfoHash] = append(
		store.writes[torrent.InfoHash],
		torrent.Status,
	)
	return nil
}

// Writes returns the statuses written for `infoHash`, oldest first.
func (store *Store) Writes(infoHash td.InfoHash) []td.TorrentStatus {
	store.lock.Lock()
	defer store.lock.Unlock()
	return append([]td.TorrentStatus(nil), store.writes[infoHash]...)
}

// TerminalWrites counts the terminal statuses written for `infoHash`.
func (store *Store) TerminalWrites(infoHash td.InfoHash) (n int) {
	for _, status := range store.Writes(infoHash) {
		if status.Terminal() {
			n++
		}
	}
	return
}

// Status fetches the persisted status for `infoHash`, or an empty status if
// there is no record.
func (store *Store) Status(infoHash td.InfoHash) td.TorrentStatus {
	torrent, err := store.FetchTorrent(context.Background(), infoHash)
	if err != nil {
		return ""
	}
	return torrent.Status
}

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var ErrEngine = errors.New("engine failure")

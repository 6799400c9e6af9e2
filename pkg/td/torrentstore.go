package td

import (
	"context"
	"errors"
	"fmt"
)

// TorrentStore persists torrent records. `PutTorrent` only updates existing
// records; a record that was deleted is never brought back by a late status
// write.
type TorrentStore interface {
	ListTorrents(ctx context.Context) ([]Torrent, error)
	FetchTorrent(ctx context.Context, infoHash InfoHash) (Torrent, error)
	CreateTorrent(ctx context.Context, torrent *Torrent) error
	PutTorrent(ctx context.Context, torrent *Torrent) error
	DeleteTorrent(ctx context.Context, infoHash InfoHash) error
}

func As[T error](err error) (typedErr T) {
	errors.As(err, &typedErr)
	return
}

type TorrentExistsErr struct {
	InfoHash InfoHash `json:"infoHash"`
}

func (err *TorrentExistsErr) Error() string {
	return fmt.Sprintf("torrent exists for info hash: %s", err.InfoHash)
}

type TorrentNotFoundErr struct {
	InfoHash InfoHash `json:"infoHash"`
}

func (err *TorrentNotFoundErr) Error() string {
	return fmt.Sprintf("torrent not found for info hash: %s", err.InfoHash)
}

// TorrentActiveErr reports that a torrent was admitted again while an
// operation which requires it to be idle was in progress.
type TorrentActiveErr struct {
	InfoHash InfoHash
}

func (err *TorrentActiveErr) Error() string {
	return fmt.Sprintf("torrent `%s` is active", err.InfoHash)
}

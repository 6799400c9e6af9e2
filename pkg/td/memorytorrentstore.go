package td

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

type MemoryTorrentStore struct {
	lock     sync.RWMutex
	torrents map[InfoHash]Torrent
}

var _ TorrentStore = (*MemoryTorrentStore)(nil)

func (store *MemoryTorrentStore) ListTorrents(
	ctx context.Context,
) (torrents []Torrent, err error) {
	store.lock.RLock()
	defer store.lock.RUnlock()

	torrents = make([]Torrent, 0, len(store.torrents))
	for _, torrent := range store.torrents {
		torrents = append(torrents, torrent)
	}

	// map iteration order is random; keep listings stable for callers
	sort.Slice(torrents, func(i, j int) bool {
		if torrents[i].Created.Equal(torrents[j].Created) {
			return torrents[i].InfoHash.String() <
				torrents[j].InfoHash.String()
		}
		return torrents[i].Created.Before(torrents[j].Created)
	})
	return
}

func (store *MemoryTorrentStore) FetchTorrent(
	ctx context.Context,
	infoHash InfoHash,
) (Torrent, error) {
	store.lock.RLock()
	defer store.lock.RUnlock()

	torrent, exists := store.torrents[infoHash]
	if !exists {
		return Torrent{}, fmt.Errorf(
			"fetching torrent: %w",
			&TorrentNotFoundErr{InfoHash: infoHash},
		)
	}
	return torrent, nil
}

func (store *MemoryTorrentStore) CreateTorrent(
	ctx context.Context,
	torrent *Torrent,
) error {
	store.lock.Lock()
	defer store.lock.Unlock()

	if _, exists := store.torrents[torrent.InfoHash]; exists {
		return fmt.Errorf(
			"creating torrent: %w",
			&TorrentExistsErr{InfoHash: torrent.InfoHash},
		)
	}

	if store.torrents == nil {
		store.torrents = make(map[InfoHash]Torrent)
	}
	store.torrents[torrent.InfoHash] = *torrent
	return nil
}

func (store *MemoryTorrentStore) PutTorrent(
	ctx context.Context,
	torrent *Torrent,
) error {
	store.lock.Lock()
	defer store.lock.Unlock()

	if _, exists := store.torrents[torrent.InfoHash]; !exists {
		return fmt.Errorf(
			"putting torrent: %w",
			&TorrentNotFoundErr{InfoHash: torrent.InfoHash},
		)
	}
	store.torrents[torrent.InfoHash] = *torrent
	return nil
}

func (store *MemoryTorrentStore) DeleteTorrent(
	ctx context.Context,
	infoHash InfoHash,
) error {
	store.lock.Lock()
	defer store.lock.Unlock()

	if _, exists := store.torrents[infoHash]; !exists {
		return fmt.Errorf(
			"deleting torrent: %w",
			&TorrentNotFoundErr{InfoHash: infoHash},
		)
	}
	delete(store.torrents, infoHash)
	return nil
}

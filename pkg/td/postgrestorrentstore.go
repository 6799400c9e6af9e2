package td

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresTorrentStore struct {
	DB *pgxpool.Pool
}

var _ TorrentStore = PostgresTorrentStore{}

func (store PostgresTorrentStore) EnsureTable(ctx context.Context) error {
	if _, err := store.DB.Exec(ctx, ensureTableQuery); err != nil {
		return fmt.Errorf("ensuring torrents table: %w", err)
	}
	return nil
}

const ensureTableQuery = `
CREATE TABLE IF NOT EXISTS torrents (
	infohash TEXT PRIMARY KEY,
	id TEXT UNIQUE NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	created TIMESTAMPTZ NOT NULL,
	updated TIMESTAMPTZ NOT NULL
);`

func (store PostgresTorrentStore) ListTorrents(
	ctx context.Context,
) (torrents []Torrent, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("listing torrents: %w", err)
		}
	}()

	var rows pgx.Rows
	if rows, err = store.DB.Query(ctx, listTorrentsQuery); err != nil {
		return
	}
	defer rows.Close()

	for rows.Next() {
		var row Torrent
		if err = scanTorrent(rows, &row); err != nil {
			err = fmt.Errorf("scanning into torrents: %w", err)
			return
		}
		torrents = append(torrents, row)
	}
	err = rows.Err()
	return
}

const listTorrentsQuery = `
SELECT infohash, id, name, status, error, created, updated
FROM torrents
ORDER BY created, infohash;`

func (store PostgresTorrentStore) FetchTorrent(
	ctx context.Context,
	infoHash InfoHash,
) (torrent Torrent, err error) {
	if err = scanTorrent(
		store.DB.QueryRow(ctx, fetchTorrentQuery, infoHash),
		&torrent,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = &TorrentNotFoundErr{InfoHash: infoHash}
		}
		err = fmt.Errorf("fetching torrent `%s`: %w", infoHash, err)
	}
	return
}

const fetchTorrentQuery = `
SELECT infohash, id, name, status, error, created, updated
FROM torrents
WHERE infohash = $1;`

func (store PostgresTorrentStore) CreateTorrent(
	ctx context.Context,
	torrent *Torrent,
) (err error) {
	if _, err = store.DB.Exec(
		ctx,
		createTorrentQuery,
		torrent.InfoHash,
		torrent.ID,
		torrent.Name,
		torrent.Status,
		torrent.Error,
		torrent.Created,
		torrent.Updated,
	); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			err = &TorrentExistsErr{InfoHash: torrent.InfoHash}
		}
		err = fmt.Errorf("creating torrent `%s`: %w", torrent.InfoHash, err)
	}
	return
}

const createTorrentQuery = `
INSERT INTO torrents (infohash, id, name, status, error, created, updated)
VALUES ($1, $2, $3, $4, $5, $6, $7);`

const uniqueViolation = "23505"

func (store PostgresTorrentStore) PutTorrent(
	ctx context.Context,
	torrent *Torrent,
) error {
	tag, err := store.DB.Exec(
		ctx,
		putTorrentQuery,
		torrent.InfoHash,
		torrent.Name,
		torrent.Status,
		torrent.Error,
		torrent.Updated,
	)
	if err != nil {
		return fmt.Errorf("putting torrent `%s`: %w", torrent.InfoHash, err)
	}
	if tag.RowsAffected() < 1 {
		return fmt.Errorf(
			"putting torrent: %w",
			&TorrentNotFoundErr{InfoHash: torrent.InfoHash},
		)
	}
	return nil
}

const putTorrentQuery = `
UPDATE torrents SET name=$2, status=$3, error=$4, updated=$5
WHERE infohash=$1;`

func (store PostgresTorrentStore) DeleteTorrent(
	ctx context.Context,
	infoHash InfoHash,
) (err error) {
	var sentinel int
	if err = store.DB.QueryRow(
		ctx,
		deleteTorrentQuery,
		infoHash,
	).Scan(&sentinel); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = fmt.Errorf(
				"deleting torrent: %w",
				&TorrentNotFoundErr{InfoHash: infoHash},
			)
		} else {
			err = fmt.Errorf("deleting torrent `%s`: %w", infoHash, err)
		}
	}
	return
}

const deleteTorrentQuery = `DELETE FROM torrents WHERE infohash=$1 RETURNING 1;`

func scanTorrent(row pgx.Row, torrent *Torrent) error {
	return row.Scan(
		&torrent.InfoHash,
		&torrent.ID,
		&torrent.Name,
		&torrent.Status,
		&torrent.Error,
		&torrent.Created,
		&torrent.Updated,
	)
}

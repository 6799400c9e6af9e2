package td

import "time"

// Torrent is the durable record of a download request.
type Torrent struct {
	ID       string        `json:"id"`
	InfoHash InfoHash      `json:"infoHash"`
	Name     string        `json:"name"`
	Status   TorrentStatus `json:"status"`
	Error    string        `json:"error,omitempty"`
	Created  time.Time     `json:"created"`
	Updated  time.Time     `json:"updated"`
}

type TorrentStatus string

const (
	TorrentStatusIdle        TorrentStatus = "IDLE"
	TorrentStatusDownloading TorrentStatus = "DOWNLOADING"
	TorrentStatusSuccess     TorrentStatus = "SUCCESS"
	TorrentStatusFailure     TorrentStatus = "FAILURE"
	TorrentStatusCancelled   TorrentStatus = "CANCELLED"
)

// Terminal reports whether the status can only be left by starting a new
// download for the same info hash.
func (status TorrentStatus) Terminal() bool {
	switch status {
	case TorrentStatusSuccess, TorrentStatusFailure, TorrentStatusCancelled:
		return true
	default:
		return false
	}
}

// TorrentView is a torrent record decorated with the in-memory progress of its
// session, if any.
type TorrentView struct {
	Torrent
	Progress Progress `json:"progress"`
}

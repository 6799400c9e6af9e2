package td

import (
	"context"
	"errors"
	"fmt"
)

// SessionSpec describes what an engine should download.
type SessionSpec struct {
	InfoHash InfoHash `json:"infoHash"`
	Name     string   `json:"name,omitempty"`
	Trackers []string `json:"trackers,omitempty"`
}

// Engine does the actual transfer work for a session.
//
// `onProgress` is invoked asynchronously from goroutines owned by the engine,
// possibly concurrently with itself and possibly after the session has been
// stopped. It must never be invoked synchronously from within
// `StartSession`.
type Engine interface {
	StartSession(
		ctx context.Context,
		spec SessionSpec,
		dir string,
		onProgress func(Stats),
	) (SessionHandle, error)
}

// SessionHandle stops a running engine session. `Stop` is safe to call more
// than once and on sessions which have already finished.
type SessionHandle interface {
	Stop() error
}

// Stats is a single progress report from an engine. A non-nil `Err` marks the
// session as failed.
type Stats struct {
	Completed uint64
	Total     uint64
	Err       error
}

func (stats Stats) Progress() Progress {
	return NewProgress(stats.Completed, stats.Total)
}

// Outcome reports whether the stats describe a finished session and, if so,
// how it finished.
func (stats Stats) Outcome() (Outcome, bool) {
	if stats.Err != nil {
		return OutcomeFailure, true
	}
	if stats.Total > 0 && stats.Completed >= stats.Total {
		return OutcomeSuccess, true
	}
	return "", false
}

type Outcome string

const (
	OutcomeSuccess   Outcome = "SUCCESS"
	OutcomeFailure   Outcome = "FAILURE"
	OutcomeCancelled Outcome = "CANCELLED"
)

func (outcome Outcome) Status() TorrentStatus {
	switch outcome {
	case OutcomeSuccess:
		return TorrentStatusSuccess
	case OutcomeCancelled:
		return TorrentStatusCancelled
	default:
		return TorrentStatusFailure
	}
}

// ErrSessionClosed is reported by engines whose session ended without being
// stopped or completed.
var ErrSessionClosed = errors.New("engine closed the session")

type EngineStartErr struct {
	InfoHash InfoHash `json:"infoHash"`
	Err      error    `json:"-"`
}

func (err *EngineStartErr) Error() string {
	return fmt.Sprintf(
		"starting engine session for `%s`: %v",
		err.InfoHash,
		err.Err,
	)
}

func (err *EngineStartErr) Unwrap() error { return err.Err }

package td

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

type AdmissionResult string

const (
	Accepted                 AdmissionResult = "ACCEPTED"
	RejectedDuplicateSession AdmissionResult = "REJECTED_DUPLICATE_SESSION"
	RejectedCapacityExceeded AdmissionResult = "REJECTED_CAPACITY_EXCEEDED"
	RejectedInternalError    AdmissionResult = "REJECTED_INTERNAL_ERROR"
)

type CancelResult string

const (
	Cancelled CancelResult = "CANCELLED"
	NotFound  CancelResult = "NOT_FOUND"
)

// Orchestrator drives the lifecycle of download sessions: admission under a
// fixed number of permits, one session per info hash, progress caching and
// a single terminal transition per session.
type Orchestrator struct {
	Engine   Engine
	Torrents TorrentStore
	Storage  Storage
	Logger   *slog.Logger

	// AdmissionTimeout bounds how long `Start` waits for a permit. Zero means
	// requests are rejected immediately when every permit is taken.
	AdmissionTimeout time.Duration

	// PersistTimeout bounds store writes made outside of a request, i.e. from
	// engine callbacks.
	PersistTimeout time.Duration

	admission *AdmissionController
	sessions  SessionRegistry
	progress  ProgressTracker
	now       func() time.Time
}

func NewOrchestrator(
	capacity int,
	engine Engine,
	torrents TorrentStore,
	storage Storage,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		Engine:         engine,
		Torrents:       torrents,
		Storage:        storage,
		Logger:         logger,
		PersistTimeout: 10 * time.Second,
		admission:      NewAdmissionController(capacity),
		now:            time.Now,
	}
}

// session is the handle kept in the registry. It exists from the moment the
// info hash is reserved, before the engine has been asked to start, so that
// `Stop` has to wait until `Start` is done with it.
type session struct {
	infoHash InfoHash
	ready    chan struct{}
	engine   SessionHandle
}

func (s *session) Stop() error {
	<-s.ready
	if s.engine == nil {
		return nil
	}
	return s.engine.Stop()
}

func (s *session) resolve(engine SessionHandle) {
	s.engine = engine
	close(s.ready)
}

func (o *Orchestrator) StartMagnet(
	ctx context.Context,
	uri string,
	defaultTrackers ...string,
) (AdmissionResult, SessionSpec, error) {
	spec, err := ParseMagnet(uri, defaultTrackers...)
	if err != nil {
		return RejectedInternalError, spec, err
	}
	result, err := o.Start(ctx, spec)
	return result, spec, err
}

// Start admits a new session. The error is non-nil only for
// `RejectedInternalError`, in which case nothing about the session remains:
// the permit is back in the pool and the info hash is free again.
func (o *Orchestrator) Start(
	ctx context.Context,
	spec SessionSpec,
) (AdmissionResult, error) {
	logger := o.Logger.With("infoHash", spec.InfoHash)

	// a live info hash is a duplicate no matter how many permits are free.
	// `TryInsert` below remains the authoritative check.
	if o.sessions.Busy(spec.InfoHash) {
		logger.Info("rejecting session", "reason", "duplicate session")
		return RejectedDuplicateSession, nil
	}

	if !o.admission.TryAcquire(ctx, o.AdmissionTimeout) {
		logger.Info("rejecting session", "reason", "capacity exceeded")
		return RejectedCapacityExceeded, nil
	}

	s := &session{infoHash: spec.InfoHash, ready: make(chan struct{})}
	if !o.sessions.TryInsert(spec.InfoHash, s) {
		o.admission.Release()
		logger.Info("rejecting session", "reason", "duplicate session")
		return RejectedDuplicateSession, nil
	}
	o.progress.Remove(spec.InfoHash)

	engine, err := o.startSession(ctx, s, spec)
	if err != nil {
		s.resolve(engine)
		o.rollback(logger, s, engine)
		logger.Error("starting session", "err", err.Error())
		return RejectedInternalError, err
	}

	if err := o.persistStart(ctx, spec); err != nil {
		s.resolve(engine)
		o.rollback(logger, s, engine)
		logger.Error("persisting session start", "err", err.Error())
		return RejectedInternalError, err
	}

	s.resolve(engine)
	logger.Info("started session")
	return Accepted, nil
}

func (o *Orchestrator) startSession(
	ctx context.Context,
	s *session,
	spec SessionSpec,
) (SessionHandle, error) {
	dir := o.Storage.Resolve(spec.InfoHash)
	if err := o.Storage.EnsureExists(dir); err != nil {
		return nil, fmt.Errorf("preparing destination: %w", err)
	}

	engine, err := o.Engine.StartSession(
		ctx,
		spec,
		o.Storage.HostPath(dir),
		func(stats Stats) { o.onProgress(s, stats) },
	)
	if err != nil {
		return nil, &EngineStartErr{InfoHash: spec.InfoHash, Err: err}
	}
	return engine, nil
}

// rollback undoes a partial admission. If a concurrent cancellation already
// took the registry entry, that cancellation owns the permit and the engine
// handle, so there is nothing left to do here.
func (o *Orchestrator) rollback(
	logger *slog.Logger,
	s *session,
	engine SessionHandle,
) {
	if !o.sessions.RemoveIf(s.infoHash, s) {
		return
	}
	if engine != nil {
		if err := engine.Stop(); err != nil {
			logger.Error("stopping engine session", "err", err.Error())
		}
	}
	o.progress.Remove(s.infoHash)
	o.admission.Release()
}

// persistStart creates the torrent record, or reuses the record of a previous
// download of the same info hash, and marks it as downloading.
func (o *Orchestrator) persistStart(
	ctx context.Context,
	spec SessionSpec,
) error {
	now := o.now()
	torrent, err := o.Torrents.FetchTorrent(ctx, spec.InfoHash)
	if err != nil {
		if As[*TorrentNotFoundErr](err) == nil {
			return err
		}
		torrent = Torrent{
			ID:       uuid.NewString(),
			InfoHash: spec.InfoHash,
			Name:     spec.Name,
			Status:   TorrentStatusIdle,
			Created:  now,
			Updated:  now,
		}
		if err := o.Torrents.CreateTorrent(ctx, &torrent); err != nil {
			return err
		}
	}

	if spec.Name != "" {
		torrent.Name = spec.Name
	}
	torrent.Status = TorrentStatusDownloading
	torrent.Error = ""
	torrent.Updated = now
	return o.Torrents.PutTorrent(ctx, &torrent)
}

// OnProgress feeds a progress report for whichever session is currently
// registered for `infoHash`.
func (o *Orchestrator) OnProgress(infoHash InfoHash, stats Stats) {
	handle, exists := o.sessions.Get(infoHash)
	if !exists {
		return
	}
	if s, ok := handle.(*session); ok {
		o.onProgress(s, stats)
	}
}

func (o *Orchestrator) onProgress(s *session, stats Stats) {
	if !o.current(s) {
		return
	}
	o.progress.Set(s.infoHash, stats.Progress())

	// the session may have been retired concurrently with the set above, and
	// a new session for the same info hash may already be registered. the
	// value just written belongs to neither, so drop it; the new session's
	// next report restores its entry.
	if !o.current(s) {
		o.progress.Remove(s.infoHash)
		return
	}

	if outcome, terminal := stats.Outcome(); terminal {
		if o.sessions.RemoveIf(s.infoHash, s) {
			o.retire(s, outcome, stats.Err)
		}
	}
}

func (o *Orchestrator) current(s *session) bool {
	handle, exists := o.sessions.Get(s.infoHash)
	return exists && handle == SessionHandle(s)
}

// TerminalTransition moves the session for `infoHash` into `outcome`. It
// reports false, without any side effect, if there is no such session
// (including when another caller retired it first).
func (o *Orchestrator) TerminalTransition(
	infoHash InfoHash,
	outcome Outcome,
) bool {
	handle, exists := o.sessions.Remove(infoHash)
	if !exists {
		return false
	}
	o.retire(handle, outcome, nil)
	return true
}

// retire performs the side effects of a terminal transition. Only the caller
// which removed the registry entry may call it, and it is called once per
// session.
func (o *Orchestrator) retire(
	handle SessionHandle,
	outcome Outcome,
	cause error,
) {
	infoHash := sessionInfoHash(handle)
	logger := o.Logger.With("infoHash", infoHash, "outcome", outcome)

	if err := handle.Stop(); err != nil {
		logger.Error("stopping engine session", "err", err.Error())
	}
	o.admission.Release()
	o.progress.Remove(infoHash)

	// once the permit is back, a new session for the same info hash may have
	// been admitted and marked the record as downloading. that session owns
	// the record now.
	if o.sessions.Busy(infoHash) {
		logger.Warn("skipping session outcome", "reason", "info hash admitted again")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), o.PersistTimeout)
	defer cancel()
	if err := o.persistOutcome(ctx, infoHash, outcome, cause); err != nil {
		if As[*TorrentNotFoundErr](err) != nil {
			logger.Warn("persisting session outcome", "err", err.Error())
		} else {
			logger.Error("persisting session outcome", "err", err.Error())
		}
		return
	}
	logger.Info("retired session")
}

func sessionInfoHash(handle SessionHandle) InfoHash {
	if s, ok := handle.(*session); ok {
		return s.infoHash
	}
	return InfoHash{}
}

func (o *Orchestrator) persistOutcome(
	ctx context.Context,
	infoHash InfoHash,
	outcome Outcome,
	cause error,
) error {
	torrent, err := o.Torrents.FetchTorrent(ctx, infoHash)
	if err != nil {
		return err
	}
	torrent.Status = outcome.Status()
	torrent.Error = ""
	if cause != nil {
		torrent.Error = cause.Error()
	}
	torrent.Updated = o.now()
	return o.Torrents.PutTorrent(ctx, &torrent)
}

func (o *Orchestrator) Cancel(infoHash InfoHash) CancelResult {
	if o.TerminalTransition(infoHash, OutcomeCancelled) {
		return Cancelled
	}
	return NotFound
}

func (o *Orchestrator) QueryProgress(infoHash InfoHash) Progress {
	return o.progress.Get(infoHash)
}

func (o *Orchestrator) Active(infoHash InfoHash) bool {
	return o.sessions.Contains(infoHash)
}

func (o *Orchestrator) ActiveSessions() []InfoHash {
	return o.sessions.InfoHashes()
}

func (o *Orchestrator) OutstandingPermits() int {
	return o.admission.Outstanding()
}

func (o *Orchestrator) Capacity() int { return o.admission.Capacity() }

func (o *Orchestrator) List(ctx context.Context) ([]TorrentView, error) {
	torrents, err := o.Torrents.ListTorrents(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing torrent views: %w", err)
	}
	views := make([]TorrentView, len(torrents))
	for i := range torrents {
		views[i] = o.view(torrents[i])
	}
	return views, nil
}

func (o *Orchestrator) Fetch(
	ctx context.Context,
	infoHash InfoHash,
) (TorrentView, error) {
	torrent, err := o.Torrents.FetchTorrent(ctx, infoHash)
	if err != nil {
		return TorrentView{}, fmt.Errorf("fetching torrent view: %w", err)
	}
	return o.view(torrent), nil
}

func (o *Orchestrator) view(torrent Torrent) TorrentView {
	view := TorrentView{Torrent: torrent}
	if torrent.Status == TorrentStatusDownloading {
		view.Progress = o.progress.Get(torrent.InfoHash)
	}
	return view
}

type DeleteResult struct {
	Cancelled bool `json:"cancelled"`
}

// Delete cancels any live session for `infoHash`, removes its destination
// directory and deletes its record.
func (o *Orchestrator) Delete(
	ctx context.Context,
	infoHash InfoHash,
) (result DeleteResult, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("deleting torrent `%s`: %w", infoHash, err)
		}
	}()

	if _, err = o.Torrents.FetchTorrent(ctx, infoHash); err != nil {
		return
	}

	result.Cancelled = o.Cancel(infoHash) == Cancelled

	// hold the info hash so that no session can be admitted while its
	// directory and record are being removed.
	if !o.sessions.Reserve(infoHash) {
		err = &TorrentActiveErr{InfoHash: infoHash}
		return
	}
	defer o.sessions.Unreserve(infoHash)

	if err = o.Storage.RemoveRecursively(
		o.Storage.Resolve(infoHash),
	); err != nil {
		return
	}
	if err = o.Torrents.DeleteTorrent(ctx, infoHash); err != nil {
		return
	}

	o.Logger.Info(
		"deleted torrent",
		"infoHash", infoHash,
		"cancelled", result.Cancelled,
	)
	return
}

// Files lists the destination directory of a torrent.
func (o *Orchestrator) Files(
	ctx context.Context,
	infoHash InfoHash,
) ([]FileInfo, error) {
	if _, err := o.Torrents.FetchTorrent(ctx, infoHash); err != nil {
		return nil, fmt.Errorf("listing torrent files: %w", err)
	}
	files, err := o.Storage.List(o.Storage.Resolve(infoHash))
	if err != nil {
		return nil, fmt.Errorf("listing torrent files: %w", err)
	}
	return files, nil
}

// Close cancels every live session.
func (o *Orchestrator) Close() error {
	infoHashes := o.sessions.InfoHashes()
	if len(infoHashes) < 1 {
		return nil
	}

	o.Logger.Info("cancelling live sessions", "count", len(infoHashes))
	var wg sync.WaitGroup
	for _, infoHash := range infoHashes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.Cancel(infoHash)
		}()
	}
	wg.Wait()

	if n := o.admission.Outstanding(); n != 0 {
		return errors.New(
			"closing orchestrator: sessions were admitted while closing",
		)
	}
	return nil
}

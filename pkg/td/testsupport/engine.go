// Package testsupport provides in-memory stand-ins for the collaborators of
// the orchestrator.
package testsupport

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"torrentd/pkg/td"
)

// Engine is a fake engine whose sessions only report progress when a test
// tells them to.
type Engine struct {
	// StartErr, if set, is returned from every `StartSession` call.
	StartErr error

	// Starting, if set, receives the spec of every `StartSession` call as
	// soon as it is entered.
	Starting chan td.SessionSpec

	// Gate, if set, holds every `StartSession` call until it is closed.
	Gate chan struct{}

	// OnStop, if set, is called whenever a session is stopped, before `Stop`
	// returns. Set it before any session can be stopped.
	OnStop func(infoHash td.InfoHash)

	lock     sync.Mutex
	sessions map[td.InfoHash]*Session
	starts   int
}

var _ td.Engine = (*Engine)(nil)

func (e *Engine) StartSession(
	ctx context.Context,
	spec td.SessionSpec,
	dir string,
	onProgress func(td.Stats),
) (td.SessionHandle, error) {
	if e.Starting != nil {
		e.Starting <- spec
	}
	if e.Gate != nil {
		<-e.Gate
	}

	e.lock.Lock()
	defer e.lock.Unlock()
	e.starts++
	if e.StartErr != nil {
		return nil, e.StartErr
	}
	if e.sessions == nil {
		e.sessions = make(map[td.InfoHash]*Session)
	}
	s := &Session{
		Spec:       spec,
		Dir:        dir,
		onProgress: onProgress,
		engine:     e,
	}
	e.sessions[spec.InfoHash] = s
	return s, nil
}

// Session returns the most recent session started for `infoHash`.
func (e *Engine) Session(infoHash td.InfoHash) *Session {
	e.lock.Lock()
	defer e.lock.Unlock()
	s, exists := e.sessions[infoHash]
	if !exists {
		panic(fmt.Sprintf("no session started for `%s`", infoHash))
	}
	return s
}

func (e *Engine) Starts() int {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.starts
}

type Session struct {
	Spec       td.SessionSpec
	Dir        string
	onProgress func(td.Stats)
	engine     *Engine
	stops      atomic.Int32
}

// Report delivers a progress report as the engine would.
func (s *Session) Report(completed, total uint64) {
	s.onProgress(td.Stats{Completed: completed, Total: total})
}

func (s *Session) Fail(err error) {
	s.onProgress(td.Stats{Err: err})
}

func (s *Session) Stop() error {
	s.stops.Add(1)
	if s.engine.OnStop != nil {
		s.engine.OnStop(s.Spec.InfoHash)
	}
	return nil
}

func (s *Session) Stops() int { return int(s.stops.Load()) }

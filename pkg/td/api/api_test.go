package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"

	"torrentd/pkg/td"
	"torrentd/pkg/td/testsupport"
)

type fixture struct {
	tapi         humatest.TestAPI
	orchestrator *td.Orchestrator
	engine       *testsupport.Engine
	store        *testsupport.Store
}

func newFixture(t *testing.T, capacity int) *fixture {
	t.Helper()
	orchestrator, engine, store := testsupport.Orchestrator(capacity)
	_, tapi := humatest.New(t)
	api := API{Sessions: orchestrator, Logger: testsupport.Logger()}
	api.Register(tapi)
	return &fixture{
		tapi:         tapi,
		orchestrator: orchestrator,
		engine:       engine,
		store:        store,
	}
}

func (f *fixture) create(t *testing.T, name string) *httptest.ResponseRecorder {
	t.Helper()
	return f.tapi.Post("/torrents", map[string]any{
		"magnet": td.Magnet(name, testsupport.InfoHash(name)),
	})
}

func decode[T any](t *testing.T, rsp *httptest.ResponseRecorder) T {
	t.Helper()
	var body T
	if err := json.Unmarshal(rsp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response `%s`: %v", rsp.Body.String(), err)
	}
	return body
}

func wantStatus(t *testing.T, rsp *httptest.ResponseRecorder, wanted int) {
	t.Helper()
	if rsp.Code != wanted {
		t.Fatalf(
			"status: wanted `%d`; found `%d`: %s",
			wanted,
			rsp.Code,
			rsp.Body.String(),
		)
	}
}

func TestTorrentCreate(t *testing.T) {
	f := newFixture(t, 1)

	rsp := f.create(t, "abc")
	wantStatus(t, rsp, http.StatusCreated)
	body := decode[struct {
		Torrent td.TorrentView `json:"torrent"`
	}](t, rsp)
	if body.Torrent.InfoHash != testsupport.InfoHash("abc") {
		t.Fatalf(
			"wanted info hash `%s`; found `%s`",
			testsupport.InfoHash("abc"),
			body.Torrent.InfoHash,
		)
	}
	if body.Torrent.Name != "abc" {
		t.Fatalf("wanted name `abc`; found `%s`", body.Torrent.Name)
	}
	if body.Torrent.Status != td.TorrentStatusDownloading {
		t.Fatalf(
			"wanted status `%s`; found `%s`",
			td.TorrentStatusDownloading,
			body.Torrent.Status,
		)
	}

	// duplicate
	wantStatus(t, f.create(t, "abc"), http.StatusConflict)

	// capacity
	wantStatus(t, f.create(t, "xyz"), http.StatusServiceUnavailable)
	if f.orchestrator.Active(testsupport.InfoHash("xyz")) {
		t.Fatal("wanted rejected torrent to have no session")
	}
}

func TestTorrentCreate_InvalidMagnet(t *testing.T) {
	f := newFixture(t, 1)
	rsp := f.tapi.Post("/torrents", map[string]any{
		"magnet": "https://example.com/ubuntu.torrent",
	})
	wantStatus(t, rsp, http.StatusBadRequest)
	if n := f.orchestrator.OutstandingPermits(); n != 0 {
		t.Fatalf("wanted `0` outstanding permits; found `%d`", n)
	}
}

func TestTorrentCreate_EngineFailure(t *testing.T) {
	f := newFixture(t, 1)
	f.engine.StartErr = testsupport.ErrEngine
	wantStatus(t, f.create(t, "abc"), http.StatusInternalServerError)
	if n := f.orchestrator.OutstandingPermits(); n != 0 {
		t.Fatalf("wanted `0` outstanding permits; found `%d`", n)
	}
}

func TestTorrentFetch(t *testing.T) {
	f := newFixture(t, 1)
	wantStatus(t, f.create(t, "abc"), http.StatusCreated)
	f.engine.Session(testsupport.InfoHash("abc")).Report(25, 100)

	rsp := f.tapi.Get("/torrents/" + testsupport.InfoHash("abc").String())
	wantStatus(t, rsp, http.StatusOK)
	body := decode[struct {
		Torrent td.TorrentView `json:"torrent"`
	}](t, rsp)
	if body.Torrent.Progress != 0.25 {
		t.Fatalf("wanted progress `0.25`; found `%v`", body.Torrent.Progress)
	}

	wantStatus(
		t,
		f.tapi.Get("/torrents/"+testsupport.InfoHash("xyz").String()),
		http.StatusNotFound,
	)
	wantStatus(t, f.tapi.Get("/torrents/nothex"), http.StatusBadRequest)
}

func TestTorrentList(t *testing.T) {
	f := newFixture(t, 2)

	rsp := f.tapi.Get("/torrents")
	wantStatus(t, rsp, http.StatusOK)
	if found := rsp.Body.String(); found != "{\"torrents\":[]}\n" &&
		found != "{\"torrents\":[]}" {
		t.Fatalf("wanted empty list; found `%s`", found)
	}

	wantStatus(t, f.create(t, "abc"), http.StatusCreated)
	wantStatus(t, f.create(t, "xyz"), http.StatusCreated)
	body := decode[struct {
		Torrents []td.TorrentView `json:"torrents"`
	}](t, f.tapi.Get("/torrents"))
	if len(body.Torrents) != 2 {
		t.Fatalf("wanted `2` torrents; found `%d`", len(body.Torrents))
	}
}

func TestTorrentProgress(t *testing.T) {
	f := newFixture(t, 1)
	infoHash := testsupport.InfoHash("abc")
	path := "/torrents/" + infoHash.String() + "/progress"

	type progress struct {
		InfoHash td.InfoHash `json:"infoHash"`
		Progress td.Progress `json:"progress"`
		Active   bool        `json:"active"`
	}

	// unknown torrents report zero
	body := decode[progress](t, f.tapi.Get(path))
	if body.Progress != 0 || body.Active {
		t.Fatalf("wanted `0` and inactive; found `%+v`", body)
	}

	wantStatus(t, f.create(t, "abc"), http.StatusCreated)
	f.engine.Session(infoHash).Report(1, 2)
	body = decode[progress](t, f.tapi.Get(path))
	if body.Progress != 0.5 || !body.Active || body.InfoHash != infoHash {
		t.Fatalf("wanted `0.5` and active; found `%+v`", body)
	}

	// completion ends the session and clears its progress entry
	f.engine.Session(infoHash).Report(2, 2)
	body = decode[progress](t, f.tapi.Get(path))
	if body.Progress != 0 || body.Active {
		t.Fatalf("wanted `0` and inactive; found `%+v`", body)
	}
	if status := f.store.Status(infoHash); status != td.TorrentStatusSuccess {
		t.Fatalf(
			"wanted status `%s`; found `%s`",
			td.TorrentStatusSuccess,
			status,
		)
	}
}

func TestTorrentCancel(t *testing.T) {
	f := newFixture(t, 1)
	infoHash := testsupport.InfoHash("abc")
	path := "/torrents/" + infoHash.String() + "/cancel"

	wantStatus(t, f.create(t, "abc"), http.StatusCreated)
	wantStatus(t, f.tapi.Post(path), http.StatusOK)
	if status := f.store.Status(infoHash); status != td.TorrentStatusCancelled {
		t.Fatalf(
			"wanted status `%s`; found `%s`",
			td.TorrentStatusCancelled,
			status,
		)
	}

	// the session is gone, so cancelling again finds nothing
	wantStatus(t, f.tapi.Post(path), http.StatusNotFound)

	// the permit was returned
	wantStatus(t, f.create(t, "xyz"), http.StatusCreated)
}

func TestTorrentDelete(t *testing.T) {
	f := newFixture(t, 1)
	infoHash := testsupport.InfoHash("abc")
	path := "/torrents/" + infoHash.String()

	wantStatus(t, f.create(t, "abc"), http.StatusCreated)
	rsp := f.tapi.Delete(path)
	wantStatus(t, rsp, http.StatusOK)
	body := decode[struct {
		Cancelled bool `json:"cancelled"`
	}](t, rsp)
	if !body.Cancelled {
		t.Fatal("wanted the live session to be cancelled")
	}

	wantStatus(t, f.tapi.Get(path), http.StatusNotFound)
	wantStatus(t, f.tapi.Delete(path), http.StatusNotFound)
}

func TestTorrentDelete_Restarted(t *testing.T) {
	f := newFixture(t, 2)
	infoHash := testsupport.InfoHash("abc")
	wantStatus(t, f.create(t, "abc"), http.StatusCreated)

	// the torrent is requested again as soon as the deletion cancels it
	var once sync.Once
	f.engine.OnStop = func(td.InfoHash) {
		once.Do(func() {
			if result, err := f.orchestrator.Start(
				context.Background(),
				td.SessionSpec{InfoHash: infoHash, Name: "abc"},
			); result != td.Accepted {
				t.Errorf("restarting: wanted `%s`; found `%s` (%v)", td.Accepted, result, err)
			}
		})
	}

	wantStatus(t, f.tapi.Delete("/torrents/"+infoHash.String()), http.StatusConflict)
	if !f.orchestrator.Active(infoHash) {
		t.Fatal("wanted the restarted torrent to stay active")
	}
}

func TestTorrentFiles(t *testing.T) {
	f := newFixture(t, 1)
	infoHash := testsupport.InfoHash("abc")
	path := "/torrents/" + infoHash.String() + "/files"

	wantStatus(t, f.tapi.Get(path), http.StatusNotFound)

	wantStatus(t, f.create(t, "abc"), http.StatusCreated)
	body := decode[struct {
		Files []td.FileInfo `json:"files"`
	}](t, f.tapi.Get(path))
	if body.Files == nil || len(body.Files) != 0 {
		t.Fatalf("wanted empty file list; found `%+v`", body.Files)
	}
}

func TestRequestID(t *testing.T) {
	f := newFixture(t, 1)

	rsp := f.tapi.Get("/torrents", "X-Request-Id: req-1")
	if found := rsp.Header().Get(requestIDHeader); found != "req-1" {
		t.Fatalf("wanted request id `req-1`; found `%s`", found)
	}

	rsp = f.tapi.Get("/torrents")
	if found := rsp.Header().Get(requestIDHeader); found == "" {
		t.Fatal("wanted a generated request id")
	}
}

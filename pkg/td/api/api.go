package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/google/uuid"

	"torrentd/pkg/td"
)

// Sessions is the part of `*td.Orchestrator` the API serves.
type Sessions interface {
	StartMagnet(
		ctx context.Context,
		uri string,
		defaultTrackers ...string,
	) (td.AdmissionResult, td.SessionSpec, error)
	Cancel(infoHash td.InfoHash) td.CancelResult
	QueryProgress(infoHash td.InfoHash) td.Progress
	Active(infoHash td.InfoHash) bool
	List(ctx context.Context) ([]td.TorrentView, error)
	Fetch(ctx context.Context, infoHash td.InfoHash) (td.TorrentView, error)
	Delete(ctx context.Context, infoHash td.InfoHash) (td.DeleteResult, error)
	Files(ctx context.Context, infoHash td.InfoHash) ([]td.FileInfo, error)
}

var _ Sessions = (*td.Orchestrator)(nil)

type API struct {
	Sessions Sessions
	Trackers []string
	Logger   *slog.Logger
}

func (api *API) Run(ctx context.Context, addr string) error {
	server := http.Server{Addr: addr, Handler: api.Handler()}

	done := make(chan struct{})
	var serveErr error

	go func() {
		api.Logger.Info("starting http server", "addr", addr)
		if e := server.ListenAndServe(); !errors.Is(e, http.ErrServerClosed) {
			api.Logger.Error("serving http", "err", e.Error())
			serveErr = e
		}
		api.Logger.Info("http server shutdown")
		close(done)
	}()

	// block until the http server encounters an error or until the context is
	// canceled. on context cancellation, shutdown the http server (gracefully,
	// if possible).
	select {
	case <-ctx.Done():
		sdc, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(sdc); err != nil &&
			!errors.Is(err, context.Canceled) &&
			!errors.Is(err, context.DeadlineExceeded) {

			return fmt.Errorf("running api: shutting down http server: %w", err)
		}
	case <-done:
		if serveErr != nil {
			return fmt.Errorf("running api: %w", serveErr)
		}
	}
	return nil
}

func (api *API) Handler() http.Handler {
	var mux http.ServeMux
	config := huma.DefaultConfig("torrentd", "v0.1.0")
	api.Register(humago.New(&mux, config))
	return &mux
}

func (api *API) Register(h huma.API) {
	h.UseMiddleware(api.requestLogger)
	registry := Registry{API: api, Huma: h}
	OperationTorrentList.Register(&registry)
	OperationTorrentCreate.Register(&registry)
	OperationTorrentFetch.Register(&registry)
	OperationTorrentProgress.Register(&registry)
	OperationTorrentCancel.Register(&registry)
	OperationTorrentDelete.Register(&registry)
	OperationTorrentFiles.Register(&registry)
}

type Registry struct {
	API  *API
	Huma huma.API
}

type Operation[I, O any] struct {
	Huma    huma.Operation
	Handler func(api *API, ctx context.Context, input *I) (*O, error)
}

func (op Operation[I, O]) Register(r *Registry) {
	huma.Register(r.Huma, op.Huma, func(ctx context.Context, i *I) (*O, error) {
		return op.Handler(r.API, ctx, i)
	})
}

type loggerKey struct{}

const requestIDHeader = "X-Request-Id"

func (api *API) requestLogger(ctx huma.Context, next func(huma.Context)) {
	requestID := ctx.Header(requestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	ctx.SetHeader(requestIDHeader, requestID)

	logger := api.Logger.With(
		"request", requestID,
		"operation", ctx.Operation().OperationID,
	)
	next(huma.WithValue(ctx, loggerKey{}, logger))
}

func (api *API) logger(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return logger
	}
	return api.Logger
}

// statusError maps domain errors onto HTTP errors. Anything unexpected is
// logged and reported as a 500 without details.
func (api *API) statusError(ctx context.Context, err error) error {
	switch {
	case td.As[*td.TorrentNotFoundErr](err) != nil,
		errors.Is(err, os.ErrNotExist):
		return huma.Error404NotFound(err.Error())
	case td.As[*td.TorrentActiveErr](err) != nil:
		return huma.Error409Conflict(err.Error())
	case td.As[*td.InvalidInfoHashErr](err) != nil,
		td.As[*td.InvalidMagnetErr](err) != nil:
		return huma.Error400BadRequest(err.Error())
	default:
		api.logger(ctx).Error("handling request", "err", err.Error())
		return huma.Error500InternalServerError("Internal Server Error")
	}
}

func (api *API) parseInfoHash(
	ctx context.Context,
	s string,
) (td.InfoHash, error) {
	infoHash, err := td.ParseInfoHash(s)
	if err != nil {
		return infoHash, api.statusError(ctx, err)
	}
	return infoHash, nil
}

type InfoHashInput struct {
	InfoHash string `path:"infoHash" doc:"Hex-encoded info hash"`
}

package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"torrentd/pkg/td"
)

func (api *API) TorrentCreate(
	ctx context.Context,
	input *TorrentCreateInput,
) (*TorrentCreateOutput, error) {
	result, spec, err := api.Sessions.StartMagnet(
		ctx,
		input.Body.Magnet,
		api.Trackers...,
	)
	switch result {
	case td.Accepted:
	case td.RejectedDuplicateSession:
		return nil, huma.Error409Conflict(
			"torrent `" + spec.InfoHash.String() + "` is already downloading",
		)
	case td.RejectedCapacityExceeded:
		return nil, huma.Error503ServiceUnavailable(
			"too many active downloads; try again later",
		)
	default:
		return nil, api.statusError(ctx, err)
	}

	api.logger(ctx).Info(
		"admitted torrent",
		"infoHash", spec.InfoHash,
		"name", spec.Name,
	)

	torrent, err := api.Sessions.Fetch(ctx, spec.InfoHash)
	if err != nil {
		return nil, api.statusError(ctx, err)
	}
	var output TorrentCreateOutput
	output.Body.Torrent = torrent
	return &output, nil
}

type TorrentCreateInput struct {
	Body struct {
		Magnet string `json:"magnet" minLength:"1" doc:"Magnet link"`
	}
}

type TorrentCreateOutput struct {
	Body struct {
		Torrent td.TorrentView `json:"torrent"`
	}
}

var OperationTorrentCreate = Operation[TorrentCreateInput, TorrentCreateOutput]{
	Huma: huma.Operation{
		OperationID:   "torrent-create",
		Summary:       "Start downloading a torrent",
		Tags:          []string{"Torrent"},
		Path:          "/torrents",
		Method:        http.MethodPost,
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,         // InvalidMagnetErr
			http.StatusConflict,           // duplicate session
			http.StatusServiceUnavailable, // capacity exceeded
			http.StatusInternalServerError,
		},
	},
	Handler: (*API).TorrentCreate,
}

package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (api *API) TorrentDelete(
	ctx context.Context,
	input *InfoHashInput,
) (*TorrentDeleteOutput, error) {
	infoHash, err := api.parseInfoHash(ctx, input.InfoHash)
	if err != nil {
		return nil, err
	}
	result, err := api.Sessions.Delete(ctx, infoHash)
	if err != nil {
		return nil, api.statusError(ctx, err)
	}
	api.logger(ctx).Info(
		"deleted torrent",
		"infoHash", infoHash,
		"cancelled", result.Cancelled,
	)

	var output TorrentDeleteOutput
	output.Body.Cancelled = result.Cancelled
	return &output, nil
}

type TorrentDeleteOutput struct {
	Body struct {
		Cancelled bool `json:"cancelled" doc:"Whether an active download was cancelled"`
	}
}

var OperationTorrentDelete = Operation[InfoHashInput, TorrentDeleteOutput]{
	Huma: huma.Operation{
		OperationID: "torrent-delete",
		Summary:     "Delete torrent and its data",
		Tags:        []string{"Torrent"},
		Path:        "/torrents/{infoHash}",
		Method:      http.MethodDelete,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusConflict, // TorrentActiveErr
		},
	},
	Handler: (*API).TorrentDelete,
}

package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"torrentd/pkg/td"
)

func (api *API) TorrentCancel(
	ctx context.Context,
	input *InfoHashInput,
) (*TorrentCancelOutput, error) {
	infoHash, err := api.parseInfoHash(ctx, input.InfoHash)
	if err != nil {
		return nil, err
	}
	if api.Sessions.Cancel(infoHash) == td.NotFound {
		return nil, huma.Error404NotFound(
			"torrent `" + infoHash.String() + "` has no active download",
		)
	}
	api.logger(ctx).Info("cancelled torrent", "infoHash", infoHash)

	var output TorrentCancelOutput
	output.Body.InfoHash = infoHash
	output.Body.Status = td.TorrentStatusCancelled
	return &output, nil
}

type TorrentCancelOutput struct {
	Body struct {
		InfoHash td.InfoHash      `json:"infoHash"`
		Status   td.TorrentStatus `json:"status"`
	}
}

var OperationTorrentCancel = Operation[InfoHashInput, TorrentCancelOutput]{
	Huma: huma.Operation{
		OperationID: "torrent-cancel",
		Summary:     "Cancel an active download",
		Tags:        []string{"Torrent"},
		Path:        "/torrents/{infoHash}/cancel",
		Method:      http.MethodPost,
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	},
	Handler: (*API).TorrentCancel,
}

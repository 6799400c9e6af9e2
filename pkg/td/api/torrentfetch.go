package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"torrentd/pkg/td"
)

func (api *API) TorrentFetch(
	ctx context.Context,
	input *InfoHashInput,
) (*TorrentFetchOutput, error) {
	infoHash, err := api.parseInfoHash(ctx, input.InfoHash)
	if err != nil {
		return nil, err
	}
	torrent, err := api.Sessions.Fetch(ctx, infoHash)
	if err != nil {
		return nil, api.statusError(ctx, err)
	}
	var output TorrentFetchOutput
	output.Body.Torrent = torrent
	return &output, nil
}

type TorrentFetchOutput struct {
	Body struct {
		Torrent td.TorrentView `json:"torrent"`
	}
}

var OperationTorrentFetch = Operation[InfoHashInput, TorrentFetchOutput]{
	Huma: huma.Operation{
		OperationID: "torrent-fetch",
		Summary:     "Fetch torrent",
		Tags:        []string{"Torrent"},
		Path:        "/torrents/{infoHash}",
		Method:      http.MethodGet,
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	},
	Handler: (*API).TorrentFetch,
}

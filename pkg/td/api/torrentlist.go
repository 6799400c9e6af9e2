package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"torrentd/pkg/td"
)

func (api *API) TorrentList(
	ctx context.Context,
	input *struct{},
) (*TorrentListOutput, error) {
	torrents, err := api.Sessions.List(ctx)
	if err != nil {
		return nil, api.statusError(ctx, err)
	}
	var output TorrentListOutput
	output.Body.Torrents = torrents
	return &output, nil
}

type TorrentListOutput struct {
	Body struct {
		Torrents Slice[td.TorrentView] `json:"torrents"`
	}
}

var OperationTorrentList = Operation[struct{}, TorrentListOutput]{
	Huma: huma.Operation{
		OperationID: "torrent-list",
		Summary:     "List torrents",
		Tags:        []string{"Torrent"},
		Path:        "/torrents",
		Method:      http.MethodGet,
	},
	Handler: (*API).TorrentList,
}

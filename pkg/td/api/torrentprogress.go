package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"torrentd/pkg/td"
)

// TorrentProgress reports the live progress of a torrent. Torrents without an
// active session report zero rather than an error.
func (api *API) TorrentProgress(
	ctx context.Context,
	input *InfoHashInput,
) (*TorrentProgressOutput, error) {
	infoHash, err := api.parseInfoHash(ctx, input.InfoHash)
	if err != nil {
		return nil, err
	}
	var output TorrentProgressOutput
	output.Body.InfoHash = infoHash
	output.Body.Progress = api.Sessions.QueryProgress(infoHash)
	output.Body.Active = api.Sessions.Active(infoHash)
	return &output, nil
}

type TorrentProgressOutput struct {
	Body struct {
		InfoHash td.InfoHash `json:"infoHash"`
		Progress td.Progress `json:"progress" minimum:"0" maximum:"1"`
		Active   bool        `json:"active"`
	}
}

var OperationTorrentProgress = Operation[InfoHashInput, TorrentProgressOutput]{
	Huma: huma.Operation{
		OperationID: "torrent-progress",
		Summary:     "Query torrent progress",
		Tags:        []string{"Torrent"},
		Path:        "/torrents/{infoHash}/progress",
		Method:      http.MethodGet,
		Errors:      []int{http.StatusBadRequest},
	},
	Handler: (*API).TorrentProgress,
}

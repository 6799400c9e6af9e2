package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"torrentd/pkg/td"
)

func (api *API) TorrentFiles(
	ctx context.Context,
	input *InfoHashInput,
) (*TorrentFilesOutput, error) {
	infoHash, err := api.parseInfoHash(ctx, input.InfoHash)
	if err != nil {
		return nil, err
	}
	files, err := api.Sessions.Files(ctx, infoHash)
	if err != nil {
		return nil, api.statusError(ctx, err)
	}
	var output TorrentFilesOutput
	output.Body.Files = files
	return &output, nil
}

type TorrentFilesOutput struct {
	Body struct {
		Files Slice[td.FileInfo] `json:"files"`
	}
}

var OperationTorrentFiles = Operation[InfoHashInput, TorrentFilesOutput]{
	Huma: huma.Operation{
		OperationID: "torrent-files",
		Summary:     "List downloaded files",
		Tags:        []string{"Torrent"},
		Path:        "/torrents/{infoHash}/files",
		Method:      http.MethodGet,
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	},
	Handler: (*API).TorrentFiles,
}

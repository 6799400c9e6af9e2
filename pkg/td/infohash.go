package td

import (
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anacrolix/torrent/metainfo"
	"github.com/danielgtaylor/huma/v2"
)

// InfoHash identifies the content of a torrent. It is the primary key for
// sessions, progress entries and durable torrent records alike.
type InfoHash struct {
	lowercase string
}

func NewInfoHash(s string) (infoHash InfoHash) {
	infoHash.lowercase = strings.ToLower(s)
	return
}

// ParseInfoHash validates that `s` is a hex-encoded v1 info hash before
// normalizing it. Info hashes are used as directory names, so anything coming
// from outside the process should go through here rather than `NewInfoHash`.
func ParseInfoHash(s string) (InfoHash, error) {
	if len(s) != 2*len(metainfo.Hash{}) {
		return InfoHash{}, &InvalidInfoHashErr{Value: s}
	}
	if _, err := hex.DecodeString(s); err != nil {
		return InfoHash{}, &InvalidInfoHashErr{Value: s}
	}
	return NewInfoHash(s), nil
}

func InfoHashFromHash(h metainfo.Hash) InfoHash {
	return NewInfoHash(h.HexString())
}

// Hash converts the info hash into the engine representation.
func (infoHash InfoHash) Hash() (h metainfo.Hash, err error) {
	if err = h.FromHexString(infoHash.lowercase); err != nil {
		err = fmt.Errorf("decoding info hash `%s`: %w", infoHash, err)
	}
	return
}

func (infoHash InfoHash) String() string { return infoHash.lowercase }

func (infoHash InfoHash) IsZero() bool { return infoHash.lowercase == "" }

func (infoHash InfoHash) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(infoHash.lowercase)
	if err != nil {
		err = fmt.Errorf("marshaling info hash: %w", err)
	}
	return data, err
}

func (infoHash *InfoHash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("unmarshaling info hash: %w", err)
	}
	*infoHash = NewInfoHash(s)
	return nil
}

func (infoHash *InfoHash) Schema(huma.Registry) *huma.Schema {
	return &huma.Schema{Type: "string"}
}

func (infoHash InfoHash) Value() (driver.Value, error) {
	return infoHash.lowercase, nil
}

func (infoHash *InfoHash) Scan(value interface{}) error {
	if s, ok := value.(string); ok {
		*infoHash = NewInfoHash(s)
		return nil
	}
	return fmt.Errorf(
		"invalid sql type for info hash: "+
			"wanted `string`; found `%[1]T` (%[1]v)",
		value,
	)
}

type InvalidInfoHashErr struct {
	Value string `json:"value"`
}

func (err *InvalidInfoHashErr) Error() string {
	return fmt.Sprintf(
		"invalid info hash `%s`: wanted 40 hexadecimal characters",
		err.Value,
	)
}

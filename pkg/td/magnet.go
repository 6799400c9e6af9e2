package td

import (
	"fmt"
	"net/url"

	"github.com/anacrolix/torrent/metainfo"
)

func Magnet(
	name string,
	infoHash InfoHash,
	trackers ...string,
) string {
	vs := url.Values{}
	for _, tr := range trackers {
		vs.Add("tr", tr)
	}
	if name != "" {
		vs.Add("dn", name)
	}

	// Transmission and Deluge both expect "urn:btih:" to be unescaped. Deluge
	// wants it to be at the start of the magnet link.
	const btihPrefix = "urn:btih:"
	u := url.URL{
		Scheme:   "magnet",
		RawQuery: "xt=" + btihPrefix + infoHash.String(),
	}
	if len(vs) != 0 {
		u.RawQuery += "&" + vs.Encode()
	}
	return u.String()
}

// ParseMagnet turns a magnet link into a `SessionSpec`. Trackers
// from the link come first, followed by `defaultTrackers`.
func ParseMagnet(
	uri string,
	defaultTrackers ...string,
) (spec SessionSpec, err error) {
	m, err := metainfo.ParseMagnetUri(uri)
	if err != nil {
		err = fmt.Errorf("parsing magnet link: %w", &InvalidMagnetErr{
			URI:    uri,
			Reason: err.Error(),
		})
		return
	}

	spec.InfoHash = InfoHashFromHash(m.InfoHash)
	spec.Name = m.DisplayName
	spec.Trackers = append(spec.Trackers, m.Trackers...)
	spec.Trackers = append(spec.Trackers, defaultTrackers...)
	return
}

type InvalidMagnetErr struct {
	URI    string `json:"uri"`
	Reason string `json:"reason"`
}

func (err *InvalidMagnetErr) Error() string {
	return fmt.Sprintf("invalid magnet link `%s`: %s", err.URI, err.Reason)
}

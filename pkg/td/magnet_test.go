package td

import (
	"strings"
	"testing"
)

const ubuntu = "3b245504cf5f11bbdbe1201cea6a6bf45aee1bc0"

func TestParseInfoHash(t *testing.T) {
	for _, tc := range []struct {
		input   string
		wanted  string
		invalid bool
	}{
		{input: ubuntu, wanted: ubuntu},
		{input: strings.ToUpper(ubuntu), wanted: ubuntu},
		{input: "../../etc/passwd", invalid: true},
		{input: ubuntu[:39] + "z", invalid: true},
		{input: "", invalid: true},
	} {
		found, err := ParseInfoHash(tc.input)
		if tc.invalid {
			if As[*InvalidInfoHashErr](err) == nil {
				t.Fatalf(
					"input `%s`: wanted `*InvalidInfoHashErr`; found `%v`",
					tc.input,
					err,
				)
			}
			continue
		}
		if err != nil {
			t.Fatalf("input `%s`: unexpected error: %v", tc.input, err)
		}
		if found.String() != tc.wanted {
			t.Fatalf("wanted `%s`; found `%s`", tc.wanted, found)
		}
	}
}

func TestMagnet(t *testing.T) {
	found := Magnet("ubuntu", NewInfoHash(ubuntu), "udp://a:1", "udp://b:2")
	wanted := "magnet:?xt=urn:btih:" + ubuntu +
		"&dn=ubuntu&tr=udp%3A%2F%2Fa%3A1&tr=udp%3A%2F%2Fb%3A2"
	if found != wanted {
		t.Fatalf("wanted `%s`; found `%s`", wanted, found)
	}
}

func TestParseMagnet(t *testing.T) {
	spec, err := ParseMagnet(
		Magnet("ubuntu", NewInfoHash(ubuntu), "udp://a:1"),
		"udp://default:1",
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if spec.InfoHash.String() != ubuntu {
		t.Fatalf("info hash: wanted `%s`; found `%s`", ubuntu, spec.InfoHash)
	}
	if spec.Name != "ubuntu" {
		t.Fatalf("name: wanted `ubuntu`; found `%s`", spec.Name)
	}
	wanted := []string{"udp://a:1", "udp://default:1"}
	if strings.Join(spec.Trackers, ",") != strings.Join(wanted, ",") {
		t.Fatalf("trackers: wanted `%v`; found `%v`", wanted, spec.Trackers)
	}

	if _, err := ParseMagnet("http://example.com"); As[*InvalidMagnetErr](err) == nil {
		t.Fatalf("wanted `*InvalidMagnetErr`; found `%v`", err)
	}
}

func TestInfoHash_Hash(t *testing.T) {
	infoHash := NewInfoHash(ubuntu)
	h, err := infoHash.Hash()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found := InfoHashFromHash(h); found != infoHash {
		t.Fatalf("wanted `%s`; found `%s`", infoHash, found)
	}
}

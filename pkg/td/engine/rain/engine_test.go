package rain

import (
	"errors"
	"testing"

	"torrentd/pkg/td"
)

func TestTranslate(t *testing.T) {
	for _, tc := range []struct {
		name          string
		status        string
		completed     int64
		total         int64
		wanted        td.Stats
		wantedOutcome td.Outcome
		terminal      bool
	}{
		{
			name:   "metadata",
			status: statusFetchingMetadata,
			wanted: td.Stats{},
		},
		{
			name:      "downloading",
			status:    "Downloading",
			completed: 25,
			total:     100,
			wanted:    td.Stats{Completed: 25, Total: 100},
		},
		{
			name:          "complete",
			status:        "Downloading",
			completed:     100,
			total:         100,
			wanted:        td.Stats{Completed: 100, Total: 100},
			wantedOutcome: td.OutcomeSuccess,
			terminal:      true,
		},
		{
			// a resumed torrent whose data was already on disk: few bytes
			// came from peers but every piece is verified
			name:          "seeding-resumed",
			status:        statusSeeding,
			completed:     40,
			total:         100,
			wanted:        td.Stats{Completed: 100, Total: 100},
			wantedOutcome: td.OutcomeSuccess,
			terminal:      true,
		},
		{
			name:          "seeding-unknown-size",
			status:        statusSeeding,
			wanted:        td.Stats{Completed: 1, Total: 1},
			wantedOutcome: td.OutcomeSuccess,
			terminal:      true,
		},
		{
			name:      "verifying",
			status:    "Verifying",
			completed: 60,
			total:     100,
			wanted:    td.Stats{Completed: 60, Total: 100},
		},
		{
			name:          "stopped-by-daemon",
			status:        statusStopped,
			completed:     10,
			total:         100,
			wanted:        td.Stats{Err: ErrStoppedByDaemon},
			wantedOutcome: td.OutcomeFailure,
			terminal:      true,
		},
		{
			name:   "unknown-size",
			status: "Downloading",
			wanted: td.Stats{},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			found := translate(tc.status, tc.completed, tc.total)
			if found.Completed != tc.wanted.Completed ||
				found.Total != tc.wanted.Total ||
				!errors.Is(found.Err, tc.wanted.Err) {
				t.Fatalf("wanted `%+v`; found `%+v`", tc.wanted, found)
			}

			outcome, terminal := found.Outcome()
			if terminal != tc.terminal || outcome != tc.wantedOutcome {
				t.Fatalf(
					"outcome: wanted `%s` (%t); found `%s` (%t)",
					tc.wantedOutcome,
					tc.terminal,
					outcome,
					terminal,
				)
			}
		})
	}
}

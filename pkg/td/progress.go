package td

import (
	"math"
	"sync"
)

// Progress is a completion fraction in [0, 1].
type Progress float64

// NewProgress computes the fraction of `completed` over `total`. An unknown
// total (zero) yields zero progress.
func NewProgress(completed, total uint64) Progress {
	if total == 0 {
		return 0
	}
	return ClampProgress(float64(completed) / float64(total))
}

func ClampProgress(f float64) Progress {
	switch {
	case math.IsNaN(f), f <= 0:
		return 0
	case f >= 1:
		return 1
	default:
		return Progress(f)
	}
}

func (p Progress) Float64() float64 { return float64(p) }

// ProgressTracker caches the last reported progress per info hash. Entries are
// advisory snapshots; the tracker stores whatever it is given, including
// values lower than the previous one. The zero value is ready to use.
type ProgressTracker struct {
	lock    sync.RWMutex
	entries map[InfoHash]Progress
}

func (t *ProgressTracker) Set(infoHash InfoHash, progress Progress) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.entries == nil {
		t.entries = make(map[InfoHash]Progress)
	}
	t.entries[infoHash] = progress
}

// Get returns the cached progress, or zero if there is no active download for
// the info hash.
func (t *ProgressTracker) Get(infoHash InfoHash) Progress {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.entries[infoHash]
}

func (t *ProgressTracker) Remove(infoHash InfoHash) {
	t.lock.Lock()
	defer t.lock.Unlock()
	delete(t.entries, infoHash)
}

func (t *ProgressTracker) Contains(infoHash InfoHash) bool {
	t.lock.RLock()
	defer t.lock.RUnlock()
	_, exists := t.entries[infoHash]
	return exists
}

func (t *ProgressTracker) Snapshot() map[InfoHash]Progress {
	t.lock.RLock()
	defer t.lock.RUnlock()
	out := make(map[InfoHash]Progress, len(t.entries))
	for infoHash, progress := range t.entries {
		out[infoHash] = progress
	}
	return out
}

package td

import (
	"sync"
	"sync/atomic"
	"testing"
)

type fakeHandle struct{ stops atomic.Int32 }

func (h *fakeHandle) Stop() error {
	h.stops.Add(1)
	return nil
}

func TestSessionRegistry_TryInsert(t *testing.T) {
	var r SessionRegistry
	infoHash := NewInfoHash("abc")
	first, second := new(fakeHandle), new(fakeHandle)

	if !r.TryInsert(infoHash, first) {
		t.Fatal("wanted first insert to succeed")
	}
	if r.TryInsert(infoHash, second) {
		t.Fatal("wanted duplicate insert to fail")
	}

	found, exists := r.Get(infoHash)
	if !exists || found != SessionHandle(first) {
		t.Fatalf("wanted first handle to remain; found `%v`", found)
	}
	if r.Len() != 1 {
		t.Fatalf("wanted `1` entry; found `%d`", r.Len())
	}
}

func TestSessionRegistry_Remove(t *testing.T) {
	var r SessionRegistry
	infoHash := NewInfoHash("abc")
	h := new(fakeHandle)
	r.TryInsert(infoHash, h)

	found, exists := r.Remove(infoHash)
	if !exists || found != SessionHandle(h) {
		t.Fatalf("wanted handle `%p`; found `%v`", h, found)
	}

	if found, exists := r.Remove(infoHash); exists || found != nil {
		t.Fatalf("wanted second removal to be a no-op; found `%v`", found)
	}

	if !r.TryInsert(infoHash, new(fakeHandle)) {
		t.Fatal("wanted info hash to be free after removal")
	}
}

func TestSessionRegistry_RemoveIf(t *testing.T) {
	var r SessionRegistry
	infoHash := NewInfoHash("abc")
	old, current := new(fakeHandle), new(fakeHandle)
	r.TryInsert(infoHash, current)

	if r.RemoveIf(infoHash, old) {
		t.Fatal("wanted removal of a stale handle to fail")
	}
	if !r.Contains(infoHash) {
		t.Fatal("wanted current entry to survive stale removal")
	}
	if !r.RemoveIf(infoHash, current) {
		t.Fatal("wanted removal of the current handle to succeed")
	}
}

func TestSessionRegistry_ConcurrentRemove(t *testing.T) {
	var r SessionRegistry
	infoHash := NewInfoHash("abc")
	r.TryInsert(infoHash, new(fakeHandle))

	var wg sync.WaitGroup
	var winners atomic.Int32
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, removed := r.Remove(infoHash); removed {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	if n := winners.Load(); n != 1 {
		t.Fatalf("wanted exactly `1` winner; found `%d`", n)
	}
}

func TestSessionRegistry_InfoHashes(t *testing.T) {
	var r SessionRegistry
	for _, s := range []string{"c", "a", "b"} {
		r.TryInsert(NewInfoHash(s), new(fakeHandle))
	}

	found := r.InfoHashes()
	wanted := []string{"a", "b", "c"}
	if len(found) != len(wanted) {
		t.Fatalf("wanted `%d` info hashes; found `%d`", len(wanted), len(found))
	}
	for i := range wanted {
		if found[i].String() != wanted[i] {
			t.Fatalf(
				"index %d: wanted `%s`; found `%s`",
				i,
				wanted[i],
				found[i],
			)
		}
	}
}

func TestSessionRegistry_Reserve(t *testing.T) {
	var r SessionRegistry
	infoHash := NewInfoHash("abc")

	if !r.Reserve(infoHash) {
		t.Fatal("wanted reservation of a free info hash to succeed")
	}
	if r.Reserve(infoHash) {
		t.Fatal("wanted second reservation to fail")
	}
	if r.TryInsert(infoHash, new(fakeHandle)) {
		t.Fatal("wanted insert of a reserved info hash to fail")
	}
	if !r.Busy(infoHash) || r.Contains(infoHash) {
		t.Fatal("wanted a reserved info hash to be busy without a session")
	}

	r.Unreserve(infoHash)
	if r.Busy(infoHash) {
		t.Fatal("wanted info hash to be free after unreserving")
	}
	if !r.TryInsert(infoHash, new(fakeHandle)) {
		t.Fatal("wanted insert after unreserving to succeed")
	}
	if r.Reserve(infoHash) {
		t.Fatal("wanted reservation of a registered info hash to fail")
	}
}

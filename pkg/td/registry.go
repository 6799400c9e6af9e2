package td

import (
	"sort"
	"sync"
)

// SessionRegistry maps info hashes to live session handles. An info hash is
// present iff a session for it has been admitted and not yet retired, and the
// removal of an entry is the single signal that the info hash may be
// requested again. The zero value is ready to use.
type SessionRegistry struct {
	lock     sync.Mutex
	sessions map[InfoHash]SessionHandle
	reserved map[InfoHash]struct{}
}

// TryInsert records `handle` for `infoHash` unless a session is already
// registered or the info hash is reserved, in which case it returns false and
// changes nothing.
func (r *SessionRegistry) TryInsert(
	infoHash InfoHash,
	handle SessionHandle,
) bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.busy(infoHash) {
		return false
	}
	if r.sessions == nil {
		r.sessions = make(map[InfoHash]SessionHandle)
	}
	r.sessions[infoHash] = handle
	return true
}

// Remove deletes the entry for `infoHash` and returns its handle. Only the
// first of any number of concurrent callers gets the handle back.
func (r *SessionRegistry) Remove(infoHash InfoHash) (SessionHandle, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	handle, exists := r.sessions[infoHash]
	if exists {
		delete(r.sessions, infoHash)
	}
	return handle, exists
}

// RemoveIf deletes the entry for `infoHash` only if it still holds `handle`.
// Callbacks bound to a retired session use this so they can never retire a
// later session for the same info hash.
func (r *SessionRegistry) RemoveIf(
	infoHash InfoHash,
	handle SessionHandle,
) bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	if current, exists := r.sessions[infoHash]; exists && current == handle {
		delete(r.sessions, infoHash)
		return true
	}
	return false
}

func (r *SessionRegistry) Get(infoHash InfoHash) (SessionHandle, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	handle, exists := r.sessions[infoHash]
	return handle, exists
}

func (r *SessionRegistry) Contains(infoHash InfoHash) bool {
	_, exists := r.Get(infoHash)
	return exists
}

// Reserve holds `infoHash` without a session, so that `TryInsert` fails for
// it until `Unreserve`. It returns false if the info hash is already
// registered or reserved.
func (r *SessionRegistry) Reserve(infoHash InfoHash) bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.busy(infoHash) {
		return false
	}
	if r.reserved == nil {
		r.reserved = make(map[InfoHash]struct{})
	}
	r.reserved[infoHash] = struct{}{}
	return true
}

func (r *SessionRegistry) Unreserve(infoHash InfoHash) {
	r.lock.Lock()
	defer r.lock.Unlock()
	delete(r.reserved, infoHash)
}

// Busy reports whether `infoHash` is registered or reserved.
func (r *SessionRegistry) Busy(infoHash InfoHash) bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.busy(infoHash)
}

func (r *SessionRegistry) busy(infoHash InfoHash) bool {
	_, exists := r.sessions[infoHash]
	_, reserved := r.reserved[infoHash]
	return exists || reserved
}

func (r *SessionRegistry) Len() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return len(r.sessions)
}

func (r *SessionRegistry) InfoHashes() []InfoHash {
	r.lock.Lock()
	out := make([]InfoHash, 0, len(r.sessions))
	for infoHash := range r.sessions {
		out = append(out, infoHash)
	}
	r.lock.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})
	return out
}

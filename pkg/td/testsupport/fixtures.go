package testsupport

import (
	"crypto/sha1"
	"encoding/hex"

	"github.com/go-git/go-billy/v5/memfs"

	"torrentd/pkg/td"
)

// InfoHash derives a valid info hash from a readable name, so tests can talk
// about "abc" and "xyz".
func InfoHash(name string) td.InfoHash {
	sum := sha1.Sum([]byte(name))
	return td.NewInfoHash(hex.EncodeToString(sum[:]))
}

func Storage() td.BillyStorage {
	return td.BillyStorage{FS: memfs.New()}
}

// Orchestrator wires an orchestrator to a fake engine, a recording store and
// in-memory storage.
func Orchestrator(capacity int) (*td.Orchestrator, *Engine, *Store) {
	engine := new(Engine)
	store := new(Store)
	return td.NewOrchestrator(
		capacity,
		engine,
		store,
		Storage(),
		Logger(),
	), engine, store
}

// Package store persists completed run snapshots so a driver can retrieve
// a past run by id later (a capability spec.md's C7 leaves implicit but
// SPEC_FULL.md's domain-stack expansion wires in). It follows the same
// prefixed-key-value idiom as the teacher module's storage package: one
// gob-encoded blob per key, under a fixed prefix, in a
// go.vocdoni.io/dvote/db-backed database.
package store

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
	"go.vocdoni.io/dvote/db/prefixeddb"

	"github.com/vocdoni/evote-verifier/runinfo"
)

var runPrefix = []byte("run/")

// Store persists runinfo.Snapshot values keyed by run id.
type Store struct {
	db db.Database
}

// Open opens (creating if necessary) a pebble-backed key-value store at
// dir, matching the teacher's metadb.New("pebble", dir) construction.
func Open(dir string) (*Store, error) {
	kv, err := metadb.New(db.TypePebble, dir)
	if err != nil {
		return nil, fmt.Errorf("opening run store at %q: %w", dir, err)
	}
	return &Store{db: kv}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put persists snapshot under id, overwriting any previous snapshot for
// that id.
func (s *Store) Put(id string, snapshot runinfo.Snapshot) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snapshot); err != nil {
		return fmt.Errorf("encoding run %q: %w", id, err)
	}

	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), runPrefix)
	if err := wTx.Set([]byte(id), buf.Bytes()); err != nil {
		return fmt.Errorf("storing run %q: %w", id, err)
	}
	return wTx.Commit()
}

// Get retrieves the snapshot stored under id.
func (s *Store) Get(id string) (runinfo.Snapshot, error) {
	raw, err := prefixeddb.NewPrefixedReader(s.db, runPrefix).Get([]byte(id))
	if err != nil {
		return runinfo.Snapshot{}, fmt.Errorf("run %q: %w", id, err)
	}

	var snapshot runinfo.Snapshot
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&snapshot); err != nil {
		return runinfo.Snapshot{}, fmt.Errorf("decoding run %q: %w", id, err)
	}
	return snapshot, nil
}

// List returns every stored run id.
func (s *Store) List() []string {
	var ids []string
	prefixeddb.NewPrefixedReader(s.db, runPrefix).Iterate(nil, func(key, _ []byte) bool {
		ids = append(ids, string(key))
		return true
	})
	return ids
}

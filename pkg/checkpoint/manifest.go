// This file adds a crash-safe, queryable resume manifest on top of the
// plain-text checkpoint formats the rest of this package implements (spec
// §4.H), backed by BadgerDB. Where the text files are the format a human
// or a downstream tool reads, the manifest is a queryable ledger of the
// same progress (per-round records and completed clusters) that can answer
// "where did the last run get to" without re-parsing every artifact file.
// The pipeline writes it; its own restart logic reads the text files, not
// the manifest.
//
// Grounded on the teacher's pkg/storage/badger.go BadgerEngine: a single
// badger.DB keyed by single-byte prefixes, JSON-encoded values, one
// long-lived handle per run directory.
package checkpoint

import (
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

const (
	prefixManifest = byte(0x01) // manifest -> JSON(Manifest), singleton key
	prefixRound    = byte(0x02) // round + clusterID(4BE) -> JSON(RoundRecord)
	prefixDone     = byte(0x03) // done + clusterID(4BE) -> empty
)

var manifestKey = []byte{prefixManifest}

// Manifest records the configuration a run started with. Each run
// overwrites it; nothing in tsdba compares it against a later run's
// settings.
type Manifest struct {
	InputPaths    []string `json:"inputPaths"`
	CDist         float64  `json:"cdist"`
	AlgoMode      int      `json:"algoMode"`
	OpenStart     bool     `json:"openStart"`
	OpenEnd       bool     `json:"openEnd"`
	NormSequences bool     `json:"normSequences"`
}

// RoundRecord is the ledger's view of one cluster's most recent refinement
// round, mirroring the information this package's evolving-centroid
// checkpoint file holds on disk, minus the centroid payload itself (the
// text file remains the source of truth for resuming the actual values;
// the ledger exists for fast "did we get anywhere" queries).
type RoundRecord struct {
	Round int `json:"round"`
}

// Ledger wraps a single badger.DB rooted at one run's ledger directory.
type Ledger struct {
	db *badger.DB
}

// Open opens (creating if absent) the ledger directory at dir.
func Open(dir string) (*Ledger, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: open %s: %w", dir, err)
	}
	return &Ledger{db: db}, nil
}

// Close releases the underlying database handle.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// RecordManifest stores (or overwrites) the run's manifest.
func (l *Ledger) RecordManifest(m Manifest) error {
	return l.set(manifestKey, m)
}

// ReadManifest returns the previously recorded manifest, if any.
func (l *Ledger) ReadManifest() (Manifest, bool, error) {
	var m Manifest
	ok, err := l.get(manifestKey, &m)
	return m, ok, err
}

// RecordRound stores clusterID's latest refinement round number.
func (l *Ledger) RecordRound(clusterID, round int) error {
	return l.set(roundKey(clusterID), RoundRecord{Round: round})
}

// LastRound returns the most recently recorded round for clusterID.
func (l *Ledger) LastRound(clusterID int) (RoundRecord, bool, error) {
	var r RoundRecord
	ok, err := l.get(roundKey(clusterID), &r)
	return r, ok, err
}

// MarkDone records that clusterID's centroid has been finalized and
// written to avg.txt.
func (l *Ledger) MarkDone(clusterID int) error {
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(doneKey(clusterID), nil)
	})
}

// IsDone reports whether clusterID was previously marked done.
func (l *Ledger) IsDone(clusterID int) (bool, error) {
	var found bool
	err := l.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(doneKey(clusterID))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	return found, err
}

func (l *Ledger) set(key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("checkpoint: marshal: %w", err)
	}
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

func (l *Ledger) get(key []byte, out any) (bool, error) {
	var found bool
	err := l.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
	return found, err
}

func roundKey(clusterID int) []byte {
	return append([]byte{prefixRound}, clusterIDBytes(clusterID)...)
}

func doneKey(clusterID int) []byte {
	return append([]byte{prefixDone}, clusterIDBytes(clusterID)...)
}

func clusterIDBytes(clusterID int) []byte {
	return []byte{
		byte(clusterID >> 24),
		byte(clusterID >> 16),
		byte(clusterID >> 8),
		byte(clusterID),
	}
}

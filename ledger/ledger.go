// Package ledger is a non-consensus, bucket-per-concern receipt store
// backed by bbolt. It exists so the ambient cmd/ binaries can persist a
// verified trajectory's receipts across process restarts; the kernel
// packages never import it and never depend on its existence (spec §1:
// storage is an external collaborator, out of scope for the kernel
// itself).
package ledger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/noeticanlabs/cnsc-haai-sub000/khash"
	"github.com/noeticanlabs/cnsc-haai-sub000/q18"
)

var (
	bucketRecordsByID   = []byte("records_by_receipt_id")
	bucketChainByDigest = []byte("chain_by_digest")
	bucketSlabsByRoot   = []byte("slabs_by_root")
	bucketMeta          = []byte("meta_by_receipt_id")
)

// Meta is the non-consensus metadata a producer may attach to a record.
// It is never hashed and never influences admissibility (spec §3): the
// ledger stores it purely for human and operator use.
type Meta struct {
	ProducerRunID uuid.UUID `json:"producer_run_id"`
	ObservedAt    time.Time `json:"observed_at"`
	Note          string    `json:"note,omitempty"`
}

// DB wraps a bbolt database holding accepted receipts.
type DB struct {
	bdb *bolt.DB
}

// Open opens (creating if necessary) a bbolt-backed ledger at path.
func Open(path string) (*DB, error) {
	bdb, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("ledger: open bbolt: %w", err)
	}
	d := &DB{bdb: bdb}
	if err := d.bdb.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketRecordsByID, bucketChainByDigest, bucketSlabsByRoot, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %s: %w", string(b), err)
			}
		}
		return nil
	}); err != nil {
		_ = bdb.Close()
		return nil, err
	}
	return d, nil
}

// Close closes the underlying bbolt database.
func (d *DB) Close() error {
	if d == nil || d.bdb == nil {
		return nil
	}
	return d.bdb.Close()
}

// PutRecord stores a record's canonical core bytes under its receipt id,
// and indexes its chain digest and (optional) non-consensus metadata.
func (d *DB) PutRecord(receiptID khash.Digest, canonicalCore []byte, chainDigest khash.Digest, meta *Meta) error {
	return d.bdb.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketRecordsByID).Put(receiptID[:], canonicalCore); err != nil {
			return err
		}
		if err := tx.Bucket(bucketChainByDigest).Put(chainDigest[:], receiptID[:]); err != nil {
			return err
		}
		if meta != nil {
			b, err := encodeMeta(*meta)
			if err != nil {
				return err
			}
			if err := tx.Bucket(bucketMeta).Put(receiptID[:], b); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetRecord returns the canonical core bytes stored under receiptID.
func (d *DB) GetRecord(receiptID khash.Digest) ([]byte, bool, error) {
	var out []byte
	err := d.bdb.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketRecordsByID).Get(receiptID[:])
		if v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, out != nil, nil
}

// GetMeta returns the non-consensus metadata stored for receiptID, if any.
func (d *DB) GetMeta(receiptID khash.Digest) (Meta, bool, error) {
	var out Meta
	var found bool
	err := d.bdb.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketMeta).Get(receiptID[:])
		if v == nil {
			return nil
		}
		m, err := decodeMeta(v)
		if err != nil {
			return err
		}
		out, found = m, true
		return nil
	})
	if err != nil {
		return Meta{}, false, err
	}
	return out, found, nil
}

// PutSlabRoot records that a slab with the given root sealed a batch
// ending at lastChainDigest, storing that digest and the batch's final
// budget_after under the root.
func (d *DB) PutSlabRoot(root khash.Digest, lastChainDigest khash.Digest, finalBudgetAfter q18.Q) error {
	return d.bdb.Update(func(tx *bolt.Tx) error {
		var budgetBE [8]byte
		binary.BigEndian.PutUint64(budgetBE[:], uint64(finalBudgetAfter))
		v := append(append([]byte{}, lastChainDigest[:]...), budgetBE[:]...)
		return tx.Bucket(bucketSlabsByRoot).Put(root[:], v)
	})
}

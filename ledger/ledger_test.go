package ledger

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/noeticanlabs/cnsc-haai-sub000/khash"
	"github.com/noeticanlabs/cnsc-haai-sub000/q18"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestPutAndGetRecord(t *testing.T) {
	db := openTestDB(t)
	rid := khash.ReceiptID([]byte("abc"))
	cd := khash.ChainDigest(khash.GenesisChainDigest(), rid)
	core := []byte(`{"action_tag":"STEP"}`)

	if err := db.PutRecord(rid, core, cd, nil); err != nil {
		t.Fatal(err)
	}
	got, ok, err := db.GetRecord(rid)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("GetRecord: not found")
	}
	if string(got) != string(core) {
		t.Fatalf("GetRecord = %q, want %q", got, core)
	}
}

func TestGetRecordMissing(t *testing.T) {
	db := openTestDB(t)
	_, ok, err := db.GetRecord(khash.Digest{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("GetRecord: found value for a key never written")
	}
}

func TestPutRecordWithMeta(t *testing.T) {
	db := openTestDB(t)
	rid := khash.ReceiptID([]byte("with-meta"))
	cd := khash.ChainDigest(khash.GenesisChainDigest(), rid)
	meta := &Meta{
		ProducerRunID: uuid.New(),
		ObservedAt:    time.Now().UTC(),
		Note:          "test run",
	}
	if err := db.PutRecord(rid, []byte("{}"), cd, meta); err != nil {
		t.Fatal(err)
	}
	// PutRecord must still make the record retrievable even when meta is
	// attached.
	got, ok, err := db.GetRecord(rid)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || string(got) != "{}" {
		t.Fatalf("GetRecord = %q, %v, want %q, true", got, ok, "{}")
	}

	gotMeta, ok, err := db.GetMeta(rid)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("GetMeta: not found")
	}
	if gotMeta.ProducerRunID != meta.ProducerRunID || gotMeta.Note != meta.Note {
		t.Fatalf("GetMeta = %+v, want %+v", gotMeta, meta)
	}
}

func TestGetMetaMissing(t *testing.T) {
	db := openTestDB(t)
	_, ok, err := db.GetMeta(khash.Digest{9, 9, 9})
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("GetMeta: found value for a key never written")
	}
}

func TestPutSlabRoot(t *testing.T) {
	db := openTestDB(t)
	root := khash.ReceiptID([]byte("slab-root"))
	last := khash.GenesisChainDigest()
	if err := db.PutSlabRoot(root, last, q18.Q(50*q18.Scale)); err != nil {
		t.Fatal(err)
	}
}

func TestCloseIsIdempotentOnNil(t *testing.T) {
	var db *DB
	if err := db.Close(); err != nil {
		t.Fatalf("Close on nil *DB = %v, want nil", err)
	}
}

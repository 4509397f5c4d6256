package index

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"ledgercore/core"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.PanicLevel)
	return log
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testRef(b byte) core.TxoRef {
	var h core.TxHash
	h[0] = b
	return core.TxoRef{Hash: h, Index: uint32(b)}
}

func TestAddThenUtxosByTag(t *testing.T) {
	s := openTestStore(t)
	key := []byte("addr1abc")

	w := s.BeginWriter()
	if err := w.Apply(Delta{Op: Add, Tag: "utxo", Key: key, Ref: testRef(1)}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := w.Apply(Delta{Op: Add, Tag: "utxo", Key: key, Ref: testRef(2)}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := w.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	refs, err := s.UtxosByTag("utxo", key)
	if err != nil {
		t.Fatalf("UtxosByTag: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("got %d refs, want 2: %+v", len(refs), refs)
	}
}

func TestRemoveDeletesRow(t *testing.T) {
	s := openTestStore(t)
	key := []byte("addr2xyz")
	ref := testRef(3)

	w := s.BeginWriter()
	if err := w.Apply(Delta{Op: Add, Tag: "utxo", Key: key, Ref: ref}); err != nil {
		t.Fatalf("Apply add: %v", err)
	}
	if err := w.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	w = s.BeginWriter()
	if err := w.Apply(Delta{Op: Remove, Tag: "utxo", Key: key, Ref: ref}); err != nil {
		t.Fatalf("Apply remove: %v", err)
	}
	if err := w.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	refs, err := s.UtxosByTag("utxo", key)
	if err != nil {
		t.Fatalf("UtxosByTag: %v", err)
	}
	if len(refs) != 0 {
		t.Fatalf("expected no refs after removal, got %+v", refs)
	}
}

func TestUtxosByTagScopedToKey(t *testing.T) {
	s := openTestStore(t)

	w := s.BeginWriter()
	if err := w.Apply(Delta{Op: Add, Tag: "utxo", Key: []byte("addr-a"), Ref: testRef(1)}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := w.Apply(Delta{Op: Add, Tag: "utxo", Key: []byte("addr-b"), Ref: testRef(2)}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := w.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	refs, err := s.UtxosByTag("utxo", []byte("addr-a"))
	if err != nil {
		t.Fatalf("UtxosByTag: %v", err)
	}
	if len(refs) != 1 {
		t.Fatalf("expected only addr-a's single ref, got %+v", refs)
	}
}

func TestDiscardAbortsIndexWrite(t *testing.T) {
	s := openTestStore(t)
	key := []byte("addr3")

	w := s.BeginWriter()
	if err := w.Apply(Delta{Op: Add, Tag: "utxo", Key: key, Ref: testRef(1)}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	w.Discard()

	refs, err := s.UtxosByTag("utxo", key)
	if err != nil {
		t.Fatalf("UtxosByTag: %v", err)
	}
	if len(refs) != 0 {
		t.Fatalf("expected discarded writer to leave no trace, got %+v", refs)
	}
}

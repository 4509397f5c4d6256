package state

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

func TestApplyDeltaThenReadEntity(t *testing.T) {
	s := openTestStore(t)
	cred := []byte("cred-1")

	w := s.BeginWriter()
	d := &core.ControlledAmountIncDelta{Credential: cred, Amount: 42}
	if err := w.ApplyDelta(d); err != nil {
		t.Fatalf("ApplyDelta: %v", err)
	}
	if err := w.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	e, err := s.ReadEntity(core.NsAccounts, core.EntityKey(cred))
	if err != nil {
		t.Fatalf("ReadEntity: %v", err)
	}
	if e == nil || e.Account == nil || e.Account.ControlledAmount != 42 {
		t.Fatalf("unexpected entity: %+v", e)
	}
}

func TestUndoDeltaRestoresPriorEntity(t *testing.T) {
	s := openTestStore(t)
	cred := []byte("cred-2")

	inc := &core.ControlledAmountIncDelta{Credential: cred, Amount: 100}
	w := s.BeginWriter()
	if err := w.ApplyDelta(inc); err != nil {
		t.Fatalf("ApplyDelta inc: %v", err)
	}
	if err := w.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	dec := &core.ControlledAmountDecDelta{Credential: cred, Amount: 30}
	w = s.BeginWriter()
	if err := w.ApplyDelta(dec); err != nil {
		t.Fatalf("ApplyDelta dec: %v", err)
	}
	if err := w.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	e, err := s.ReadEntity(core.NsAccounts, core.EntityKey(cred))
	if err != nil || e.Account.ControlledAmount != 70 {
		t.Fatalf("after dec: %+v, %v", e, err)
	}

	w = s.BeginWriter()
	if err := w.UndoDelta(dec); err != nil {
		t.Fatalf("UndoDelta: %v", err)
	}
	if err := w.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	e, err = s.ReadEntity(core.NsAccounts, core.EntityKey(cred))
	if err != nil || e.Account.ControlledAmount != 100 {
		t.Fatalf("after undo: %+v, %v", e, err)
	}
}

func TestReadEntityRejectsUnknownNamespace(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.ReadEntity(core.Namespace("bogus"), core.EntityKey("x")); err == nil {
		t.Fatalf("expected ReadEntity to reject an unknown namespace")
	}
}

func TestCursorRoundTrip(t *testing.T) {
	s := openTestStore(t)

	if _, found, err := s.ReadCursor(); err != nil || found {
		t.Fatalf("expected no cursor before any write: found=%v err=%v", found, err)
	}

	p := core.AtBlock(10, core.BlockHash{5})
	w := s.BeginWriter()
	if err := w.WriteCursor(p); err != nil {
		t.Fatalf("WriteCursor: %v", err)
	}
	if err := w.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	got, found, err := s.ReadCursor()
	if err != nil || !found || !got.Equal(p) {
		t.Fatalf("ReadCursor = %+v, %v, %v; want %+v, true, nil", got, found, err, p)
	}
}

func TestDiscardRollsBackStagedWrites(t *testing.T) {
	s := openTestStore(t)
	cred := []byte("cred-3")

	w := s.BeginWriter()
	if err := w.ApplyDelta(&core.ControlledAmountIncDelta{Credential: cred, Amount: 1}); err != nil {
		t.Fatalf("ApplyDelta: %v", err)
	}
	w.Discard()

	e, err := s.ReadEntity(core.NsAccounts, core.EntityKey(cred))
	if err != nil {
		t.Fatalf("ReadEntity: %v", err)
	}
	if e != nil {
		t.Fatalf("expected discarded writer to leave no trace, got %+v", e)
	}
}

func TestIterEntitiesRespectsPrefixAndEarlyStop(t *testing.T) {
	s := openTestStore(t)

	w := s.BeginWriter()
	for _, cred := range [][]byte{[]byte("aaa"), []byte("aab"), []byte("zzz")} {
		if err := w.ApplyDelta(&core.ControlledAmountIncDelta{Credential: cred, Amount: 1}); err != nil {
			t.Fatalf("ApplyDelta: %v", err)
		}
	}
	if err := w.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	var seen []string
	err := s.IterEntities(core.NsAccounts, core.EntityKey("aa"), func(k core.EntityKey, e *core.Entity) bool {
		seen = append(seen, string(k))
		return true
	})
	if err != nil {
		t.Fatalf("IterEntities: %v", err)
	}
	if len(seen) != 2 {
		t.Fatalf("seen = %v, want 2 entries under prefix aa", seen)
	}

	var count int
	err = s.IterEntities(core.NsAccounts, nil, func(k core.EntityKey, e *core.Entity) bool {
		count++
		return false
	})
	if err != nil {
		t.Fatalf("IterEntities: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected early stop after first callback, got count=%d", count)
	}
}

package archive

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

func commitBlock(t *testing.T, s *Store, slot core.Slot, hashByte byte, body []byte, rows []TagRow) core.BlockHash {
	t.Helper()
	var hash core.BlockHash
	hash[0] = hashByte
	var txHash core.TxHash
	txHash[0] = hashByte
	if err := s.Commit(slot, hash, uint64(slot), body, []core.TxHash{txHash}, rows); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	return hash
}

func TestCommitThenGetRange(t *testing.T) {
	s := openTestStore(t)
	commitBlock(t, s, 10, 1, []byte("block-10"), nil)
	commitBlock(t, s, 20, 2, []byte("block-20"), nil)
	commitBlock(t, s, 30, 3, []byte("block-30"), nil)

	var slots []core.Slot
	from := core.Slot(15)
	to := core.Slot(25)
	err := s.GetRange(&from, &to, func(slot core.Slot, body []byte) bool {
		slots = append(slots, slot)
		return true
	})
	if err != nil {
		t.Fatalf("GetRange: %v", err)
	}
	if len(slots) != 1 || slots[0] != 20 {
		t.Fatalf("slots = %+v, want [20]", slots)
	}
}

func TestIterPossibleBlocksWithTag(t *testing.T) {
	s := openTestStore(t)
	addr := []byte("addr-1")
	commitBlock(t, s, 10, 1, []byte("block-10"), []TagRow{{Tag: TagAddress, Key: addr}})
	commitBlock(t, s, 20, 2, []byte("block-20"), nil)

	var got []core.Slot
	err := s.IterPossibleBlocksWithTag(TagAddress, addr, 0, 100, func(slot core.Slot, body []byte, pruned bool) bool {
		got = append(got, slot)
		if pruned {
			t.Fatalf("unexpected pruned slot %d", slot)
		}
		return true
	})
	if err != nil {
		t.Fatalf("IterPossibleBlocksWithTag: %v", err)
	}
	if len(got) != 1 || got[0] != 10 {
		t.Fatalf("got %+v, want [10]", got)
	}
}

func TestFindIntersect(t *testing.T) {
	s := openTestStore(t)
	hash := commitBlock(t, s, 10, 7, []byte("b"), nil)

	point := core.AtBlock(10, hash)
	missing := core.AtBlock(99, core.BlockHash{1})

	got, ok, err := s.FindIntersect([]core.ChainPoint{missing, point})
	if err != nil {
		t.Fatalf("FindIntersect: %v", err)
	}
	if !ok || !got.Equal(point) {
		t.Fatalf("FindIntersect = %+v, %v; want %+v, true", got, ok, point)
	}

	got, ok, err = s.FindIntersect([]core.ChainPoint{core.Origin()})
	if err != nil || !ok || got.Kind != core.PointOrigin {
		t.Fatalf("FindIntersect(origin) = %+v, %v, %v", got, ok, err)
	}
}

func TestPruneHistoryRemovesOldSlots(t *testing.T) {
	s := openTestStore(t)
	for slot := core.Slot(0); slot < 10; slot++ {
		commitBlock(t, s, slot, byte(slot+1), []byte("body"), nil)
	}

	done, err := s.PruneHistory(3, 100)
	if err != nil {
		t.Fatalf("PruneHistory: %v", err)
	}
	if !done {
		t.Fatalf("expected PruneHistory to finish within one call given a generous maxPrune")
	}

	var remaining []core.Slot
	err = s.GetRange(nil, nil, func(slot core.Slot, body []byte) bool {
		remaining = append(remaining, slot)
		return true
	})
	if err != nil {
		t.Fatalf("GetRange: %v", err)
	}
	for _, slot := range remaining {
		if slot < 6 {
			t.Fatalf("expected slots older than cutoff to be pruned, found slot %d in %+v", slot, remaining)
		}
	}
}

func TestTruncateFrontRemovesSlotsAfterPoint(t *testing.T) {
	s := openTestStore(t)
	commitBlock(t, s, 10, 1, []byte("a"), nil)
	commitBlock(t, s, 20, 2, []byte("b"), nil)
	commitBlock(t, s, 30, 3, []byte("c"), nil)

	if err := s.TruncateFront(core.AtSlot(20)); err != nil {
		t.Fatalf("TruncateFront: %v", err)
	}

	var remaining []core.Slot
	err := s.GetRange(nil, nil, func(slot core.Slot, body []byte) bool {
		remaining = append(remaining, slot)
		return true
	})
	if err != nil {
		t.Fatalf("GetRange: %v", err)
	}
	if len(remaining) != 2 || remaining[0] != 10 || remaining[1] != 20 {
		t.Fatalf("remaining = %+v, want [10 20]", remaining)
	}
}

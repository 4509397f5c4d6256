package erasummary

import "testing"

func twoEraSummary() *Summary {
	return New([]Era{
		{ProtocolVersion: 1, EpochLength: 100, SlotLength: 1, StartSlot: 0, StartEpoch: 0, StartUnix: 1000},
		{ProtocolVersion: 2, EpochLength: 50, SlotLength: 2, StartSlot: 500, StartEpoch: 5, StartUnix: 1500},
	})
}

func TestEraForSlot(t *testing.T) {
	s := twoEraSummary()

	era, err := s.EraForSlot(10)
	if err != nil || era.ProtocolVersion != 1 {
		t.Fatalf("EraForSlot(10) = %+v, %v; want era 1", era, err)
	}

	era, err = s.EraForSlot(600)
	if err != nil || era.ProtocolVersion != 2 {
		t.Fatalf("EraForSlot(600) = %+v, %v; want era 2", era, err)
	}
}

func TestSlotEpochWithinFirstEra(t *testing.T) {
	s := twoEraSummary()

	epoch, offset, err := s.SlotEpoch(250)
	if err != nil {
		t.Fatalf("SlotEpoch: %v", err)
	}
	if epoch != 2 || offset != 50 {
		t.Fatalf("SlotEpoch(250) = epoch %d offset %d; want epoch 2 offset 50", epoch, offset)
	}
}

func TestSlotEpochAcrossEraBoundary(t *testing.T) {
	s := twoEraSummary()

	// Slot 500 is the second era's StartSlot and StartEpoch 5.
	epoch, offset, err := s.SlotEpoch(550)
	if err != nil {
		t.Fatalf("SlotEpoch: %v", err)
	}
	if epoch != 6 || offset != 0 {
		t.Fatalf("SlotEpoch(550) = epoch %d offset %d; want epoch 6 offset 0", epoch, offset)
	}
}

func TestEpochStartSlotRoundTrip(t *testing.T) {
	s := twoEraSummary()

	start, err := s.EpochStartSlot(7)
	if err != nil {
		t.Fatalf("EpochStartSlot: %v", err)
	}
	epoch, offset, err := s.SlotEpoch(start)
	if err != nil {
		t.Fatalf("SlotEpoch: %v", err)
	}
	if epoch != 7 || offset != 0 {
		t.Fatalf("round trip failed: epoch %d offset %d", epoch, offset)
	}
}

func TestSlotTime(t *testing.T) {
	s := twoEraSummary()

	ts, err := s.SlotTime(520)
	if err != nil {
		t.Fatalf("SlotTime: %v", err)
	}
	// era 2 starts at unix 1500, slot 500, slot length 2: 20 slots in = +40s.
	if ts != 1540 {
		t.Fatalf("SlotTime(520) = %d, want 1540", ts)
	}
}

func TestEpochBoundaryDetectsCrossing(t *testing.T) {
	s := twoEraSummary()

	epoch, boundary, _, ok, err := s.EpochBoundary(95, 105)
	if err != nil {
		t.Fatalf("EpochBoundary: %v", err)
	}
	if !ok || epoch != 1 || boundary != 100 {
		t.Fatalf("EpochBoundary(95,105) = epoch %d boundary %d ok %v; want epoch 1 boundary 100 ok true", epoch, boundary, ok)
	}
}

func TestEpochBoundaryNoneWithinSameEpoch(t *testing.T) {
	s := twoEraSummary()

	_, _, _, ok, err := s.EpochBoundary(10, 20)
	if err != nil {
		t.Fatalf("EpochBoundary: %v", err)
	}
	if ok {
		t.Fatalf("expected no boundary crossing within the same epoch")
	}
}

func TestRupdBoundaryFiresAtStabilityWindow(t *testing.T) {
	s := twoEraSummary()

	due, ok, err := s.RupdBoundary(30, 20, 40)
	if err != nil {
		t.Fatalf("RupdBoundary: %v", err)
	}
	if !ok || due != 30 {
		t.Fatalf("RupdBoundary = %d, %v; want due 30, ok true", due, ok)
	}
}

func TestRupdBoundaryNotYetDue(t *testing.T) {
	s := twoEraSummary()

	_, ok, err := s.RupdBoundary(30, 20, 25)
	if err != nil {
		t.Fatalf("RupdBoundary: %v", err)
	}
	if ok {
		t.Fatalf("expected RupdBoundary to not fire before the stability window elapses")
	}
}

func TestEraForSlotUnknownBeforeFirstEra(t *testing.T) {
	s := New([]Era{{StartSlot: 100, EpochLength: 10, StartEpoch: 1}})
	if _, err := s.EraForSlot(0); err == nil {
		t.Fatalf("expected EraForSlot to fail for a slot before any known era")
	}
}

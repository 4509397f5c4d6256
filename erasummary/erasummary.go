// Package erasummary answers slot/epoch arithmetic questions against a
// sequence of era boundaries: the scheduler and visitor pipeline own no
// epoch-math of their own and go through this collaborator for all of it.
package erasummary

import (
	"sort"

	"ledgercore/core"
	"ledgercore/corerr"
)

// Era is one protocol era's slot-time geometry, grounded on core.EraRecord
// but carrying the fields needed for arithmetic (epoch length in slots,
// slot length in seconds, and the unix timestamp the era's StartSlot maps
// to) rather than the storage-shaped record itself.
type Era struct {
	ProtocolVersion uint16
	EpochLength     uint64
	SlotLength      uint64
	StartSlot       core.Slot
	StartEpoch      core.Epoch
	StartUnix       int64
	EndSlot         *core.Slot // nil for the currently open era
}

// Summary is an immutable, ordered view over the eras seen so far. Eras are
// kept sorted by StartSlot; callers append new eras at an era boundary and
// swap in the new Summary (it never mutates in place).
type Summary struct {
	eras []Era
}

// New builds a Summary from eras already known, sorting them by StartSlot.
func New(eras []Era) *Summary {
	sorted := append([]Era(nil), eras...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StartSlot < sorted[j].StartSlot })
	return &Summary{eras: sorted}
}

// WithEra returns a new Summary with era appended; era must start at or
// after the current tip.
func (s *Summary) WithEra(era Era) *Summary {
	next := append(append([]Era(nil), s.eras...), era)
	return &Summary{eras: next}
}

func (s *Summary) eraForSlotIdx(slot core.Slot) (int, bool) {
	for i := len(s.eras) - 1; i >= 0; i-- {
		if s.eras[i].StartSlot <= slot {
			return i, true
		}
	}
	return 0, false
}

// EraForSlot returns the era whose [StartSlot, EndSlot) range contains slot.
func (s *Summary) EraForSlot(slot core.Slot) (Era, error) {
	i, ok := s.eraForSlotIdx(slot)
	if !ok {
		return Era{}, corerr.Invariant("erasummary", "no era covers slot")
	}
	return s.eras[i], nil
}

// EraForEpoch returns the era whose epoch range contains epoch.
func (s *Summary) EraForEpoch(epoch core.Epoch) (Era, error) {
	for i := len(s.eras) - 1; i >= 0; i-- {
		if s.eras[i].StartEpoch <= epoch {
			return s.eras[i], nil
		}
	}
	return Era{}, corerr.Invariant("erasummary", "no era covers epoch")
}

// SlotEpoch returns the epoch slot falls in, plus the slot's zero-based
// offset within that epoch.
func (s *Summary) SlotEpoch(slot core.Slot) (core.Epoch, uint64, error) {
	era, err := s.EraForSlot(slot)
	if err != nil {
		return 0, 0, err
	}
	if era.EpochLength == 0 {
		return 0, 0, corerr.Invariant("erasummary", "era has zero epoch length")
	}
	offsetSlots := uint64(slot - era.StartSlot)
	epochsIn := offsetSlots / era.EpochLength
	epochSlot := offsetSlots % era.EpochLength
	return era.StartEpoch + core.Epoch(epochsIn), epochSlot, nil
}

// EpochStartSlot returns the first slot of epoch.
func (s *Summary) EpochStartSlot(epoch core.Epoch) (core.Slot, error) {
	era, err := s.EraForEpoch(epoch)
	if err != nil {
		return 0, err
	}
	delta := uint64(epoch-era.StartEpoch) * era.EpochLength
	return era.StartSlot + core.Slot(delta), nil
}

// SlotTime returns the unix timestamp of slot.
func (s *Summary) SlotTime(slot core.Slot) (int64, error) {
	era, err := s.EraForSlot(slot)
	if err != nil {
		return 0, err
	}
	return era.StartUnix + int64(uint64(slot-era.StartSlot)*era.SlotLength), nil
}

// EpochBoundary reports the epoch boundary crossed strictly between
// prevSlot (exclusive) and nextSlot (inclusive), if any. It returns the
// epoch being entered, the exact slot the boundary falls on, and the era
// that epoch belongs to.
func (s *Summary) EpochBoundary(prevSlot, nextSlot core.Slot) (epoch core.Epoch, boundarySlot core.Slot, era Era, ok bool, err error) {
	prevEpoch, _, perr := s.SlotEpoch(prevSlot)
	if perr != nil {
		return 0, 0, Era{}, false, perr
	}
	nextEpoch, _, nerr := s.SlotEpoch(nextSlot)
	if nerr != nil {
		return 0, 0, Era{}, false, nerr
	}
	if nextEpoch <= prevEpoch {
		return 0, 0, Era{}, false, nil
	}
	crossedEpoch := prevEpoch + 1
	boundary, berr := s.EpochStartSlot(crossedEpoch)
	if berr != nil {
		return 0, 0, Era{}, false, berr
	}
	e, eerr := s.EraForEpoch(crossedEpoch)
	if eerr != nil {
		return 0, 0, Era{}, false, eerr
	}
	return crossedEpoch, boundary, e, true, nil
}

// RupdBoundary reports the slot at which the reward-update snapshot for the
// epoch containing prevSlot becomes due — the first slot that is at or past
// epoch_start + stabilityWindow — if that point falls strictly between
// prevSlot (exclusive) and nextSlot (inclusive).
func (s *Summary) RupdBoundary(stabilityWindow uint64, prevSlot, nextSlot core.Slot) (core.Slot, bool, error) {
	epoch, _, err := s.SlotEpoch(prevSlot)
	if err != nil {
		return 0, false, err
	}
	start, err := s.EpochStartSlot(epoch)
	if err != nil {
		return 0, false, err
	}
	due := start + core.Slot(stabilityWindow)
	if due > prevSlot && due <= nextSlot {
		return due, true, nil
	}
	return 0, false, nil
}

// Package scheduler turns an arbitrarily-ordered stream of incoming blocks
// into an ordered stream of typed work units the pipeline consumes. It owns
// no epoch-math of its own; every boundary question is delegated to an
// erasummary.Summary collaborator.
package scheduler

import (
	"ledgercore/core"
	"ledgercore/corerr"
	"ledgercore/erasummary"
)

// WorkKind tags the six work-unit variants pop_work can produce.
type WorkKind uint8

const (
	WorkGenesis WorkKind = iota
	WorkBlocks
	WorkRupd
	WorkEWrap
	WorkEStart
	WorkForcedStop
)

// WorkUnit is one typed unit of work handed to the pipeline.
type WorkUnit struct {
	Kind  WorkKind
	Batch []Block // populated for WorkBlocks
	Slot  core.Slot
	Epoch core.Epoch // populated for WorkEWrap/WorkEStart
}

// Block is the minimal shape the scheduler needs from an incoming block:
// its point and enough to hand off to the visitor. Body carries the raw
// bytes the pipeline needs to decode with blockcodec once it pulls this
// block out of a WorkBlocks batch.
type Block struct {
	Point core.ChainPoint
	Body  []byte
}

// bufState tags the scheduler's internal buffer-state sum.
type bufState uint8

const (
	stEmpty bufState = iota
	stRestart
	stGenesis
	stOpenBatch
	stPreRupdBoundary
	stRupdBoundary
	stPreEwrapBoundary
	stEwrapBoundary
	stEstartBoundary
	stPreForcedStop
	stForcedStop
)

// Scheduler is the rollback-safe state machine described by the buffer
// state diagram: Empty -> Restart(cursor) -> Genesis(block) -> OpenBatch(batch)
// with side branches into the Rupd/EWrap/EStart boundary states.
type Scheduler struct {
	eras            *erasummary.Summary
	stabilityWindow uint64
	stopEpoch       *core.Epoch

	state bufState

	lastPoint core.ChainPoint
	genesis   Block
	batch     []Block
	boundary  Block
	epoch     core.Epoch
}

// New starts a scheduler at cursor, which may be core.Origin() for a full
// replay. stopEpoch, if non-nil, causes a ForcedStop once that epoch opens.
func New(eras *erasummary.Summary, stabilityWindow uint64, cursor core.ChainPoint, stopEpoch *core.Epoch) *Scheduler {
	s := &Scheduler{
		eras:            eras,
		stabilityWindow: stabilityWindow,
		stopEpoch:       stopEpoch,
		lastPoint:       cursor,
	}
	if cursor.Kind == core.PointOrigin {
		s.state = stEmpty
	} else {
		s.state = stRestart
	}
	return s
}

// ReceiveBlock folds one incoming block into the buffer, possibly crossing
// an epoch or Rupd boundary.
func (s *Scheduler) ReceiveBlock(block Block) error {
	if s.state == stEmpty {
		s.genesis = block
		s.state = stGenesis
		s.lastPoint = block.Point
		return nil
	}

	prevSlot := s.lastPoint.Slot
	nextSlot := block.Point.Slot

	if _, boundarySlot, _, ok, err := s.eras.EpochBoundary(prevSlot, nextSlot); err != nil {
		return err
	} else if ok {
		epoch, _, err := s.eras.SlotEpoch(boundarySlot)
		if err != nil {
			return err
		}
		switch s.state {
		case stRestart:
			s.boundary = block
			s.epoch = epoch
			s.state = stEwrapBoundary
		case stOpenBatch:
			s.boundary = block
			s.epoch = epoch
			s.state = stPreEwrapBoundary
		default:
			return corerr.Invariant("scheduler", "epoch boundary reached from unexpected buffer state")
		}
		s.lastPoint = block.Point
		return nil
	}

	if _, ok, err := s.eras.RupdBoundary(s.stabilityWindow, prevSlot, nextSlot); err != nil {
		return err
	} else if ok {
		switch s.state {
		case stRestart:
			s.boundary = block
			s.state = stRupdBoundary
		case stOpenBatch:
			s.boundary = block
			s.state = stPreRupdBoundary
		default:
			return corerr.Invariant("scheduler", "rupd boundary reached from unexpected buffer state")
		}
		s.lastPoint = block.Point
		return nil
	}

	s.extendBatch(block)
	s.lastPoint = block.Point
	return nil
}

func (s *Scheduler) extendBatch(block Block) {
	switch s.state {
	case stRestart:
		s.batch = []Block{block}
		s.state = stOpenBatch
	case stOpenBatch:
		s.batch = append(s.batch, block)
	default:
		s.batch = []Block{block}
		s.state = stOpenBatch
	}
}

// PopWork extracts the next ready work unit, if any, advancing the buffer
// state per the authoritative transition table. ok is false when the
// buffer has nothing ready to emit yet (Empty or mid-accumulation Restart).
func (s *Scheduler) PopWork() (unit WorkUnit, ok bool, err error) {
	switch s.state {
	case stEmpty, stRestart:
		return WorkUnit{}, false, nil

	case stGenesis:
		s.batch = []Block{s.genesis}
		s.state = stOpenBatch
		return WorkUnit{Kind: WorkGenesis}, true, nil

	case stOpenBatch:
		b := s.batch
		s.batch = nil
		s.state = stRestart
		return WorkUnit{Kind: WorkBlocks, Batch: b}, true, nil

	case stPreRupdBoundary:
		b := s.batch
		s.batch = nil
		s.state = stRupdBoundary
		return WorkUnit{Kind: WorkBlocks, Batch: b}, true, nil

	case stRupdBoundary:
		slot := s.boundary.Slot()
		s.batch = []Block{s.boundary}
		s.state = stOpenBatch
		return WorkUnit{Kind: WorkRupd, Slot: slot}, true, nil

	case stPreEwrapBoundary:
		b := s.batch
		s.batch = nil
		s.state = stEwrapBoundary
		return WorkUnit{Kind: WorkBlocks, Batch: b}, true, nil

	case stEwrapBoundary:
		slot := s.boundary.Slot()
		s.state = stEstartBoundary
		return WorkUnit{Kind: WorkEWrap, Slot: slot, Epoch: s.epoch}, true, nil

	case stEstartBoundary:
		slot := s.boundary.Slot()
		epoch := s.epoch + 1
		if s.stopEpoch != nil && epoch == *s.stopEpoch {
			s.state = stPreForcedStop
		} else {
			s.batch = []Block{s.boundary}
			s.state = stOpenBatch
		}
		return WorkUnit{Kind: WorkEStart, Slot: slot, Epoch: epoch}, true, nil

	case stPreForcedStop:
		b := []Block{s.boundary}
		s.state = stForcedStop
		return WorkUnit{Kind: WorkBlocks, Batch: b}, true, nil

	case stForcedStop:
		return WorkUnit{Kind: WorkForcedStop}, true, nil

	default:
		return WorkUnit{}, false, corerr.Invariant("scheduler", "unknown buffer state")
	}
}

// Slot reports the chain point's slot; a convenience the transition table
// reads repeatedly when a boundary block is waiting in the buffer.
func (b Block) Slot() core.Slot { return b.Point.Slot }

// CursorAfter reports the cursor that should be persisted once unit has
// been fully committed downstream, following the cursor-advance rules: only
// Blocks and EStart advance the cursor; Genesis, Rupd, EWrap, and
// ForcedStop leave it unchanged.
func CursorAfter(unit WorkUnit) (core.ChainPoint, bool) {
	switch unit.Kind {
	case WorkBlocks:
		if len(unit.Batch) == 0 {
			return core.ChainPoint{}, false
		}
		last := unit.Batch[len(unit.Batch)-1]
		return last.Point, true
	case WorkEStart:
		return core.AtSlot(unit.Slot), true
	default:
		return core.ChainPoint{}, false
	}
}

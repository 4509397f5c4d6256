// Package pipeline wires the scheduler, visitor, and the four stores into
// one supervised set of tasks: an upstream reader feeds the scheduler,
// work units flow through the visitor, and each commit unit lands across
// State, Index, Archive, and WAL in the fixed lock order the concurrency
// model requires.
package pipeline

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"ledgercore/blockcodec"
	"ledgercore/core"
	"ledgercore/corerr"
	"ledgercore/erasummary"
	"ledgercore/scheduler"
	"ledgercore/store/archive"
	"ledgercore/store/index"
	"ledgercore/store/state"
	"ledgercore/store/wal"
	"ledgercore/visitor"
)

// Stores bundles the four storage engines a Pipeline commits against.
type Stores struct {
	State   *state.Store
	Index   *index.Store
	Archive *archive.Store
	WAL     *wal.Store
}

// Pipeline drives the scheduler/visitor loop against Stores, one work unit
// at a time.
type Pipeline struct {
	stores          Stores
	eras            *erasummary.Summary
	stabilityWindow uint64
	log             *logrus.Logger
	blockType       uint

	resolve visitor.ResolveOutput
}

// New builds a Pipeline. resolve is supplied by the caller because output
// resolution reads through the State Store's live view, which the pipeline
// itself does not hold open outside a writer transaction.
func New(stores Stores, eras *erasummary.Summary, stabilityWindow uint64, blockType uint, log *logrus.Logger, resolve visitor.ResolveOutput) *Pipeline {
	return &Pipeline{
		stores:          stores,
		eras:            eras,
		stabilityWindow: stabilityWindow,
		blockType:       blockType,
		log:             log,
		resolve:         resolve,
	}
}

// Run drives sched until ctx is cancelled or sched reports ForcedStop,
// pulling ready work units and committing each. feed supplies newly
// received blocks into sched between pops; it must not block indefinitely
// or ctx cancellation will stall behind it.
func (p *Pipeline) Run(ctx context.Context, sched *scheduler.Scheduler, feed func(context.Context) (scheduler.Block, bool, error)) error {
	g, ctx := errgroup.WithContext(ctx)

	blocksCh := make(chan scheduler.Block, 64)
	g.Go(func() error {
		defer close(blocksCh)
		for {
			blk, ok, err := feed(ctx)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			select {
			case blocksCh <- blk:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	g.Go(func() error {
		for {
			select {
			case blk, ok := <-blocksCh:
				if !ok {
					return p.drain(ctx, sched)
				}
				if err := sched.ReceiveBlock(blk); err != nil {
					return err
				}
				if err := p.drain(ctx, sched); err != nil {
					return err
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	return g.Wait()
}

func (p *Pipeline) drain(ctx context.Context, sched *scheduler.Scheduler) error {
	for {
		unit, ok, err := sched.PopWork()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := p.commit(ctx, unit); err != nil {
			return err
		}
		if unit.Kind == scheduler.WorkForcedStop {
			return nil
		}
	}
}

// commit applies one work unit to the stores. For a Blocks unit the State
// and Index writers are opened first and stage every block's deltas and
// index rows; the Archive rows and the WAL entries are then written, and the
// State writer (with the new cursor) and the Index writer commit last, so a
// block is in the WAL before it is in the State Store. Each store commits
// its own transaction: a failure after one store has committed does not
// roll that store back.
func (p *Pipeline) commit(ctx context.Context, unit scheduler.WorkUnit) error {
	switch unit.Kind {
	case scheduler.WorkBlocks:
		return p.commitBlocks(unit.Batch)
	case scheduler.WorkGenesis, scheduler.WorkRupd, scheduler.WorkEWrap, scheduler.WorkEStart:
		return p.commitMarker(unit)
	case scheduler.WorkForcedStop:
		return p.stores.WAL.AppendMark(core.Origin())
	default:
		return corerr.Invariant("pipeline", "unknown work unit kind")
	}
}

func (p *Pipeline) commitBlocks(batch []scheduler.Block) error {
	if len(batch) == 0 {
		return nil
	}

	sw := p.stores.State.BeginWriter()
	defer sw.Discard()
	iw := p.stores.Index.BeginWriter()
	defer iw.Discard()

	var points []core.ChainPoint
	var bodies [][]byte
	var archiveRows []archiveBatch

	for _, blk := range batch {
		decoded, err := blockcodec.Decode(p.blockType, blk.Body)
		if err != nil {
			return err
		}
		res, err := visitor.Visit(decoded, p.resolve)
		if err != nil {
			return err
		}
		for _, d := range res.Deltas.Items {
			if err := sw.ApplyDelta(d); err != nil {
				return err
			}
		}
		for _, row := range res.IndexRows {
			if err := iw.Apply(row); err != nil {
				return err
			}
		}
		points = append(points, blk.Point)
		bodies = append(bodies, blk.Body)
		archiveRows = append(archiveRows, archiveBatch{
			slot:        blk.Point.Slot,
			blockHash:   blk.Point.Hash,
			blockNumber: decoded.Number,
			rows:        res.TagRows,
			txHashes:    txHashes(decoded),
		})
	}

	for i, blk := range batch {
		ab := archiveRows[i]
		if err := p.stores.Archive.Commit(ab.slot, ab.blockHash, ab.blockNumber, blk.Body, ab.txHashes, ab.rows); err != nil {
			return err
		}
	}

	if err := p.stores.WAL.AppendForward(points, bodies); err != nil {
		return err
	}

	last := batch[len(batch)-1]
	if err := sw.WriteCursor(last.Point); err != nil {
		return err
	}
	if err := sw.Commit(); err != nil {
		return err
	}
	return iw.Commit()
}

type archiveBatch struct {
	slot        core.Slot
	blockHash   core.BlockHash
	blockNumber uint64
	rows        []archive.TagRow
	txHashes    []core.TxHash
}

func txHashes(b *blockcodec.Block) []core.TxHash {
	out := make([]core.TxHash, 0, len(b.Txs))
	for _, t := range b.Txs {
		out = append(out, t.Hash)
	}
	return out
}

func (p *Pipeline) commitMarker(unit scheduler.WorkUnit) error {
	cursor, advances := scheduler.CursorAfter(unit)
	if advances {
		sw := p.stores.State.BeginWriter()
		if err := sw.WriteCursor(cursor); err != nil {
			sw.Discard()
			return err
		}
		if err := sw.Commit(); err != nil {
			return err
		}
	}
	point := core.Origin()
	if advances {
		point = cursor
	}
	return p.stores.WAL.AppendMark(point)
}

// Package follower implements the downstream chain-sync contract: a
// subscriber negotiates an intersection against the WAL, then receives a
// strict sequence of Apply/Undo/Await frames until it disconnects.
package follower

import (
	"context"

	"ledgercore/core"
	"ledgercore/corerr"
	"ledgercore/store/wal"
)

// FrameKind tags the three frame variants a subscriber receives.
type FrameKind uint8

const (
	FrameApply FrameKind = iota
	FrameUndo
	FrameAwait
)

// Frame is one unit of the downstream stream. Apply carries the block body
// recorded in the WAL entry; Undo carries the point being rolled back past
// and the body its WAL entry recorded. A WAL Mark entry is delivered as an
// Await frame carrying the mark's point; the Await frame Follower.Await
// returns when nothing is ready carries neither and signals "nothing more
// right now".
type Frame struct {
	Kind  FrameKind
	Point core.ChainPoint
	Body  []byte
}

// Follower streams WAL entries to one downstream subscriber starting from a
// negotiated intersection.
type Follower struct {
	wal *wal.Store
	seq core.LogSeq
}

// Intersect finds the first of candidates present in the WAL, most-recent
// first by caller convention, and returns a Follower positioned just after
// it. ok is false if none of candidates is present (NotFound).
func Intersect(w *wal.Store, candidates []core.ChainPoint) (*Follower, core.ChainPoint, bool, error) {
	point, ok, err := w.FindIntersect(candidates)
	if err != nil {
		return nil, core.ChainPoint{}, false, err
	}
	if !ok {
		return nil, core.ChainPoint{}, false, nil
	}
	var afterSeq core.LogSeq
	found := false
	crawlErr := w.CrawlFrom(nil, func(e wal.Entry) bool {
		if e.Point.Equal(point) {
			afterSeq = e.Seq + 1
			found = true
			return false
		}
		return true
	})
	if crawlErr != nil {
		return nil, core.ChainPoint{}, false, crawlErr
	}
	if !found {
		return nil, core.ChainPoint{}, false, corerr.Invariant("follower", "intersection point vanished mid-negotiation")
	}
	return &Follower{wal: w, seq: afterSeq}, point, true, nil
}

// Next blocks (honoring ctx) until a WAL entry is available at or past the
// follower's cursor and returns its frame, checking again each time the
// WAL's tip changes. It never returns the "nothing ready" Await frame; use
// Await for a non-blocking poll.
func (f *Follower) Next(ctx context.Context) (Frame, error) {
	var out Frame
	found := false
	err := f.wal.CrawlFrom(&f.seq, func(e wal.Entry) bool {
		out = entryToFrame(e)
		f.seq = e.Seq + 1
		found = true
		return false
	})
	if err != nil {
		return Frame{}, err
	}
	if found {
		return out, nil
	}

	select {
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case <-f.wal.TipChange():
		return f.Next(ctx)
	}
}

// Await is a convenience for subscribers that want to poll without
// blocking: it returns immediately with an Await frame if nothing is ready.
func (f *Follower) Await() (Frame, bool, error) {
	var out Frame
	found := false
	err := f.wal.CrawlFrom(&f.seq, func(e wal.Entry) bool {
		out = entryToFrame(e)
		f.seq = e.Seq + 1
		found = true
		return false
	})
	if err != nil {
		return Frame{}, false, err
	}
	if !found {
		return Frame{Kind: FrameAwait}, false, nil
	}
	return out, true, nil
}

func entryToFrame(e wal.Entry) Frame {
	switch e.Kind {
	case wal.KindApply:
		return Frame{Kind: FrameApply, Point: e.Point, Body: e.Body}
	case wal.KindUndo:
		return Frame{Kind: FrameUndo, Point: e.Point, Body: e.Body}
	default:
		return Frame{Kind: FrameAwait, Point: e.Point}
	}
}

package core

import "ledgercore/corerr"

// EpochValue wraps a value whose Cardano reward semantics require
// two-epoch-old snapshots: the MARK (latest), SET (previous),
// and GO (stable) windows the reward formula reads from.
type EpochValue[T any] struct {
	Latest   T
	Previous *T
	Stable   *T
	Epoch    Epoch
}

// NewEpochValue seeds a fresh window at epoch e with no history.
func NewEpochValue[T any](v T, e Epoch) EpochValue[T] {
	return EpochValue[T]{Latest: v, Epoch: e}
}

// Update mutates Latest in place. It requires e == Epoch; any other value
// is an invariant violation since updates must target the currently open
// epoch.
func (w *EpochValue[T]) Update(v T, e Epoch) error {
	if e != w.Epoch {
		return corerr.Invariant("epochvalue", "update targets a closed epoch")
	}
	w.Latest = v
	return nil
}

// Transition rotates the window forward to epoch e = w.Epoch+1: Stable takes
// the outgoing Previous, Previous takes the outgoing Latest, and Latest is
// left unchanged (it becomes the new epoch's carried-forward starting
// value until the next Update). Calling Transition with any epoch other
// than w.Epoch+1 is an invariant violation — rotation is always by exactly
// one epoch, matching how the scheduler emits one EWrap/EStart pair per
// boundary crossed.
func (w *EpochValue[T]) Transition(e Epoch) error {
	if e != w.Epoch+1 {
		return corerr.Invariant("epochvalue", "transition must advance exactly one epoch")
	}
	w.Stable = w.Previous
	prev := w.Latest
	w.Previous = &prev
	w.Epoch = e
	return nil
}

// VersionFor answers only for e in {Epoch-2, Epoch-1, Epoch}; any other
// epoch is unavailable. The scheduler never asks outside this window.
func (w *EpochValue[T]) VersionFor(e Epoch) (T, error) {
	var zero T
	switch e {
	case w.Epoch:
		return w.Latest, nil
	case w.Epoch - 1:
		if w.Previous == nil {
			return zero, corerr.EpochValueVersionNotFound(int64(e))
		}
		return *w.Previous, nil
	case w.Epoch - 2:
		if w.Stable == nil {
			return zero, corerr.EpochValueVersionNotFound(int64(e))
		}
		return *w.Stable, nil
	default:
		return zero, corerr.EpochValueVersionNotFound(int64(e))
	}
}

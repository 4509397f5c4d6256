package core

import "ledgercore/corerr"

func wrapDatum(d *DatumState) *Entity { return &Entity{Kind: KindDatum, Datum: d} }

// DatumRefIncrementDelta records a witness sighting of a datum by hash,
// creating the refcounted entity on first sighting and incrementing its
// count otherwise. Only DatumOption::Hash witnesses are refcounted; inline
// datums carried directly in an output never touch this namespace.
//
// was_new does not need to be captured as undo-state: the refcount
// nonnegativity invariant guarantees any pre-existing datum entity already
// has Refcount >= 1, so Undo can tell "this increment created the entity"
// apart from "this increment bumped an existing one" purely by reading the
// post-apply Refcount back (1 means created, >1 means bumped).
type DatumRefIncrementDelta struct {
	Hash  [32]byte
	Bytes []byte
}

func (d *DatumRefIncrementDelta) Key() NsKey {
	return NsKey{Ns: NsDatums, Key: EntityKey(d.Hash[:])}
}

func (d *DatumRefIncrementDelta) Apply(existing *Entity) (*Entity, error) {
	if existing == nil || existing.Datum == nil {
		return wrapDatum(&DatumState{Hash: d.Hash, Bytes: d.Bytes, Refcount: 1}), nil
	}
	s := existing.Datum
	s.Refcount++
	return wrapDatum(s), nil
}

func (d *DatumRefIncrementDelta) Undo(existing *Entity) (*Entity, error) {
	if existing == nil || existing.Datum == nil {
		return nil, corerr.Invariant("datums", "undo increment on missing datum")
	}
	s := existing.Datum
	if s.Refcount <= 1 {
		return nil, nil
	}
	s.Refcount--
	return wrapDatum(s), nil
}

// DatumRefDecrementDelta records that a previously-witnessed datum is no
// longer referenced by the input being spent, decrementing its refcount and
// deleting the entity once it reaches zero. Unlike increment, the
// pre-decrement state is not recoverable from the post-apply entity (a
// deleted entity carries no Refcount to read back from), so Apply captures
// it as ordinary undo-state on the delta value itself. This is safe because
// Undo is only ever invoked on deltas still held by the writer that produced
// them, within the stability window — once a slot is pruned from the State
// Store it is immutable and no Undo can reach it.
//
// A missing datum at Apply or Undo time is a no-op, not an invariant
// violation: inline datums are never refcounted, so a spent input's
// datum option can legitimately resolve to nothing here.
type DatumRefDecrementDelta struct {
	Hash [32]byte

	prevState  DatumState
	hadEntity  bool
	wasRemoved bool
}

func (d *DatumRefDecrementDelta) Key() NsKey {
	return NsKey{Ns: NsDatums, Key: EntityKey(d.Hash[:])}
}

func (d *DatumRefDecrementDelta) Apply(existing *Entity) (*Entity, error) {
	if existing == nil || existing.Datum == nil {
		return nil, nil
	}
	s := existing.Datum
	d.prevState = *s
	d.hadEntity = true
	if s.Refcount <= 1 {
		d.wasRemoved = true
		return nil, nil
	}
	s.Refcount--
	return wrapDatum(s), nil
}

func (d *DatumRefDecrementDelta) Undo(existing *Entity) (*Entity, error) {
	if !d.hadEntity {
		return nil, nil
	}
	if !d.wasRemoved {
		if existing == nil || existing.Datum == nil {
			return nil, corerr.Invariant("datums", "undo decrement on missing datum")
		}
	}
	prev := d.prevState
	return wrapDatum(&prev), nil
}

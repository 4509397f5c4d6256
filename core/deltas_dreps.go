package core

import "ledgercore/corerr"

func drepOrNew(e *Entity, id []byte) *DRepState {
	if e != nil && e.DRep != nil {
		return e.DRep
	}
	return &DRepState{DRepID: append([]byte(nil), id...)}
}

func wrapDRep(d *DRepState) *Entity { return &Entity{Kind: KindDRep, DRep: d} }

// DRepRegistrationDelta registers (or re-registers) a DRep credential.
type DRepRegistrationDelta struct {
	DRepID  []byte
	Deposit uint64
	Epoch   Epoch

	wasNew  bool
	prev    DRepState
}

func (d *DRepRegistrationDelta) Key() NsKey {
	return NsKey{Ns: NsDReps, Key: EntityKey(d.DRepID)}
}

func (d *DRepRegistrationDelta) Apply(existing *Entity) (*Entity, error) {
	d.wasNew = existing == nil || existing.DRep == nil
	r := drepOrNew(existing, d.DRepID)
	if !d.wasNew {
		d.prev = *r
	}
	r.Deposit = d.Deposit
	r.Active = true
	r.LastActiveEpoch = d.Epoch
	r.ExpirationEpoch = d.Epoch
	return wrapDRep(r), nil
}

func (d *DRepRegistrationDelta) Undo(existing *Entity) (*Entity, error) {
	if existing == nil || existing.DRep == nil {
		return nil, corerr.Invariant("dreps", "undo registration on missing drep")
	}
	if d.wasNew {
		return nil, nil
	}
	prev := d.prev
	return wrapDRep(&prev), nil
}

// DRepUnRegistrationDelta clears a DRep's active flag and deposit.
type DRepUnRegistrationDelta struct {
	DRepID []byte
	prev   DRepState
}

func (d *DRepUnRegistrationDelta) Key() NsKey {
	return NsKey{Ns: NsDReps, Key: EntityKey(d.DRepID)}
}

func (d *DRepUnRegistrationDelta) Apply(existing *Entity) (*Entity, error) {
	if existing == nil || existing.DRep == nil {
		return nil, corerr.Invariant("dreps", "unregister missing drep")
	}
	r := existing.DRep
	d.prev = *r
	r.Active = false
	r.Deposit = 0
	return wrapDRep(r), nil
}

func (d *DRepUnRegistrationDelta) Undo(existing *Entity) (*Entity, error) {
	if existing == nil || existing.DRep == nil {
		return nil, corerr.Invariant("dreps", "undo unregistration on missing drep")
	}
	prev := d.prev
	return wrapDRep(&prev), nil
}

// DRepActivityDelta bumps LastActiveEpoch/ExpirationEpoch whenever a DRep
// casts a vote or otherwise proves liveness.
type DRepActivityDelta struct {
	DRepID          []byte
	Epoch           Epoch
	ExpirationEpoch Epoch

	prevLast Epoch
	prevExp  Epoch
}

func (d *DRepActivityDelta) Key() NsKey {
	return NsKey{Ns: NsDReps, Key: EntityKey(d.DRepID)}
}

func (d *DRepActivityDelta) Apply(existing *Entity) (*Entity, error) {
	if existing == nil || existing.DRep == nil {
		return nil, corerr.Invariant("dreps", "activity on missing drep")
	}
	r := existing.DRep
	d.prevLast, d.prevExp = r.LastActiveEpoch, r.ExpirationEpoch
	r.LastActiveEpoch = d.Epoch
	r.ExpirationEpoch = d.ExpirationEpoch
	return wrapDRep(r), nil
}

func (d *DRepActivityDelta) Undo(existing *Entity) (*Entity, error) {
	if existing == nil || existing.DRep == nil {
		return nil, corerr.Invariant("dreps", "undo activity on missing drep")
	}
	r := existing.DRep
	r.LastActiveEpoch, r.ExpirationEpoch = d.prevLast, d.prevExp
	return wrapDRep(r), nil
}

// DRepExpirationDelta is the sweep that flips Active false once a DRep's
// ExpirationEpoch has passed without renewed activity.
type DRepExpirationDelta struct {
	DRepID       []byte
	CurrentEpoch Epoch

	wasActive bool
	touched   bool
}

func (d *DRepExpirationDelta) Key() NsKey {
	return NsKey{Ns: NsDReps, Key: EntityKey(d.DRepID)}
}

func (d *DRepExpirationDelta) Apply(existing *Entity) (*Entity, error) {
	if existing == nil || existing.DRep == nil {
		return nil, corerr.Invariant("dreps", "expire missing drep")
	}
	r := existing.DRep
	if !r.Active || d.CurrentEpoch <= r.ExpirationEpoch {
		return wrapDRep(r), nil
	}
	d.wasActive = true
	d.touched = true
	r.Active = false
	return wrapDRep(r), nil
}

func (d *DRepExpirationDelta) Undo(existing *Entity) (*Entity, error) {
	if existing == nil || existing.DRep == nil {
		return nil, corerr.Invariant("dreps", "undo expiration on missing drep")
	}
	if !d.touched {
		return existing, nil
	}
	r := existing.DRep
	r.Active = d.wasActive
	return wrapDRep(r), nil
}

// DRepDelegatorDropDelta clears an account's DRep vote delegation when the
// target DRep expires or unregisters.
type DRepDelegatorDropDelta struct {
	Credential []byte
	prevDRepID []byte
}

func (d *DRepDelegatorDropDelta) Key() NsKey {
	return NsKey{Ns: NsAccounts, Key: EntityKey(d.Credential)}
}

func (d *DRepDelegatorDropDelta) Apply(existing *Entity) (*Entity, error) {
	if existing == nil || existing.Account == nil {
		return nil, corerr.Invariant("accounts", "drop vote delegation on missing account")
	}
	a := existing.Account
	d.prevDRepID = a.DRepID
	a.DRepID = nil
	return wrapAccount(a), nil
}

func (d *DRepDelegatorDropDelta) Undo(existing *Entity) (*Entity, error) {
	if existing == nil || existing.Account == nil {
		return nil, corerr.Invariant("accounts", "undo vote delegation drop on missing account")
	}
	a := existing.Account
	a.DRepID = d.prevDRepID
	return wrapAccount(a), nil
}

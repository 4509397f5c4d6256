package core

import "ledgercore/corerr"

func epochKey(e Epoch, v EpochStateVersion) EntityKey {
	return EntityKey([]byte{byte(v), byte(e >> 56), byte(e >> 48), byte(e >> 40), byte(e >> 32),
		byte(e >> 24), byte(e >> 16), byte(e >> 8), byte(e)})
}

func wrapEpoch(e *EpochState) *Entity { return &Entity{Kind: KindEpoch, Epoch: e} }

// EpochStatsUpdateDelta accumulates per-block stats (minted blocks, fees,
// active stake) into the open epoch's MARK slot.
type EpochStatsUpdateDelta struct {
	Epoch        Epoch
	AddBlocks    uint64
	AddFees      uint64
	AddActiveSt  uint64

	wasNew   bool
	prev     EpochState
}

func (d *EpochStatsUpdateDelta) Key() NsKey {
	return NsKey{Ns: NsEpochs, Key: epochKey(d.Epoch, EpochMark)}
}

func (d *EpochStatsUpdateDelta) Apply(existing *Entity) (*Entity, error) {
	d.wasNew = existing == nil || existing.Epoch == nil
	var e *EpochState
	if d.wasNew {
		e = &EpochState{Epoch: d.Epoch, Version: EpochMark, PParams: NewPParamsSet(0)}
	} else {
		e = existing.Epoch
		d.prev = *e
	}
	e.BlocksMinted += d.AddBlocks
	e.Fees += d.AddFees
	e.ActiveStake += d.AddActiveSt
	return wrapEpoch(e), nil
}

func (d *EpochStatsUpdateDelta) Undo(existing *Entity) (*Entity, error) {
	if existing == nil || existing.Epoch == nil {
		return nil, corerr.Invariant("epochs", "undo stats update on missing epoch")
	}
	if d.wasNew {
		return nil, nil
	}
	prev := d.prev
	return wrapEpoch(&prev), nil
}

// PParamsUpdateDelta replaces the protocol parameter set carried by an epoch
// slot, typically at an EWrap/EStart boundary once an update proposal has
// ratified.
type PParamsUpdateDelta struct {
	Epoch   Epoch
	Version EpochStateVersion
	Params  PParamsSet

	prev PParamsSet
}

func (d *PParamsUpdateDelta) Key() NsKey {
	return NsKey{Ns: NsEpochs, Key: epochKey(d.Epoch, d.Version)}
}

func (d *PParamsUpdateDelta) Apply(existing *Entity) (*Entity, error) {
	if existing == nil || existing.Epoch == nil {
		return nil, corerr.Invariant("epochs", "pparams update on missing epoch")
	}
	e := existing.Epoch
	d.prev = e.PParams
	e.PParams = d.Params
	return wrapEpoch(e), nil
}

func (d *PParamsUpdateDelta) Undo(existing *Entity) (*Entity, error) {
	if existing == nil || existing.Epoch == nil {
		return nil, corerr.Invariant("epochs", "undo pparams update on missing epoch")
	}
	e := existing.Epoch
	e.PParams = d.prev
	return wrapEpoch(e), nil
}

// NoncesUpdateDelta stamps the epoch nonce computed at an EWrap boundary.
type NoncesUpdateDelta struct {
	Epoch   Epoch
	Version EpochStateVersion
	Nonce   [32]byte

	prev [32]byte
}

func (d *NoncesUpdateDelta) Key() NsKey {
	return NsKey{Ns: NsEpochs, Key: epochKey(d.Epoch, d.Version)}
}

func (d *NoncesUpdateDelta) Apply(existing *Entity) (*Entity, error) {
	if existing == nil || existing.Epoch == nil {
		return nil, corerr.Invariant("epochs", "nonce update on missing epoch")
	}
	e := existing.Epoch
	d.prev = e.Nonce
	e.Nonce = d.Nonce
	return wrapEpoch(e), nil
}

func (d *NoncesUpdateDelta) Undo(existing *Entity) (*Entity, error) {
	if existing == nil || existing.Epoch == nil {
		return nil, corerr.Invariant("epochs", "undo nonce update on missing epoch")
	}
	e := existing.Epoch
	e.Nonce = d.prev
	return wrapEpoch(e), nil
}

package core

import "ledgercore/corerr"

func assetKey(policy, name []byte) EntityKey {
	k := make(EntityKey, 0, len(policy)+len(name))
	k = append(k, policy...)
	k = append(k, name...)
	return k
}

func assetOrNew(e *Entity, policy, name []byte) *AssetState {
	if e != nil && e.Asset != nil {
		return e.Asset
	}
	return &AssetState{
		PolicyID:  append([]byte(nil), policy...),
		AssetName: append([]byte(nil), name...),
	}
}

func wrapAsset(a *AssetState) *Entity { return &Entity{Kind: KindAsset, Asset: a} }

// MintStatsUpdateDelta folds one mint/burn quantity into an asset's running
// total. The first sighting stamps FirstMintTx/FirstMintSlot; later sightings
// leave them untouched.
type MintStatsUpdateDelta struct {
	PolicyID  []byte
	AssetName []byte
	Quantity  int64 // signed: positive mint, negative burn
	Slot      Slot
	TxHash    TxHash

	wasNew       bool
	prevQuantity int64
}

func (d *MintStatsUpdateDelta) Key() NsKey {
	return NsKey{Ns: NsAssets, Key: assetKey(d.PolicyID, d.AssetName)}
}

func (d *MintStatsUpdateDelta) Apply(existing *Entity) (*Entity, error) {
	d.wasNew = existing == nil || existing.Asset == nil
	a := assetOrNew(existing, d.PolicyID, d.AssetName)
	d.prevQuantity = a.Quantity
	if d.wasNew {
		a.FirstMintTx = d.TxHash
		a.FirstMintSlot = d.Slot
	}
	a.Quantity += d.Quantity
	return wrapAsset(a), nil
}

func (d *MintStatsUpdateDelta) Undo(existing *Entity) (*Entity, error) {
	if existing == nil || existing.Asset == nil {
		return nil, corerr.Invariant("assets", "undo mint update on missing asset")
	}
	if d.wasNew {
		return nil, nil
	}
	a := existing.Asset
	a.Quantity = d.prevQuantity
	return wrapAsset(a), nil
}

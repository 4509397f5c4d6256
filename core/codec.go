package core

import (
	"github.com/fxamacker/cbor/v2"

	"ledgercore/corerr"
)

// cborEncMode is a deterministic (canonical) CBOR encoder: map keys sorted,
// shortest-form integers. Canonical encoding is required so that Encode then
// Decode then Encode again reproduces byte-identical output.
var cborEncMode = func() cbor.EncMode {
	opts := cbor.CanonicalEncOptions()
	m, err := opts.EncMode()
	if err != nil {
		panic(err) // options are a compile-time constant; this can't fail
	}
	return m
}()

// EncodeEntity dispatches on e.Kind and returns the namespace it belongs to
// plus its canonical CBOR encoding.
func EncodeEntity(e Entity) (Namespace, []byte, error) {
	ns, err := NamespaceOf(e.Kind)
	if err != nil {
		return "", nil, err
	}
	var payload any
	switch e.Kind {
	case KindAccount:
		payload = e.Account
	case KindPool:
		payload = e.Pool
	case KindAsset:
		payload = e.Asset
	case KindEpoch:
		payload = e.Epoch
	case KindDRep:
		payload = e.DRep
	case KindProposal:
		payload = e.Proposal
	case KindEra:
		payload = e.Era
	case KindDatum:
		payload = e.Datum
	case KindRewardLog:
		payload = e.RewardLog
	case KindStakeLog:
		payload = e.StakeLog
	default:
		return "", nil, corerr.Invariant("entity", "unknown entity kind on encode")
	}
	b, err := cborEncMode.Marshal(payload)
	if err != nil {
		return "", nil, corerr.Decoding(0, "cbor encode entity: "+err.Error())
	}
	return ns, b, nil
}

// DecodeEntity dispatches on ns and decodes bytes into the matching variant.
func DecodeEntity(ns Namespace, b []byte) (Entity, error) {
	kind, err := KindForNamespace(ns)
	if err != nil {
		return Entity{}, err
	}
	e := Entity{Kind: kind}
	var uerr error
	switch kind {
	case KindAccount:
		v := &AccountState{}
		uerr = cbor.Unmarshal(b, v)
		e.Account = v
	case KindPool:
		v := &PoolState{}
		uerr = cbor.Unmarshal(b, v)
		e.Pool = v
	case KindAsset:
		v := &AssetState{}
		uerr = cbor.Unmarshal(b, v)
		e.Asset = v
	case KindEpoch:
		v := &EpochState{}
		uerr = cbor.Unmarshal(b, v)
		e.Epoch = v
	case KindDRep:
		v := &DRepState{}
		uerr = cbor.Unmarshal(b, v)
		e.DRep = v
	case KindProposal:
		v := &Proposal{}
		uerr = cbor.Unmarshal(b, v)
		e.Proposal = v
	case KindEra:
		v := &EraRecord{}
		uerr = cbor.Unmarshal(b, v)
		e.Era = v
	case KindDatum:
		v := &DatumState{}
		uerr = cbor.Unmarshal(b, v)
		e.Datum = v
	case KindRewardLog:
		v := &RewardLog{}
		uerr = cbor.Unmarshal(b, v)
		e.RewardLog = v
	case KindStakeLog:
		v := &StakeLog{}
		uerr = cbor.Unmarshal(b, v)
		e.StakeLog = v
	}
	if uerr != nil {
		return Entity{}, corerr.Decoding(0, "cbor decode entity: "+uerr.Error())
	}
	return e, nil
}

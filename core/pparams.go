package core

import (
	"strconv"

	"ledgercore/corerr"
)

// PParamKind is the closed enum of protocol-parameter variants.
// The set mirrors the real Cardano protocol parameter families: fee
// coefficients, size/deposit limits, reward-curve constants,
// pool/governance thresholds, DRep settings, and Plutus cost models.
type PParamKind uint8

const (
	PMinFeeA PParamKind = iota
	PMinFeeB
	PMaxBlockBodySize
	PMaxTxSize
	PMaxBlockHeaderSize
	PKeyDeposit
	PPoolDeposit
	PMaxEpoch
	PNOpt
	PPoolPledgeInfluence
	PExpansionRate
	PTreasuryGrowthRate
	PMinPoolCost
	PAdaPerUTxOByte
	PMaxValueSize
	PCollateralPercentage
	PMaxCollateralInputs
	PMaxTxExUnitsMem
	PMaxTxExUnitsSteps
	PMaxBlockExUnitsMem
	PMaxBlockExUnitsSteps
	PGovActionLifetime
	PGovActionDeposit
	PDRepDeposit
	PDRepActivity
	PMinCommitteeSize
	PCommitteeTermLimit
	PCostModelPlutusV1
	PCostModelPlutusV2
	PCostModelPlutusV3
	PPvtMotionNoConfidence
	PPvtCommitteeNormal
	PPvtCommitteeNoConfidence
	PPvtHardForkInitiation
	PDvtMotionNoConfidence
	PDvtCommitteeNormal
	PDvtCommitteeNoConfidence
	PDvtUpdateToConstitution
	PDvtHardForkInitiation
	PMinFeeRefScriptCostPerByte
)

// PParamValue holds either an integer or a cost-model blob; exactly one of
// the two is meaningful depending on Kind.
type PParamValue struct {
	Int       int64
	CostModel []int64 // only set for PCostModelPlutusV1/V2/V3
}

// PParamsSet is a sparse key→value map keyed by PParamKind, versioned per
// era. Getters have value_or_default semantics so visitor code
// never has to special-case an unset parameter on the happy path; code that
// genuinely cannot proceed without a parameter uses MustGet instead.
type PParamsSet struct {
	Version uint16
	Values  map[PParamKind]PParamValue
}

// NewPParamsSet constructs an empty set for the given protocol version.
func NewPParamsSet(version uint16) PParamsSet {
	return PParamsSet{Version: version, Values: make(map[PParamKind]PParamValue)}
}

// Get returns the stored value and whether it was present.
func (p PParamsSet) Get(k PParamKind) (PParamValue, bool) {
	v, ok := p.Values[k]
	return v, ok
}

// ValueOrDefault returns the stored int value, or def if unset.
func (p PParamsSet) ValueOrDefault(k PParamKind, def int64) int64 {
	if v, ok := p.Values[k]; ok {
		return v.Int
	}
	return def
}

// MustGet returns the stored value, or a PParamsNotFound error.
func (p PParamsSet) MustGet(k PParamKind) (PParamValue, error) {
	v, ok := p.Values[k]
	if !ok {
		return PParamValue{}, corerr.PParamsNotFound(strconv.Itoa(int(k)))
	}
	return v, nil
}

// Set stores an integer-valued parameter.
func (p PParamsSet) Set(k PParamKind, v int64) {
	p.Values[k] = PParamValue{Int: v}
}

// SetCostModel stores a Plutus cost-model blob.
func (p PParamsSet) SetCostModel(k PParamKind, model []int64) {
	p.Values[k] = PParamValue{CostModel: append([]int64(nil), model...)}
}

// BumpClone copies every value forward into a new set for the next era,
// incrementing Version. Unset fields stay unset (they are NOT reset to zero
// defaults) so era-boundary processing can tell "still unset" apart from
// "explicitly zero", matching how protocol-parameter updates accumulate
// across a hard fork.
func (p PParamsSet) BumpClone() PParamsSet {
	next := NewPParamsSet(p.Version + 1)
	for k, v := range p.Values {
		cm := v.CostModel
		if cm != nil {
			cm = append([]int64(nil), cm...)
		}
		next.Values[k] = PParamValue{Int: v.Int, CostModel: cm}
	}
	return next
}

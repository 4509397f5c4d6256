package core

import "ledgercore/corerr"

// EntityKind tags the aggregate Entity sum. The sum is closed:
// every namespace maps to exactly one kind and vice versa.
type EntityKind uint8

const (
	KindAccount EntityKind = iota
	KindPool
	KindAsset
	KindEpoch
	KindDRep
	KindProposal
	KindEra
	KindDatum
	KindRewardLog
	KindStakeLog
)

// nsForKind and kindForNs keep the namespace <-> kind mapping in one place
// so dispatch in Encode/Decode can never drift from AllNamespaces.
var nsForKind = map[EntityKind]Namespace{
	KindAccount:   NsAccounts,
	KindPool:      NsPools,
	KindAsset:     NsAssets,
	KindEpoch:     NsEpochs,
	KindDRep:      NsDReps,
	KindProposal:  NsProposals,
	KindEra:       NsEras,
	KindDatum:     NsDatums,
	KindRewardLog: NsRewards,
	KindStakeLog:  NsStakes,
}

var kindForNs = func() map[Namespace]EntityKind {
	m := make(map[Namespace]EntityKind, len(nsForKind))
	for k, ns := range nsForKind {
		m[ns] = k
	}
	return m
}()

// AccountState is the `accounts` entity: controlled ADA, delegation target,
// and the reward-cycle bookkeeping the MARK/SET/GO windows require.
type AccountState struct {
	Credential        []byte
	ControlledAmount  uint64
	TotalStake        EpochValue[uint64]
	PoolID            []byte // nil if not delegated
	DRepID            []byte // nil if no vote delegation
	Registered        bool
	WithdrawableRewards uint64
}

// PoolState is the `pools` entity keyed by the 28-byte operator hash.
type PoolState struct {
	OperatorHash   []byte
	Pledge         uint64
	Cost           uint64
	Margin         float64
	RewardAccount  []byte
	Owners         [][]byte
	Relays         [][]byte
	BlocksMinted   uint64
	RetiringEpoch  *Epoch // nil unless a retirement cert has been seen
	ActiveStake    EpochValue[uint64]
	RewardPot      uint64 // accumulated leader reward pending delegator distribution
}

// AssetState is the `assets` entity keyed by policy‖asset-name bytes.
type AssetState struct {
	PolicyID     []byte
	AssetName    []byte
	Quantity     int64 // signed; MintStatsUpdateDelta adds to it with no lower bound, so a negative value can persist
	FirstMintTx  TxHash
	FirstMintSlot Slot
}

// EpochStateVersion is one of the three rotating slots {0,1,2} the `epochs`
// namespace key encodes (MARK/SET/GO).2.
type EpochStateVersion uint8

const (
	EpochMark EpochStateVersion = 0
	EpochSet  EpochStateVersion = 1
	EpochGo   EpochStateVersion = 2
)

// EpochState is the `epochs` entity: aggregate stats for one epoch slot.
type EpochState struct {
	Epoch          Epoch
	Version        EpochStateVersion
	BlocksMinted   uint64
	Fees           uint64
	ActiveStake    uint64
	Nonce          [32]byte
	PParams        PParamsSet
}

// DRepState is the `dreps` entity.
type DRepState struct {
	DRepID         []byte
	Deposit        uint64
	Active         bool
	LastActiveEpoch Epoch
	ExpirationEpoch Epoch
}

// Proposal is the `proposals` entity keyed by `idx (4 BE) ‖ tx_hash`.
type Proposal struct {
	Index          uint32
	TxHash         TxHash
	SubmittedEpoch Epoch
	Status         ProposalStatus
	ResolvedEpoch  *Epoch
}

// ProposalStatus is the closed set of terminal/non-terminal stamps a
// Proposal can carry.
type ProposalStatus uint8

const (
	ProposalOpen ProposalStatus = iota
	ProposalRatified
	ProposalEnacted
	ProposalDropped
	ProposalExpired
)

// EraRecord is the `eras` entity: one row appended at each era boundary.
// (Named distinctly from the erasummary package's EraSummary collaborator
// interface, which is built by folding a sequence of these records.)
type EraRecord struct {
	ProtocolVersion uint16
	EpochLength     uint64
	SlotLength      uint64
	StartSlot       Slot
	EndSlot         *Slot // nil while the era is still open
}

// DatumState is the refcounted `datums` entity.
type DatumState struct {
	Hash     [32]byte
	Bytes    []byte
	Refcount uint32
}

// RewardLog is the `rewards` entity keyed by `(account, epoch)` composite:
// one append-only row per account per epoch a delegator reward is credited.
// Never updated once written.
type RewardLog struct {
	Credential []byte
	Epoch      Epoch
	Amount     uint64
}

// StakeLog is the `stakes` entity keyed by `(pool, epoch)` composite: one
// append-only row per pool per epoch a leader reward is credited. Never
// updated once written.
type StakeLog struct {
	OperatorHash []byte
	Epoch        Epoch
	Amount       uint64
}

// Entity is the aggregate tagged sum over all per-namespace entity types
//. Exactly one of the pointer fields is non-nil.
type Entity struct {
	Kind      EntityKind
	Account   *AccountState
	Pool      *PoolState
	Asset     *AssetState
	Epoch     *EpochState
	DRep      *DRepState
	Proposal  *Proposal
	Era       *EraRecord
	Datum     *DatumState
	RewardLog *RewardLog
	StakeLog  *StakeLog
}

// NamespaceOf returns the namespace that owns kind.
func NamespaceOf(kind EntityKind) (Namespace, error) {
	ns, ok := nsForKind[kind]
	if !ok {
		return "", corerr.Invariant("entity", "unknown entity kind")
	}
	return ns, nil
}

// KindForNamespace is the inverse of NamespaceOf; used by stores that only
// know the namespace and need to dispatch decode.
func KindForNamespace(ns Namespace) (EntityKind, error) {
	k, ok := kindForNs[ns]
	if !ok {
		return 0, corerr.Namespace(string(ns))
	}
	return k, nil
}

// Package blockcodec decodes raw era-tagged CBOR block bytes as they arrive
// from a chain-sync client into the pan-era view the visitor pipeline walks.
// Decoding goes through gouroboros's ledger package so every era's wire
// format (Byron through Conway) is handled by the one library that already
// knows its quirks, rather than by a decoder maintained here.
package blockcodec

import (
	"fmt"

	gledger "github.com/blinklabs-io/gouroboros/ledger"
	"github.com/blinklabs-io/gouroboros/ledger/common"

	"ledgercore/core"
)

// Block is the pan-era view the visitor walks: every era exposes the same
// shape, so nothing downstream of Decode needs an era switch.
type Block struct {
	Era         uint8
	Slot        core.Slot
	Number      uint64
	Hash        core.BlockHash
	PrevHash    core.BlockHash
	IssuerVkey  []byte
	Size        uint64
	Txs         []Tx
	raw         gledger.Block
}

// Tx is the pan-era transaction view.
type Tx struct {
	Hash             core.TxHash
	Era              uint8
	Size             uint64
	IsValid          bool
	Fee              uint64
	TTL              uint64
	Inputs           []core.TxoRef
	Outputs          []TxOutput
	Certs            []Cert
	Mints            []Mint
	Withdrawals      map[string]uint64
	Metadata         []byte
	Redeemers        []Redeemer
	ReferenceInputs  []core.TxoRef
	CollateralInputs []core.TxoRef
	CollateralReturn *TxOutput
	AuxDatums        [][]byte

	raw common.Transaction
}

// TxOutput is one transaction output: address bytes, lovelace, a multi-asset
// bundle, and an optional attached datum (inline bytes or a witnessed hash).
type TxOutput struct {
	Address     []byte
	Lovelace    uint64
	Assets      []AssetAmount
	DatumHash   *[32]byte
	InlineDatum []byte
	ScriptRef   []byte
}

// AssetAmount is one (policy, asset name, quantity) entry within an output's
// multi-asset bundle.
type AssetAmount struct {
	PolicyID  []byte
	AssetName []byte
	Quantity  uint64
}

// CertKind enumerates the certificate variants the visitor distinguishes.
type CertKind uint8

const (
	CertStakeRegistration CertKind = iota
	CertStakeDeregistration
	CertStakeDelegation
	CertPoolRegistration
	CertPoolRetirement
	CertDRepRegistration
	CertDRepUnregistration
	CertDRepUpdate
	CertVoteDelegation
	CertCommitteeAuth
	CertCommitteeResign
	CertOther
)

// Cert is one certificate appearing in a transaction's certificate list,
// with the fields the visitor routes it on. Decode does not fill Certs.
type Cert struct {
	Kind       CertKind
	Credential []byte
	PoolID     []byte
	DRepID     []byte
	Epoch      uint64
	Deposit    uint64
	Raw        []byte
}

// Mint is one (policy, asset name, signed quantity) entry from a
// transaction's mint field.
type Mint struct {
	PolicyID  []byte
	AssetName []byte
	Quantity  int64
}

// Redeemer is one Plutus redeemer entry, kept opaque beyond its tag and
// pointer so the visitor can correlate it with the input/mint/cert/withdrawal
// it scripts.
type Redeemer struct {
	Tag     uint8
	Index   uint32
	DataRaw []byte
}

// Decode parses raw CBOR block bytes tagged with the given NtN/NtC block
// type (gouroboros's block-type discriminant) into the pan-era Block view.
//
// It fills the block's era, slot, number, hash and size, and for each
// transaction its hash, era, fee, TTL, inputs, outputs (address, lovelace
// and assets), withdrawals and metadata. It does not fill PrevHash,
// IssuerVkey, Tx.Size, Certs, Mints, Redeemers, ReferenceInputs,
// CollateralInputs, CollateralReturn, AuxDatums, or an output's DatumHash,
// InlineDatum and ScriptRef, and it sets IsValid to true for every
// transaction.
func Decode(blockType uint, raw []byte) (*Block, error) {
	blk, err := gledger.NewBlockFromCbor(blockType, raw)
	if err != nil {
		return nil, fmt.Errorf("blockcodec: decode block: %w", err)
	}
	return fromLedgerBlock(blk, raw)
}

func fromLedgerBlock(blk gledger.Block, raw []byte) (*Block, error) {
	hash, ok := core.BlockHashFromBytes(blk.Hash().Bytes())
	if !ok {
		return nil, fmt.Errorf("blockcodec: block hash: malformed length")
	}
	out := &Block{
		Era:    uint8(blk.Type()),
		Slot:   core.Slot(blk.SlotNumber()),
		Number: blk.BlockNumber(),
		Hash:   hash,
		Size:   uint64(len(raw)),
		raw:    blk,
	}
	for _, t := range blk.Transactions() {
		tx, err := fromLedgerTx(t, out.Era)
		if err != nil {
			return nil, err
		}
		out.Txs = append(out.Txs, tx)
	}
	return out, nil
}

func fromLedgerTx(t common.Transaction, era uint8) (Tx, error) {
	txHash, ok := core.TxHashFromBytes(t.Hash().Bytes())
	if !ok {
		return Tx{}, fmt.Errorf("blockcodec: tx hash: malformed length")
	}
	out := Tx{
		Hash:        txHash,
		Era:         era,
		IsValid:     true,
		Fee:         t.Fee(),
		TTL:         t.TTL(),
		Withdrawals: map[string]uint64{},
		raw:         t,
	}
	for _, in := range t.Inputs() {
		ref, ok := core.NewTxoRef(in.Id().Bytes(), in.Index())
		if !ok {
			return Tx{}, fmt.Errorf("blockcodec: tx input: malformed hash length")
		}
		out.Inputs = append(out.Inputs, ref)
	}
	for _, o := range t.Outputs() {
		txOut := TxOutput{
			Address:  o.Address().Bytes(),
			Lovelace: o.Amount(),
		}
		for _, asset := range o.Assets() {
			txOut.Assets = append(txOut.Assets, AssetAmount{
				PolicyID:  asset.PolicyId().Bytes(),
				AssetName: []byte(asset.Name()),
				Quantity:  asset.Amount(),
			})
		}
		out.Outputs = append(out.Outputs, txOut)
	}
	for w, amt := range t.Withdrawals() {
		out.Withdrawals[string(w.Bytes())] = amt
	}
	if md := t.Metadata(); md != nil {
		out.Metadata = md.Cbor()
	}
	return out, nil
}

// IntersectHash returns the 32-byte content hash gouroboros assigns the
// block, independent of the pan-era view above — used when negotiating a
// chain-sync intersection before a full Decode is warranted.
func IntersectHash(blockType uint, raw []byte) (core.BlockHash, error) {
	blk, err := gledger.NewBlockFromCbor(blockType, raw)
	if err != nil {
		return core.BlockHash{}, fmt.Errorf("blockcodec: intersect hash: %w", err)
	}
	hash, ok := core.BlockHashFromBytes(blk.Hash().Bytes())
	if !ok {
		return core.BlockHash{}, fmt.Errorf("blockcodec: intersect hash: malformed length")
	}
	return hash, nil
}

// Package visitor walks one decoded block and emits the deltas and index
// rows needed to advance state by that block. It is a single pass: callbacks
// fire in a fixed order per transaction, each pushing into the WorkDeltas
// accumulator the pipeline later flushes into one state-writer transaction.
package visitor

import (
	"ledgercore/blockcodec"
	"ledgercore/core"
	"ledgercore/store/archive"
	"ledgercore/store/index"
)

const utxoTag = "utxo"

// ResolveOutput looks up the output an input consumes, so the visitor can
// credit the right account/asset deltas on spend and decide whether a spent
// output carried a witnessed datum. Implementations read the State Store;
// resolution must see the same snapshot the surrounding writer transaction
// will commit against.
type ResolveOutput func(ref core.TxoRef) (*blockcodec.TxOutput, bool, error)

// Result is everything one block's visit produced: the entity deltas (for
// the State Store writer), the index rows (for the Index Store writer), and
// the archive tag rows (for the Archive Store writer, once the block is
// within the stability window).
type Result struct {
	Deltas    core.WorkDeltas
	IndexRows []index.Delta
	TagRows   []archive.TagRow
}

// Visit runs visit_root/visit_tx/visit_input/visit_output/visit_cert/visit_mint
// over block in order, accumulating one Result.
func Visit(block *blockcodec.Block, resolve ResolveOutput) (Result, error) {
	var res Result
	for _, tx := range block.Txs {
		if err := visitTx(block, tx, resolve, &res); err != nil {
			return Result{}, err
		}
	}
	return res, nil
}

func visitTx(block *blockcodec.Block, tx blockcodec.Tx, resolve ResolveOutput, res *Result) error {
	if !tx.IsValid {
		return nil
	}

	witnessDatums := map[[32]byte][]byte{}
	for _, d := range tx.AuxDatums {
		h := witnessDatumHash(d)
		witnessDatums[h] = d
	}

	for _, in := range tx.Inputs {
		out, found, err := resolve(in)
		if err != nil {
			return err
		}
		if err := visitInput(tx, in, out, found, res); err != nil {
			return err
		}
		res.IndexRows = append(res.IndexRows, index.Delta{
			Op:  index.Remove,
			Tag: utxoTag,
			Key: addressKey(out),
			Ref: in,
		})
		res.TagRows = append(res.TagRows, archive.TagRow{Tag: archive.TagSpentTxo, Key: in.Bytes()})
	}

	for idx, out := range tx.Outputs {
		ref := core.TxoRef{Hash: tx.Hash, Index: uint32(idx)}
		if err := visitOutput(tx, ref, out, witnessDatums, res); err != nil {
			return err
		}
		res.IndexRows = append(res.IndexRows, index.Delta{
			Op:  index.Add,
			Tag: utxoTag,
			Key: append([]byte(nil), out.Address...),
			Ref: ref,
		})
		res.TagRows = append(res.TagRows, archive.TagRow{Tag: archive.TagAddress, Key: out.Address})
	}

	for order, cert := range tx.Certs {
		if err := visitCert(block, tx, order, cert, res); err != nil {
			return err
		}
	}

	for _, mint := range tx.Mints {
		visitMint(block, tx, mint, res)
	}

	return nil
}

func visitInput(tx blockcodec.Tx, ref core.TxoRef, out *blockcodec.TxOutput, found bool, res *Result) error {
	if !found || out == nil {
		return nil
	}
	res.Deltas.Push(&core.ControlledAmountDecDelta{
		Credential: out.Address,
		Amount:     out.Lovelace,
	})
	for _, a := range out.Assets {
		res.Deltas.Push(&core.MintStatsUpdateDelta{
			PolicyID:  a.PolicyID,
			AssetName: a.AssetName,
			Quantity:  -int64(a.Quantity),
			Slot:      0,
			TxHash:    tx.Hash,
		})
	}
	if out.DatumHash != nil {
		res.Deltas.Push(&core.DatumRefDecrementDelta{Hash: *out.DatumHash})
	}
	return nil
}

func visitOutput(tx blockcodec.Tx, ref core.TxoRef, out blockcodec.TxOutput, witness map[[32]byte][]byte, res *Result) error {
	res.Deltas.Push(&core.ControlledAmountIncDelta{
		Credential: out.Address,
		Amount:     out.Lovelace,
	})
	for _, a := range out.Assets {
		res.Deltas.Push(&core.MintStatsUpdateDelta{
			PolicyID:  a.PolicyID,
			AssetName: a.AssetName,
			Quantity:  int64(a.Quantity),
			TxHash:    tx.Hash,
		})
	}
	if out.DatumHash != nil {
		if bytes, ok := witness[*out.DatumHash]; ok {
			res.Deltas.Push(&core.DatumRefIncrementDelta{Hash: *out.DatumHash, Bytes: bytes})
		}
	}
	return nil
}

func visitCert(block *blockcodec.Block, tx blockcodec.Tx, order int, cert blockcodec.Cert, res *Result) error {
	switch cert.Kind {
	case blockcodec.CertStakeRegistration:
		res.Deltas.Push(&core.StakeRegistrationDelta{Credential: cert.Credential})
	case blockcodec.CertStakeDeregistration:
		res.Deltas.Push(&core.StakeDeregistrationDelta{Credential: cert.Credential})
	case blockcodec.CertStakeDelegation:
		res.Deltas.Push(&core.StakeDelegationDelta{Credential: cert.Credential, PoolID: cert.PoolID})
	case blockcodec.CertVoteDelegation:
		res.Deltas.Push(&core.VoteDelegationDelta{Credential: cert.Credential, DRepID: cert.DRepID})
	case blockcodec.CertPoolRegistration:
		res.Deltas.Push(&core.PoolRegistrationDelta{OperatorHash: cert.PoolID})
	case blockcodec.CertPoolRetirement:
		res.Deltas.Push(&core.PoolDeRegistrationDelta{OperatorHash: cert.PoolID, RetiringEpoch: core.Epoch(cert.Epoch)})
	case blockcodec.CertDRepRegistration:
		res.Deltas.Push(&core.DRepRegistrationDelta{DRepID: cert.DRepID, Deposit: cert.Deposit, Epoch: core.Epoch(cert.Epoch)})
	case blockcodec.CertDRepUnregistration:
		res.Deltas.Push(&core.DRepUnRegistrationDelta{DRepID: cert.DRepID})
	case blockcodec.CertDRepUpdate:
		res.Deltas.Push(&core.DRepActivityDelta{DRepID: cert.DRepID, Epoch: core.Epoch(cert.Epoch)})
	default:
		// committee authorization/resignation and any other cert kinds do
		// not yet have a dedicated namespace; they are observed but not
		// folded into state.
	}
	res.TagRows = append(res.TagRows, archive.TagRow{Tag: archive.TagAccountCert, Key: cert.Credential})
	return nil
}

func visitMint(block *blockcodec.Block, tx blockcodec.Tx, mint blockcodec.Mint, res *Result) {
	res.Deltas.Push(&core.MintStatsUpdateDelta{
		PolicyID:  mint.PolicyID,
		AssetName: mint.AssetName,
		Quantity:  mint.Quantity,
		TxHash:    tx.Hash,
	})
	res.TagRows = append(res.TagRows, archive.TagRow{Tag: archive.TagAsset, Key: mint.PolicyID})
}

func addressKey(out *blockcodec.TxOutput) []byte {
	if out == nil {
		return nil
	}
	return append([]byte(nil), out.Address...)
}

// witnessDatumHash keys a witness-set datum by the hash its output-side
// DatumHash field is compared against. Hashing is blockcodec's job (it sees
// the raw plutus_data bytes before the visitor does); by the time a datum
// reaches AuxDatums here it is already paired with its hash by the codec, so
// this only covers the single-datum-per-slice convention AuxDatums uses.
func witnessDatumHash(b []byte) [32]byte {
	var h [32]byte
	copy(h[:], b)
	return h
}

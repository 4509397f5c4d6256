// Package core holds the data model shared by every component of the
// ledger indexer: chain primitives, the closed sum of typed entities,
// epoch-windowed values, the delta envelope, and protocol parameters.
package core

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
)

// Slot is a monotonic non-negative integer identifying a time step on the
// chain.
type Slot uint64

// Epoch partitions slots; era-dependent length.
type Epoch int64

// BlockHash is a 32-byte block identifier.
type BlockHash [32]byte

func (h BlockHash) String() string { return hex.EncodeToString(h[:]) }

// TxHash is a 32-byte transaction identifier.
type TxHash [32]byte

func (h TxHash) String() string { return hex.EncodeToString(h[:]) }

// BlockHashFromBytes validates and copies a 32-byte block hash, for
// converting a codec-supplied hash into the fixed-size form used as a key.
func BlockHashFromBytes(b []byte) (BlockHash, bool) {
	if len(b) != 32 {
		return BlockHash{}, false
	}
	var h BlockHash
	copy(h[:], b)
	return h, true
}

// TxHashFromBytes validates and copies a 32-byte transaction hash.
func TxHashFromBytes(b []byte) (TxHash, bool) {
	if len(b) != 32 {
		return TxHash{}, false
	}
	var h TxHash
	copy(h[:], b)
	return h, true
}

// NewTxoRef builds a TxoRef from a 32-byte transaction hash and output
// index, for converting a codec-supplied input reference.
func NewTxoRef(hash []byte, index uint32) (TxoRef, bool) {
	h, ok := TxHashFromBytes(hash)
	if !ok {
		return TxoRef{}, false
	}
	return TxoRef{Hash: h, Index: index}, true
}

// TxoRef is a canonical (TxHash, output index) pair. Its byte encoding is
// used directly as index values, so field order and width are part of the
// wire contract: 32-byte hash followed by a 4-byte big-endian index.
type TxoRef struct {
	Hash  TxHash
	Index uint32
}

// Bytes returns the canonical 36-byte encoding of the reference.
func (r TxoRef) Bytes() []byte {
	b := make([]byte, 36)
	copy(b, r.Hash[:])
	binary.BigEndian.PutUint32(b[32:], r.Index)
	return b
}

// ParseTxoRef decodes the canonical encoding produced by Bytes.
func ParseTxoRef(b []byte) (TxoRef, bool) {
	if len(b) != 36 {
		return TxoRef{}, false
	}
	var r TxoRef
	copy(r.Hash[:], b[:32])
	r.Index = binary.BigEndian.Uint32(b[32:])
	return r, true
}

// ChainPointKind tags the variant of a ChainPoint.
type ChainPointKind uint8

const (
	// PointOrigin is the point before any block: the start of the chain.
	PointOrigin ChainPointKind = iota
	// PointSlot names a slot without committing to a specific block at
	// that slot — used for the cursor left behind by EStart.
	PointSlot
	// PointSpecific names an exact (slot, hash) pair — a fully committed
	// block.
	PointSpecific
)

// ChainPoint is the tagged variant {Origin | Slot(u64) | Specific(u64,
// BlockHash)} used as a cursor unit throughout the core. Its fixed 41-byte
// serialization is: 1 tag byte, 8-byte BE slot, 32-byte hash (zero-filled
// when absent).
type ChainPoint struct {
	Kind ChainPointKind
	Slot Slot
	Hash BlockHash
}

// Origin is the point before the first block of the chain.
func Origin() ChainPoint { return ChainPoint{Kind: PointOrigin} }

// AtSlot builds a Slot-only ChainPoint.
func AtSlot(slot Slot) ChainPoint { return ChainPoint{Kind: PointSlot, Slot: slot} }

// AtBlock builds a fully-specified ChainPoint.
func AtBlock(slot Slot, hash BlockHash) ChainPoint {
	return ChainPoint{Kind: PointSpecific, Slot: slot, Hash: hash}
}

// Bytes serializes the point to its fixed 41-byte wire form.
func (p ChainPoint) Bytes() []byte {
	b := make([]byte, 41)
	b[0] = byte(p.Kind)
	binary.BigEndian.PutUint64(b[1:9], uint64(p.Slot))
	copy(b[9:41], p.Hash[:])
	return b
}

// ParseChainPoint decodes the form produced by Bytes.
func ParseChainPoint(b []byte) (ChainPoint, bool) {
	if len(b) != 41 {
		return ChainPoint{}, false
	}
	var p ChainPoint
	p.Kind = ChainPointKind(b[0])
	p.Slot = Slot(binary.BigEndian.Uint64(b[1:9]))
	copy(p.Hash[:], b[9:41])
	return p, true
}

// Equal compares two points for exact equality (same kind, slot, and hash).
func (p ChainPoint) Equal(o ChainPoint) bool {
	return p.Kind == o.Kind && p.Slot == o.Slot && bytes.Equal(p.Hash[:], o.Hash[:])
}

// Namespace identifies an entity family. Kept short (<=16 ASCII bytes) so it
// can be embedded directly in composite storage keys.
type Namespace string

// The closed set of namespaces.
const (
	NsAccounts  Namespace = "accounts"
	NsPools     Namespace = "pools"
	NsAssets    Namespace = "assets"
	NsEpochs    Namespace = "epochs"
	NsDReps     Namespace = "dreps"
	NsProposals Namespace = "proposals"
	NsEras      Namespace = "eras"
	NsDatums    Namespace = "datums"
	NsRewards   Namespace = "rewards"
	NsStakes    Namespace = "stakes"
)

// AllNamespaces lists every namespace the schema must accept. Order is
// insignificant but fixed for stable iteration in diagnostics.
var AllNamespaces = []Namespace{
	NsAccounts, NsPools, NsAssets, NsEpochs, NsDReps,
	NsProposals, NsEras, NsDatums, NsRewards, NsStakes,
}

// EntityKey is opaque bytes; ordering is by lexicographic byte compare,
// which every store in this module relies on for prefix iteration.
type EntityKey []byte

// NsKey pairs a Namespace with an EntityKey, the universal address of an
// entity in the State Store and the Index Store.
type NsKey struct {
	Ns  Namespace
	Key EntityKey
}

// StorageKey renders the (ns, key) pair into one byte slice suitable for use
// as a KV-engine key: namespace, a 0x00 separator (namespaces never contain
// NUL), then the raw entity key.
func (k NsKey) StorageKey() []byte {
	b := make([]byte, 0, len(k.Ns)+1+len(k.Key))
	b = append(b, k.Ns...)
	b = append(b, 0x00)
	b = append(b, k.Key...)
	return b
}

// LogSeq is the monotonic WAL sequence number.
type LogSeq uint64

// Package corerr defines the typed error taxonomy shared by every component
// of the ledger indexer core. Each sentinel is wrapped with slot/tx/namespace
// context so callers can still recover the sentinel with errors.Is, in the
// same style as pkg/utils.Wrap.
package corerr

import "errors"

// Sentinels. Compare against these with errors.Is, never by string.
var (
	// ErrDecoding: a block, tx, entity, or delta could not be parsed.
	// Fatal for the affected block.
	ErrDecoding = errors.New("decoding error")

	// ErrInvariantViolation: a delta applied to an entity in a shape that
	// should be impossible. Fatal; indicates a data-model bug.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrNamespaceNotFound: schema/store mismatch.
	ErrNamespaceNotFound = errors.New("namespace not found")

	// ErrPointNotOnChain: downstream follower requested an intersection
	// not present in the WAL. Non-fatal to the core.
	ErrPointNotOnChain = errors.New("point not on chain")

	// ErrStorage: underlying KV engine failure.
	ErrStorage = errors.New("storage error")

	// ErrPParamsNotFound: a required protocol parameter is absent.
	ErrPParamsNotFound = errors.New("protocol parameter not found")

	// ErrEpochValueVersionNotFound: requested an EpochValue version
	// outside {epoch, epoch-1, epoch-2}.
	ErrEpochValueVersionNotFound = errors.New("epoch value version not found")
)

// Error carries the sentinel plus slot/tx/namespace context that callers use
// for structured logging without parsing strings.
type Error struct {
	Kind      error
	Namespace string
	Slot      uint64
	TxHash    string
	Detail    string
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Namespace != "" {
		msg += " ns=" + e.Namespace
	}
	if e.TxHash != "" {
		msg += " tx=" + e.TxHash
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Kind }

// Decoding builds a DecodingError with context.
func Decoding(slot uint64, detail string) error {
	return &Error{Kind: ErrDecoding, Slot: slot, Detail: detail}
}

// Invariant builds an InvariantViolation with context.
func Invariant(ns string, detail string) error {
	return &Error{Kind: ErrInvariantViolation, Namespace: ns, Detail: detail}
}

// Namespace builds a NamespaceNotFound error.
func Namespace(ns string) error {
	return &Error{Kind: ErrNamespaceNotFound, Namespace: ns}
}

// NotOnChain builds a PointNotOnChain error.
func NotOnChain(slot uint64) error {
	return &Error{Kind: ErrPointNotOnChain, Slot: slot}
}

// Storage builds a StorageError wrapping an underlying KV engine failure.
// The raw engine error is folded into Detail as a string summary only;
// callers never get a handle on the underlying KV-engine error type.
func Storage(detail string) error {
	return &Error{Kind: ErrStorage, Detail: detail}
}

// PParamsNotFound builds a PParamsNotFound error.
func PParamsNotFound(kind string) error {
	return &Error{Kind: ErrPParamsNotFound, Detail: kind}
}

// EpochValueVersionNotFound builds an EpochValueVersionNotFound error.
func EpochValueVersionNotFound(epoch int64) error {
	return &Error{Kind: ErrEpochValueVersionNotFound, Detail: fmtEpoch(epoch)}
}

func fmtEpoch(e int64) string {
	if e < 0 {
		return "epoch=?"
	}
	// Avoid fmt import for a single call site; keep the package dependency
	// surface minimal since this is imported everywhere.
	digits := [20]byte{}
	i := len(digits)
	n := e
	if n == 0 {
		return "epoch=0"
	}
	for n > 0 {
		i--
		digits[i] = byte('0' + n%10)
		n /= 10
	}
	return "epoch=" + string(digits[i:])
}

// Package index maintains the live secondary indexes used for state
// queries such as utxos_by_tag. It participates in the same transactional
// boundary as the State Store writer for each block: an index row exists
// if and only if the corresponding output exists in State.
package index

import (
	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"ledgercore/core"
	"ledgercore/corerr"
)

// OpKind is the two-variant IndexDelta sum: add or remove one TxoRef under
// a (tag, key) pair.
type OpKind uint8

const (
	Add OpKind = iota
	Remove
)

// Delta is one index mutation.
type Delta struct {
	Op  OpKind
	Tag string
	Key []byte
	Ref core.TxoRef
}

func rowKey(tag string, key []byte, ref core.TxoRef) []byte {
	refBytes := ref.Bytes()
	b := make([]byte, 0, len(tag)+1+len(key)+1+len(refBytes))
	b = append(b, tag...)
	b = append(b, 0x00)
	b = append(b, key...)
	b = append(b, 0x00)
	b = append(b, refBytes...)
	return b
}

func scanPrefix(tag string, key []byte) []byte {
	b := make([]byte, 0, len(tag)+1+len(key)+1)
	b = append(b, tag...)
	b = append(b, 0x00)
	b = append(b, key...)
	b = append(b, 0x00)
	return b
}

// Store is the badger-backed live index.
type Store struct {
	db  *badger.DB
	log *logrus.Logger
}

// Open opens (or creates) the index store rooted at dir.
func Open(dir string, log *logrus.Logger) (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, corerr.Storage("index open: " + err.Error())
	}
	return &Store{db: db, log: log}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// UtxosByTag returns every TxoRef currently indexed under (tag, key).
func (s *Store) UtxosByTag(tag string, key []byte) ([]core.TxoRef, error) {
	var refs []core.TxoRef
	prefix := scanPrefix(tag, key)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			k := it.Item().Key()
			refBytes := k[len(prefix):]
			ref, ok := core.ParseTxoRef(refBytes)
			if !ok {
				return corerr.Decoding(0, "index row key malformed")
			}
			refs = append(refs, ref)
		}
		return nil
	})
	return refs, err
}

// Writer is the exclusive index writer transaction.
type Writer struct {
	txn *badger.Txn
}

// BeginWriter acquires the exclusive writer transaction.
func (s *Store) BeginWriter() *Writer {
	return &Writer{txn: s.db.NewTransaction(true)}
}

// Apply folds one IndexDelta into the transaction.
func (w *Writer) Apply(d Delta) error {
	key := rowKey(d.Tag, d.Key, d.Ref)
	switch d.Op {
	case Add:
		if err := w.txn.Set(key, nil); err != nil {
			return corerr.Storage("index set: " + err.Error())
		}
	case Remove:
		if err := w.txn.Delete(key); err != nil && err != badger.ErrKeyNotFound {
			return corerr.Storage("index delete: " + err.Error())
		}
	default:
		return corerr.Invariant("index", "unknown index op kind")
	}
	return nil
}

// Commit finalizes the transaction.
func (w *Writer) Commit() error {
	if err := w.txn.Commit(); err != nil {
		return corerr.Storage("index writer commit: " + err.Error())
	}
	return nil
}

// Discard aborts the transaction.
func (w *Writer) Discard() { w.txn.Discard() }

// Package state is the current, transactional, namespaced entity store: one
// writer at a time, arbitrarily many concurrent readers, with a single
// authoritative cursor recording "state covers everything up to and
// including this point".
package state

import (
	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"ledgercore/core"
	"ledgercore/corerr"
)

var cursorKey = []byte("~cursor")

func entityKey(ns core.Namespace, key core.EntityKey) []byte {
	k := make([]byte, 0, len(ns)+1+len(key))
	k = append(k, ns...)
	k = append(k, 0x00)
	k = append(k, key...)
	return k
}

func namespacePrefix(ns core.Namespace, prefix core.EntityKey) []byte {
	k := make([]byte, 0, len(ns)+1+len(prefix))
	k = append(k, ns...)
	k = append(k, 0x00)
	k = append(k, prefix...)
	return k
}

var validNamespace = func() map[core.Namespace]bool {
	m := make(map[core.Namespace]bool, len(core.AllNamespaces))
	for _, ns := range core.AllNamespaces {
		m[ns] = true
	}
	return m
}()

// Store wraps a badger database implementing the namespaced entity schema.
type Store struct {
	db  *badger.DB
	log *logrus.Logger
}

// Open opens (or creates) the state store rooted at dir.
func Open(dir string, log *logrus.Logger) (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, corerr.Storage("state open: " + err.Error())
	}
	return &Store{db: db, log: log}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// ReadEntity looks up and decodes the entity at (ns, key).
func (s *Store) ReadEntity(ns core.Namespace, key core.EntityKey) (*core.Entity, error) {
	if !validNamespace[ns] {
		return nil, corerr.Namespace(string(ns))
	}
	var out *core.Entity
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(entityKey(ns, key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return corerr.Storage("state read: " + err.Error())
		}
		return item.Value(func(val []byte) error {
			e, derr := core.DecodeEntity(ns, val)
			if derr != nil {
				return derr
			}
			out = &e
			return nil
		})
	})
	return out, err
}

// IterEntities walks entities in ns in key-ascending order, restricted to
// keys with the given prefix (nil for the whole namespace), calling fn for
// each until it returns false.
func (s *Store) IterEntities(ns core.Namespace, prefix core.EntityKey, fn func(core.EntityKey, *core.Entity) bool) error {
	if !validNamespace[ns] {
		return corerr.Namespace(string(ns))
	}
	nsPrefix := namespacePrefix(ns, prefix)
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = nsPrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(nsPrefix); it.ValidForPrefix(nsPrefix); it.Next() {
			item := it.Item()
			fullKey := item.Key()
			key := core.EntityKey(fullKey[len(ns)+1:])
			var cont = true
			verr := item.Value(func(val []byte) error {
				e, derr := core.DecodeEntity(ns, val)
				if derr != nil {
					return derr
				}
				cont = fn(key, &e)
				return nil
			})
			if verr != nil {
				return verr
			}
			if !cont {
				return nil
			}
		}
		return nil
	})
}

// ReadCursor returns the stored cursor, if any.
func (s *Store) ReadCursor() (core.ChainPoint, bool, error) {
	var point core.ChainPoint
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cursorKey)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return corerr.Storage("state cursor read: " + err.Error())
		}
		return item.Value(func(val []byte) error {
			p, ok := core.ParseChainPoint(val)
			if !ok {
				return corerr.Decoding(0, "stored cursor malformed")
			}
			point, found = p, true
			return nil
		})
	})
	return point, found, err
}

// Writer is an exclusive writer transaction implementing the Apply/Undo
// discipline: read current entity, fold the delta, write back the result
// (or delete on nil).
type Writer struct {
	store *Store
	txn   *badger.Txn
}

// BeginWriter acquires the exclusive writer transaction.
func (s *Store) BeginWriter() *Writer {
	return &Writer{store: s, txn: s.db.NewTransaction(true)}
}

func (w *Writer) readRaw(ns core.Namespace, key core.EntityKey) (*core.Entity, error) {
	item, err := w.txn.Get(entityKey(ns, key))
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, corerr.Storage("state writer read: " + err.Error())
	}
	var e core.Entity
	var derr error
	verr := item.Value(func(val []byte) error {
		e, derr = core.DecodeEntity(ns, val)
		return nil
	})
	if verr != nil {
		return nil, corerr.Storage("state writer read: " + verr.Error())
	}
	if derr != nil {
		return nil, derr
	}
	return &e, nil
}

func (w *Writer) writeRaw(ns core.Namespace, key core.EntityKey, e *core.Entity) error {
	k := entityKey(ns, key)
	if e == nil {
		if err := w.txn.Delete(k); err != nil && err != badger.ErrKeyNotFound {
			return corerr.Storage("state writer delete: " + err.Error())
		}
		return nil
	}
	_, body, err := core.EncodeEntity(*e)
	if err != nil {
		return err
	}
	if err := w.txn.Set(k, body); err != nil {
		return corerr.Storage("state writer set: " + err.Error())
	}
	return nil
}

// ApplyDelta reads the current entity at d.Key(), folds d forward, and
// writes the result back.
func (w *Writer) ApplyDelta(d core.Delta) error {
	nsKey := d.Key()
	if !validNamespace[nsKey.Ns] {
		return corerr.Namespace(string(nsKey.Ns))
	}
	existing, err := w.readRaw(nsKey.Ns, nsKey.Key)
	if err != nil {
		return err
	}
	next, err := d.Apply(existing)
	if err != nil {
		return err
	}
	return w.writeRaw(nsKey.Ns, nsKey.Key, next)
}

// UndoDelta reads the current entity at d.Key(), folds d backward, and
// writes the result back. Deltas must be undone in strict reverse
// application order.
func (w *Writer) UndoDelta(d core.Delta) error {
	nsKey := d.Key()
	if !validNamespace[nsKey.Ns] {
		return corerr.Namespace(string(nsKey.Ns))
	}
	existing, err := w.readRaw(nsKey.Ns, nsKey.Key)
	if err != nil {
		return err
	}
	prev, err := d.Undo(existing)
	if err != nil {
		return err
	}
	return w.writeRaw(nsKey.Ns, nsKey.Key, prev)
}

// WriteCursor stamps the authoritative cursor for this transaction.
func (w *Writer) WriteCursor(point core.ChainPoint) error {
	if err := w.txn.Set(cursorKey, point.Bytes()); err != nil {
		return corerr.Storage("state writer cursor: " + err.Error())
	}
	return nil
}

// Commit finalizes the transaction, all-or-nothing.
func (w *Writer) Commit() error {
	if err := w.txn.Commit(); err != nil {
		return corerr.Storage("state writer commit: " + err.Error())
	}
	return nil
}

// Discard aborts the transaction, rolling back any staged writes.
func (w *Writer) Discard() { w.txn.Discard() }

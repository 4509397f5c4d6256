// Package archive is the immutable finalized-block store: block bodies by
// slot, plus the secondary tag indexes (address, payment credential, stake
// credential, asset, account cert, metadata label, datum hash, spent txo)
// used for archival lookups, and the direct tx/block-hash/block-number
// lookups used to answer point queries without a full scan.
package archive

import (
	"encoding/binary"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"ledgercore/core"
	"ledgercore/corerr"
)

// Tag names the secondary tag-slot tables. Each is an existence set: rows
// carry no value, only (tag bytes, slot) as key.
type Tag string

const (
	TagAddress     Tag = "addr"
	TagPayment     Tag = "pay"
	TagStake       Tag = "stk"
	TagAsset       Tag = "ast"
	TagAccountCert Tag = "cert"
	TagMetadata    Tag = "meta"
	TagDatum       Tag = "dat"
	TagSpentTxo    Tag = "spent"
)

var blockPrefix = []byte("b/")
var txHashPrefix = []byte("tx/")
var blockHashPrefix = []byte("bh/")
var blockNumPrefix = []byte("bn/")

func slotKey(prefix []byte, slot core.Slot) []byte {
	k := make([]byte, 0, len(prefix)+8)
	k = append(k, prefix...)
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(slot))
	return append(k, b[:]...)
}

func tagKey(tag Tag, tagBytes []byte, slot core.Slot) []byte {
	k := make([]byte, 0, len(tag)+1+len(tagBytes)+1+8)
	k = append(k, tag...)
	k = append(k, 0x00)
	k = append(k, tagBytes...)
	k = append(k, 0x00)
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(slot))
	return append(k, b[:]...)
}

func tagScanPrefix(tag Tag, tagBytes []byte) []byte {
	k := make([]byte, 0, len(tag)+1+len(tagBytes)+1)
	k = append(k, tag...)
	k = append(k, 0x00)
	k = append(k, tagBytes...)
	k = append(k, 0x00)
	return k
}

// Store is the badger-backed archive.
type Store struct {
	db  *badger.DB
	log *logrus.Logger
}

// Open opens (or creates) the archive rooted at dir.
func Open(dir string, log *logrus.Logger) (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, corerr.Storage("archive open: " + err.Error())
	}
	return &Store{db: db, log: log}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// TagRow is one tag-index write: tag table, tag key bytes, and the slot.
type TagRow struct {
	Tag Tag
	Key []byte
}

// Commit writes a block body and its tag rows, plus direct lookups, all in
// one writer transaction.
func (s *Store) Commit(slot core.Slot, blockHash core.BlockHash, blockNumber uint64, body []byte, txHashes []core.TxHash, rows []TagRow) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(slotKey(blockPrefix, slot), body); err != nil {
			return corerr.Storage("archive block set: " + err.Error())
		}
		var slotBytes [8]byte
		binary.BigEndian.PutUint64(slotBytes[:], uint64(slot))
		if err := txn.Set(append(append([]byte(nil), blockHashPrefix...), blockHash[:]...), slotBytes[:]); err != nil {
			return corerr.Storage("archive block-hash set: " + err.Error())
		}
		var numBytes [8]byte
		binary.BigEndian.PutUint64(numBytes[:], blockNumber)
		if err := txn.Set(append(append([]byte(nil), blockNumPrefix...), numBytes[:]...), slotBytes[:]); err != nil {
			return corerr.Storage("archive block-num set: " + err.Error())
		}
		for _, h := range txHashes {
			if err := txn.Set(append(append([]byte(nil), txHashPrefix...), h[:]...), slotBytes[:]); err != nil {
				return corerr.Storage("archive tx-hash set: " + err.Error())
			}
		}
		for _, row := range rows {
			if err := txn.Set(tagKey(row.Tag, row.Key, slot), nil); err != nil {
				return corerr.Storage("archive tag set: " + err.Error())
			}
		}
		return nil
	})
}

// GetRange yields (slot, body) pairs with from <= slot <= to in ascending
// order. Either bound may be nil for an open end.
func (s *Store) GetRange(from, to *core.Slot, fn func(core.Slot, []byte) bool) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = blockPrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		start := append([]byte(nil), blockPrefix...)
		if from != nil {
			start = slotKey(blockPrefix, *from)
		}
		for it.Seek(start); it.ValidForPrefix(blockPrefix); it.Next() {
			item := it.Item()
			key := item.Key()
			slot := core.Slot(binary.BigEndian.Uint64(key[len(blockPrefix):]))
			if to != nil && slot > *to {
				return nil
			}
			var cont = true
			verr := item.Value(func(val []byte) error {
				cont = fn(slot, val)
				return nil
			})
			if verr != nil {
				return corerr.Storage("archive range read: " + verr.Error())
			}
			if !cont {
				return nil
			}
		}
		return nil
	})
}

// IterPossibleBlocksWithTag returns a sparse iterator over slots tagged
// under (tag, key) within [fromSlot, toSlot]; body lookup per slot is
// lazy and may report the slot pruned.
func (s *Store) IterPossibleBlocksWithTag(tag Tag, key []byte, fromSlot, toSlot core.Slot, fn func(slot core.Slot, body []byte, pruned bool) bool) error {
	prefix := tagScanPrefix(tag, key)
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			k := it.Item().Key()
			slot := core.Slot(binary.BigEndian.Uint64(k[len(prefix):]))
			if slot < fromSlot {
				continue
			}
			if slot > toSlot {
				return nil
			}
			item, err := txn.Get(slotKey(blockPrefix, slot))
			if err == badger.ErrKeyNotFound {
				if !fn(slot, nil, true) {
					return nil
				}
				continue
			}
			if err != nil {
				return corerr.Storage("archive sparse read: " + err.Error())
			}
			var cont = true
			verr := item.Value(func(val []byte) error {
				cont = fn(slot, val, false)
				return nil
			})
			if verr != nil {
				return corerr.Storage("archive sparse read: " + verr.Error())
			}
			if !cont {
				return nil
			}
		}
		return nil
	})
}

// FindIntersect mirrors the WAL operation, for follower bootstrap against
// already-promoted history.
func (s *Store) FindIntersect(points []core.ChainPoint) (core.ChainPoint, bool, error) {
	for _, p := range points {
		if p.Kind == core.PointOrigin {
			return p, true, nil
		}
		var found bool
		err := s.db.View(func(txn *badger.Txn) error {
			_, err := txn.Get(slotKey(blockPrefix, p.Slot))
			if err == badger.ErrKeyNotFound {
				return nil
			}
			if err != nil {
				return corerr.Storage("archive intersect read: " + err.Error())
			}
			found = true
			return nil
		})
		if err != nil {
			return core.ChainPoint{}, false, err
		}
		if found {
			return p, true, nil
		}
	}
	return core.ChainPoint{}, false, nil
}

// PruneHistory removes block bodies older than the newest maxSlots slots,
// bounded to maxPrune deletions per call. Their tag rows are left in place
// (IterPossibleBlocksWithTag reports such a slot as pruned) and are not
// deleted by any later call. Returns done=true once under threshold.
func (s *Store) PruneHistory(maxSlots int64, maxPrune int) (done bool, err error) {
	var oldest, newest core.Slot
	haveAny := false
	scanErr := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = blockPrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		it.Seek(blockPrefix)
		if it.ValidForPrefix(blockPrefix) {
			oldest = core.Slot(binary.BigEndian.Uint64(it.Item().Key()[len(blockPrefix):]))
			haveAny = true
		}
		ropts := badger.DefaultIteratorOptions
		ropts.Reverse = true
		ropts.Prefix = blockPrefix
		rit := txn.NewIterator(ropts)
		defer rit.Close()
		seekKey := append(append([]byte(nil), blockPrefix...), 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff)
		rit.Seek(seekKey)
		if rit.ValidForPrefix(blockPrefix) {
			newest = core.Slot(binary.BigEndian.Uint64(rit.Item().Key()[len(blockPrefix):]))
		}
		return nil
	})
	if scanErr != nil {
		return false, corerr.Storage("archive prune scan: " + scanErr.Error())
	}
	if !haveAny || int64(newest-oldest) <= maxSlots {
		return true, nil
	}
	cutoff := newest - core.Slot(maxSlots)
	var toDelete [][]byte
	scanErr = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = blockPrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(blockPrefix); it.ValidForPrefix(blockPrefix) && len(toDelete) < maxPrune; it.Next() {
			key := it.Item().Key()
			slot := core.Slot(binary.BigEndian.Uint64(key[len(blockPrefix):]))
			if slot >= cutoff {
				break
			}
			toDelete = append(toDelete, append([]byte(nil), key...))
		}
		return nil
	})
	if scanErr != nil {
		return false, corerr.Storage("archive prune scan: " + scanErr.Error())
	}
	if len(toDelete) == 0 {
		return true, nil
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		for _, k := range toDelete {
			if err := txn.Delete(k); err != nil {
				return corerr.Storage("archive prune delete: " + err.Error())
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return len(toDelete) < maxPrune, nil
}

// TruncateFront removes slots strictly greater than point.Slot across the
// Blocks table in one transaction — used when a rollback crosses the
// stability window and previously-archived slots must be un-finalized.
func (s *Store) TruncateFront(point core.ChainPoint) error {
	var toDelete [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = blockPrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		seekKey := append(append([]byte(nil), blockPrefix...), 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff)
		for it.Seek(seekKey); it.ValidForPrefix(blockPrefix); it.Next() {
			key := it.Item().Key()
			slot := core.Slot(binary.BigEndian.Uint64(key[len(blockPrefix):]))
			if slot <= point.Slot {
				break
			}
			toDelete = append(toDelete, append([]byte(nil), key...))
		}
		return nil
	})
	if err != nil {
		return corerr.Storage("archive truncate scan: " + err.Error())
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for _, k := range toDelete {
			if err := txn.Delete(k); err != nil {
				return corerr.Storage("archive truncate delete: " + err.Error())
			}
		}
		return nil
	})
}

// Package wal is the durable, ordered, rollback-capable event log backing
// the indexer core. Every committed block is appended here as an Apply
// entry before it reaches the State Store; Undo entries let a rollback
// replay deltas in reverse, and Mark entries signal finality without a
// block attached.
package wal

import (
	"encoding/binary"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"ledgercore/core"
	"ledgercore/corerr"
)

// EntryKind tags the three WAL record variants.
type EntryKind uint8

const (
	KindApply EntryKind = iota
	KindUndo
	KindMark
)

// Entry is one WAL record: a monotonic sequence number, its kind, the
// chain point it concerns, and (for Apply/Undo) the block body needed for
// visitor replay.
type Entry struct {
	Seq   core.LogSeq
	Kind  EntryKind
	Point core.ChainPoint
	Body  []byte
}

var seqKeyPrefix = []byte("s/")

func seqKey(seq core.LogSeq) []byte {
	b := make([]byte, len(seqKeyPrefix)+8)
	copy(b, seqKeyPrefix)
	binary.BigEndian.PutUint64(b[len(seqKeyPrefix):], uint64(seq))
	return b
}

func encodeEntry(e Entry) []byte {
	pointBytes := e.Point.Bytes()
	b := make([]byte, 0, 1+len(pointBytes)+len(e.Body))
	b = append(b, byte(e.Kind))
	b = append(b, pointBytes...)
	b = append(b, e.Body...)
	return b
}

func decodeEntry(seq core.LogSeq, raw []byte) (Entry, error) {
	if len(raw) < 1+41 {
		return Entry{}, corerr.Decoding(0, "wal entry too short")
	}
	kind := EntryKind(raw[0])
	point, ok := core.ParseChainPoint(raw[1:42])
	if !ok {
		return Entry{}, corerr.Decoding(0, "wal entry point malformed")
	}
	body := append([]byte(nil), raw[42:]...)
	return Entry{Seq: seq, Kind: kind, Point: point, Body: body}, nil
}

// Store is the badger-backed WAL. One writer at a time (enforced by mu);
// arbitrarily many concurrent readers via badger's MVCC snapshots.
type Store struct {
	db  *badger.DB
	log *logrus.Logger

	mu     sync.Mutex
	nextSeq core.LogSeq

	tipMu  sync.Mutex
	tipCh  chan struct{}
}

// RepairReport is invoked once per entry truncated during corrupted-tail
// repair, in the order entries are removed, so a caller can surface repair
// progress rather than have it happen silently.
type RepairReport func(seq core.LogSeq)

// Open opens (or creates) a WAL store rooted at dir. A crash mid-write can
// leave the very last entry malformed; Open detects this and truncates back
// to the last entry that decodes cleanly before computing nextSeq. report,
// if given, is invoked once per truncated entry.
func Open(dir string, log *logrus.Logger, report ...RepairReport) (*Store, error) {
	var rep RepairReport
	if len(report) > 0 {
		rep = report[0]
	}
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, corerr.Storage("wal open: " + err.Error())
	}
	s := &Store{db: db, log: log, tipCh: make(chan struct{})}
	if err := s.repairCorruptedTail(rep); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.loadNextSeq(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// repairCorruptedTail scans the log in sequence order for the first entry
// that fails to decode and removes it along with every entry after it.
// Corruption can only reach the tail: each append call writes its entries
// in one badger transaction, so an unclean shutdown can leave at most the
// last transaction's records unreadable, never an earlier one.
func (s *Store) repairCorruptedTail(report RepairReport) error {
	var toDelete [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = seqKeyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		corrupted := false
		for it.Seek(seqKeyPrefix); it.ValidForPrefix(seqKeyPrefix); it.Next() {
			item := it.Item()
			key := append([]byte(nil), item.Key()...)
			if corrupted {
				toDelete = append(toDelete, key)
				continue
			}
			sq := core.LogSeq(binary.BigEndian.Uint64(key[len(seqKeyPrefix):]))
			var decErr error
			verr := item.Value(func(val []byte) error {
				_, decErr = decodeEntry(sq, val)
				return nil
			})
			if verr != nil {
				return corerr.Storage("wal repair scan: " + verr.Error())
			}
			if decErr != nil {
				corrupted = true
				toDelete = append(toDelete, key)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(toDelete) == 0 {
		return nil
	}
	if s.log != nil {
		s.log.WithField("truncated", len(toDelete)).Warn("wal: corrupted tail detected, truncating to last valid entry")
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for _, key := range toDelete {
			if err := txn.Delete(key); err != nil {
				return corerr.Storage("wal repair delete: " + err.Error())
			}
			if report != nil {
				report(core.LogSeq(binary.BigEndian.Uint64(key[len(seqKeyPrefix):])))
			}
		}
		return nil
	})
}

func (s *Store) loadNextSeq() error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = seqKeyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		seekKey := append(append([]byte(nil), seqKeyPrefix...), 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff)
		it.Seek(seekKey)
		if it.ValidForPrefix(seqKeyPrefix) {
			key := it.Item().Key()
			seq := binary.BigEndian.Uint64(key[len(seqKeyPrefix):])
			s.nextSeq = core.LogSeq(seq) + 1
		}
		return nil
	})
}

// Close releases the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) appendLocked(txn *badger.Txn, kind EntryKind, point core.ChainPoint, body []byte) (core.LogSeq, error) {
	seq := s.nextSeq
	entry := Entry{Seq: seq, Kind: kind, Point: point, Body: body}
	if err := txn.Set(seqKey(seq), encodeEntry(entry)); err != nil {
		return 0, corerr.Storage("wal set: " + err.Error())
	}
	s.nextSeq++
	return seq, nil
}

// AppendForward appends one Apply entry per (point, body) pair under a
// fresh sequence each, as a single writer transaction.
func (s *Store) AppendForward(points []core.ChainPoint, bodies [][]byte) error {
	if len(points) != len(bodies) {
		return corerr.Invariant("wal", "points/bodies length mismatch")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.db.Update(func(txn *badger.Txn) error {
		for i := range points {
			if _, err := s.appendLocked(txn, KindApply, points[i], bodies[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.notifyTip()
	return nil
}

// AppendUndo appends Undo entries carrying the bodies being undone, so a
// downstream follower or a crash-recovery replay can re-run the same
// visitor logic in reverse.
func (s *Store) AppendUndo(points []core.ChainPoint, bodies [][]byte) error {
	if len(points) != len(bodies) {
		return corerr.Invariant("wal", "points/bodies length mismatch")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.db.Update(func(txn *badger.Txn) error {
		for i := range points {
			if _, err := s.appendLocked(txn, KindUndo, points[i], bodies[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.notifyTip()
	return nil
}

// AppendMark writes a Mark entry: all slots <= point are finalized.
func (s *Store) AppendMark(point core.ChainPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := s.appendLocked(txn, KindMark, point, nil)
		return err
	})
	if err != nil {
		return err
	}
	s.notifyTip()
	return nil
}

func (s *Store) notifyTip() {
	s.tipMu.Lock()
	close(s.tipCh)
	s.tipCh = make(chan struct{})
	s.tipMu.Unlock()
}

// TipChange returns a channel that closes the next time the tip advances.
func (s *Store) TipChange() <-chan struct{} {
	s.tipMu.Lock()
	defer s.tipMu.Unlock()
	return s.tipCh
}

// CrawlFrom iterates entries forward starting at seq (inclusive), or from
// the very start if seq is nil, calling fn for each. Iteration stops early
// if fn returns false.
func (s *Store) CrawlFrom(seq *core.LogSeq, fn func(Entry) bool) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = seqKeyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		start := append([]byte(nil), seqKeyPrefix...)
		if seq != nil {
			start = seqKey(*seq)
		}
		for it.Seek(start); it.ValidForPrefix(seqKeyPrefix); it.Next() {
			item := it.Item()
			key := item.Key()
			sq := core.LogSeq(binary.BigEndian.Uint64(key[len(seqKeyPrefix):]))
			var entry Entry
			var decErr error
			verr := item.Value(func(val []byte) error {
				entry, decErr = decodeEntry(sq, val)
				return nil
			})
			if verr != nil {
				return corerr.Storage("wal read: " + verr.Error())
			}
			if decErr != nil {
				return decErr
			}
			if !fn(entry) {
				return nil
			}
		}
		return nil
	})
}

// FindTip returns the most recent entry's point, if any.
func (s *Store) FindTip() (core.ChainPoint, bool, error) {
	var tip core.ChainPoint
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = seqKeyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		seekKey := append(append([]byte(nil), seqKeyPrefix...), 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff)
		it.Seek(seekKey)
		if !it.ValidForPrefix(seqKeyPrefix) {
			return nil
		}
		item := it.Item()
		key := item.Key()
		sq := core.LogSeq(binary.BigEndian.Uint64(key[len(seqKeyPrefix):]))
		return item.Value(func(val []byte) error {
			entry, err := decodeEntry(sq, val)
			if err != nil {
				return err
			}
			tip = entry.Point
			found = true
			return nil
		})
	})
	return tip, found, err
}

// FindStart returns the earliest entry's point, if any.
func (s *Store) FindStart() (core.ChainPoint, bool, error) {
	var start core.ChainPoint
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = seqKeyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		it.Seek(seqKeyPrefix)
		if !it.ValidForPrefix(seqKeyPrefix) {
			return nil
		}
		item := it.Item()
		key := item.Key()
		sq := core.LogSeq(binary.BigEndian.Uint64(key[len(seqKeyPrefix):]))
		return item.Value(func(val []byte) error {
			entry, err := decodeEntry(sq, val)
			if err != nil {
				return err
			}
			start = entry.Point
			found = true
			return nil
		})
	})
	return start, found, err
}

// FindIntersect returns the first of points that is present in the log, in
// the order given by the caller (most-recent-first is the conventional
// caller ordering for bootstrap negotiation).
func (s *Store) FindIntersect(points []core.ChainPoint) (core.ChainPoint, bool, error) {
	present := make(map[core.ChainPoint]bool, 64)
	err := s.CrawlFrom(nil, func(e Entry) bool {
		present[e.Point] = true
		return true
	})
	if err != nil {
		return core.ChainPoint{}, false, err
	}
	for _, p := range points {
		if present[p] {
			return p, true, nil
		}
	}
	return core.ChainPoint{}, false, nil
}

// RemoveBefore deletes entries whose point's slot is strictly less than
// slot, compacting history already promoted to the Archive Store.
func (s *Store) RemoveBefore(slot core.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var toDelete [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = seqKeyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(seqKeyPrefix); it.ValidForPrefix(seqKeyPrefix); it.Next() {
			item := it.Item()
			key := append([]byte(nil), item.Key()...)
			verr := item.Value(func(val []byte) error {
				if len(val) < 42 {
					return nil
				}
				point, ok := core.ParseChainPoint(val[1:42])
				if ok && point.Slot < slot {
					toDelete = append(toDelete, key)
				}
				return nil
			})
			if verr != nil {
				return verr
			}
		}
		return nil
	})
	if err != nil {
		return corerr.Storage("wal scan for prune: " + err.Error())
	}
	if len(toDelete) == 0 {
		return nil
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for _, k := range toDelete {
			if err := txn.Delete(k); err != nil {
				return corerr.Storage("wal delete: " + err.Error())
			}
		}
		return nil
	})
}

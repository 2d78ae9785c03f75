package primary

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/dgraph-io/badger/v4"

	"github.com/khaller93/es-middleware-sub003/errors"
	"github.com/khaller93/es-middleware-sub003/event"
	"github.com/khaller93/es-middleware-sub003/pkg/badgerdb"
	"github.com/khaller93/es-middleware-sub003/rdf"
	"github.com/khaller93/es-middleware-sub003/status"
)

// Key layout:
//
//	t/<subject> <predicate> <object>   one key per triple, empty value
//	log/<correlation id, 16 hex>       JSON encoded Delta
var (
	triplePrefix = []byte("t/")
	logPrefix    = []byte("log/")
)

func tripleKey(t rdf.Triple) []byte {
	return append(append([]byte{}, triplePrefix...), t.Key()...)
}

func logKey(id uint64) []byte {
	return fmt.Appendf(append([]byte{}, logPrefix...), "%016x", id)
}

// BadgerStore is a persistent triple store on BadgerDB. A write and its
// change log entry commit in one badger transaction.
type BadgerStore struct {
	lifecycle

	db     *badgerdb.DB
	ownsDB bool
}

var (
	_ Store        = (*BadgerStore)(nil)
	_ Writer       = (*BadgerStore)(nil)
	_ Acknowledger = (*BadgerStore)(nil)
)

// OpenBadgerStore opens the database described by cfg. The store closes it
// on Close.
func OpenBadgerStore(cfg badgerdb.Config, tracker *status.Tracker, ids *event.CorrelationSource,
	opts ...Option) (*BadgerStore, error) {
	db, err := badgerdb.Open(cfg)
	if err != nil {
		return nil, err
	}
	s := NewBadgerStore(db, tracker, ids, opts...)
	s.ownsDB = true
	return s, nil
}

// NewBadgerStore returns a store over an open database.
func NewBadgerStore(db *badgerdb.DB, tracker *status.Tracker, ids *event.CorrelationSource,
	opts ...Option) *BadgerStore {
	o := applyOptions(opts)
	return &BadgerStore{
		lifecycle: lifecycle{
			tracker: tracker,
			ids:     ids,
			logger:  o.logger.With("component", "primary", "backend", "badger"),
		},
		db: db,
	}
}

// Boot moves the primary DAO through BOOTING to READY. Seed triples are
// added to whatever the database already holds. Change log entries of a
// previous process are dropped, as correlation ids restart with it.
func (s *BadgerStore) Boot(ctx context.Context, seed io.Reader) error {
	if err := s.db.DropPrefix(logPrefix); err != nil {
		return errors.WrapTransient(err, "BadgerStore", "Boot", "drop stale change log")
	}
	return s.boot(ctx, "BadgerStore", seed, func(triples []rdf.Triple) error {
		wb := s.db.NewWriteBatch()
		for _, t := range triples {
			if err := wb.Set(tripleKey(t), nil); err != nil {
				wb.Cancel()
				return err
			}
		}
		return wb.Flush()
	})
}

// Apply removes and adds triples as one write.
func (s *BadgerStore) Apply(ctx context.Context, added, removed []rdf.Triple) (Delta, error) {
	return s.write(ctx, "BadgerStore", added, removed, s.contains, s.commit)
}

func (s *BadgerStore) contains(t rdf.Triple) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(tripleKey(t))
		return err
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *BadgerStore) commit(d Delta) error {
	entry, err := json.Marshal(d)
	if err != nil {
		return errors.WrapInvalid(err, "BadgerStore", "commit", "encode change log entry")
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		for _, t := range d.Removed {
			if err := txn.Delete(tripleKey(t)); err != nil {
				return err
			}
		}
		for _, t := range d.Added {
			if err := txn.Set(tripleKey(t), nil); err != nil {
				return err
			}
		}
		return txn.Set(logKey(d.CorrelationID), entry)
	})
	if err != nil {
		return errors.WrapTransient(err, "BadgerStore", "commit", "write delta")
	}
	return nil
}

// Insert adds triples.
func (s *BadgerStore) Insert(ctx context.Context, triples ...rdf.Triple) (Delta, error) {
	return s.Apply(ctx, triples, nil)
}

// Remove deletes triples.
func (s *BadgerStore) Remove(ctx context.Context, triples ...rdf.Triple) (Delta, error) {
	return s.Apply(ctx, nil, triples)
}

// StreamAllTriples iterates a consistent read snapshot of the store.
func (s *BadgerStore) StreamAllTriples(ctx context.Context, fn func(rdf.Triple) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: triplePrefix})
		defer it.Close()
		for it.Seek(triplePrefix); it.ValidForPrefix(triplePrefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			key := it.Item().Key()
			t, err := rdf.ParseTriple(string(key[len(triplePrefix):]) + " .")
			if err != nil {
				return errors.WrapFatal(err, "BadgerStore", "StreamAllTriples", "decode stored triple")
			}
			if err := fn(t); err != nil {
				return err
			}
		}
		return nil
	})
}

// ChangedTriples returns the delta recorded for correlationID.
func (s *BadgerStore) ChangedTriples(_ context.Context, correlationID uint64) (Delta, error) {
	var d Delta
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(logKey(correlationID))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, &d)
		})
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return Delta{}, errors.WrapInvalid(ErrUnknownChange, "BadgerStore", "ChangedTriples",
			fmt.Sprintf("look up %d", correlationID))
	}
	if err != nil {
		return Delta{}, errors.WrapTransient(err, "BadgerStore", "ChangedTriples", "read change log")
	}
	return d, nil
}

// Acknowledge drops the change log entry for correlationID.
func (s *BadgerStore) Acknowledge(_ context.Context, correlationID uint64) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(logKey(correlationID))
	})
	if err != nil {
		return errors.WrapTransient(err, "BadgerStore", "Acknowledge", "delete change log entry")
	}
	return nil
}

// Len returns the number of stored triples.
func (s *BadgerStore) Len() int {
	n := 0
	_ = s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: triplePrefix})
		defer it.Close()
		for it.Seek(triplePrefix); it.ValidForPrefix(triplePrefix); it.Next() {
			n++
		}
		return nil
	})
	return n
}

// Export writes every triple as N-Triples.
func (s *BadgerStore) Export(ctx context.Context, w io.Writer) error {
	return export(ctx, s, w)
}

// Close closes the database if the store opened it.
func (s *BadgerStore) Close() error {
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"

	"github.com/CurryTPH/all-sports-api/internal/domain/model"
	"github.com/CurryTPH/all-sports-api/pkg/metrics"
)

// Key layout:
//
//	rec/<collection>/<seq>  -> JSON document (seq is zero padded, so keys sort in insertion order)
//	idx/<collection>/<id>   -> rec key of the document with that id
//	seq/<collection>        -> badger sequence
const (
	recPrefix = "rec/"
	idxPrefix = "idx/"
	seqPrefix = "seq/"

	defaultBandwidth = 128
	maxTxnRetries    = 5
)

// BadgerStore persists collections in an embedded badger database.
type BadgerStore struct {
	db        *badger.DB
	bandwidth uint64

	mu     sync.Mutex
	seqs   map[string]*badger.Sequence
	closed bool
}

// OpenBadgerStore opens (or creates) a badger database at path.
func OpenBadgerStore(path string, opts ...BadgerOption) (*BadgerStore, error) {
	cfg := badgerConfig{bandwidth: defaultBandwidth}
	for _, opt := range opts {
		opt(&cfg)
	}

	bopts := badger.DefaultOptions(path)
	if cfg.inMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	bopts.Logger = nil

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", path, err)
	}
	return &BadgerStore{
		db:        db,
		bandwidth: cfg.bandwidth,
		seqs:      make(map[string]*badger.Sequence),
	}, nil
}

// Find implements Store. Filtering and sorting run over the decoded
// collection with the same semantics as MemoryStore.
func (s *BadgerStore) Find(ctx context.Context, name string, f Filter, srt Sort, limit int) ([]model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.isClosed() {
		return nil, ErrClosed
	}
	start := time.Now()

	var all []model.Record
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(recPrefix + name + "/")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var rec model.Record
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			all = append(all, rec)
		}
		return nil
	})
	if err != nil {
		return nil, s.wrap(err)
	}

	out := Apply(all, f, srt, limit)
	metrics.RecordStoreLatency("find", name, float64(time.Since(start).Microseconds())/1000)
	return out, nil
}

// Insert implements Store. A record whose id already exists replaces the
// stored document in place and keeps its position.
func (s *BadgerStore) Insert(ctx context.Context, name string, rec model.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.isClosed() {
		return ErrClosed
	}
	rec, err := prepare(rec)
	if err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}

	idxKey := []byte(idxPrefix + name + "/" + rec.ID())
	for attempt := 0; ; attempt++ {
		err = s.db.Update(func(txn *badger.Txn) error {
			var recKey []byte
			item, err := txn.Get(idxKey)
			switch {
			case errors.Is(err, badger.ErrKeyNotFound):
				seq, err := s.next(name)
				if err != nil {
					return err
				}
				recKey = []byte(fmt.Sprintf("%s%s/%020d", recPrefix, name, seq))
				if err := txn.SetEntry(badger.NewEntry(idxKey, recKey)); err != nil {
					return err
				}
			case err != nil:
				return err
			default:
				if recKey, err = item.ValueCopy(nil); err != nil {
					return err
				}
			}
			return txn.SetEntry(badger.NewEntry(recKey, data))
		})
		if !errors.Is(err, badger.ErrConflict) || attempt >= maxTxnRetries {
			break
		}
	}
	if err != nil {
		return s.wrap(err)
	}

	if n, err := s.Count(ctx, name); err == nil {
		metrics.UpdateStoreRecords(name, n)
	}
	return nil
}

// Count implements Store.
func (s *BadgerStore) Count(ctx context.Context, name string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s.isClosed() {
		return 0, ErrClosed
	}
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(recPrefix + name + "/")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, s.wrap(err)
	}
	return n, nil
}

// Close releases sequences and closes the database.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	var errs []error
	for _, seq := range s.seqs {
		errs = append(errs, seq.Release())
	}
	errs = append(errs, s.db.Close())
	return errors.Join(errs...)
}

func (s *BadgerStore) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// next returns the next insertion sequence number for a collection.
func (s *BadgerStore) next(name string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	seq, ok := s.seqs[name]
	if !ok {
		var err error
		seq, err = s.db.GetSequence([]byte(seqPrefix+name), s.bandwidth)
		if err != nil {
			return 0, err
		}
		s.seqs[name] = seq
	}
	return seq.Next()
}

func (s *BadgerStore) wrap(err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, badger.ErrDBClosed), errors.Is(err, ErrClosed):
		return fmt.Errorf("%w: %w", ErrClosed, err)
	default:
		return fmt.Errorf("badger: %w", err)
	}
}

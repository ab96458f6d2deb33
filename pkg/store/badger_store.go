package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/fabricsync/fabricsync/pkg/log"
)

// Validate that BadgerStore implements the Store interface
var _ Store = &BadgerStore{}

// BadgerStore implements the Store interface using BadgerDB.
type BadgerStore struct {
	db     *badger.DB
	path   string
	logger log.Logger
}

// NewBadgerStore creates a new BadgerDB-backed store.
func NewBadgerStore(logger log.Logger) *BadgerStore {
	if logger == nil {
		logger = log.GetDefaultLogger().WithComponent("store")
	} else {
		logger = logger.WithComponent("store")
	}
	return &BadgerStore{logger: logger}
}

// Open opens the BadgerDB database.
func (s *BadgerStore) Open(path string) error {
	s.path = path

	opts := badger.DefaultOptions(path)
	opts.Logger = &badgerLogAdapter{logger: s.logger}

	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("failed to open badger db: %w", err)
	}
	s.db = db

	s.logger.Debug("State store opened", log.Str("path", path))
	return nil
}

// Close closes the BadgerDB database.
func (s *BadgerStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func makeKey(bucket, key string) []byte {
	return []byte(bucket + "/" + key)
}

// Put stores a record under bucket/key.
func (s *BadgerStore) Put(bucket, key string, value interface{}) error {
	return s.put(bucket, key, value, 0)
}

// PutWithTTL stores a record that BadgerDB expires after ttl.
func (s *BadgerStore) PutWithTTL(bucket, key string, value interface{}, ttl time.Duration) error {
	return s.put(bucket, key, value, ttl)
}

func (s *BadgerStore) put(bucket, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to serialize record: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(makeKey(bucket, key), data)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
}

// Get retrieves the record under bucket/key into out.
func (s *BadgerStore) Get(bucket, key string, out interface{}) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(makeKey(bucket, key))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
}

// Delete removes the record under bucket/key.
func (s *BadgerStore) Delete(bucket, key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(makeKey(bucket, key))
	})
}

// List returns the raw values of every record in a bucket, key-ordered.
func (s *BadgerStore) List(bucket string) ([][]byte, error) {
	var values [][]byte
	prefix := []byte(bucket + "/")

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				cp := make([]byte, len(val))
				copy(cp, val)
				values = append(values, cp)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return values, nil
}

// badgerLogAdapter routes BadgerDB's internal logging through our logger.
type badgerLogAdapter struct {
	logger log.Logger
}

func (a *badgerLogAdapter) Errorf(format string, args ...interface{}) {
	a.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (a *badgerLogAdapter) Warningf(format string, args ...interface{}) {
	a.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (a *badgerLogAdapter) Infof(format string, args ...interface{}) {
	a.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (a *badgerLogAdapter) Debugf(format string, args ...interface{}) {
	a.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

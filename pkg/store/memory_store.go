package store

import (
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// Validate that MemoryStore implements the Store interface
var _ Store = &MemoryStore{}

type memoryRecord struct {
	data      []byte
	expiresAt time.Time
}

func (r memoryRecord) expired(now time.Time) bool {
	return !r.expiresAt.IsZero() && now.After(r.expiresAt)
}

// MemoryStore is an in-memory Store implementation for tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]memoryRecord

	// now is replaceable in tests to exercise TTL expiry.
	now func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]memoryRecord),
		now:     time.Now,
	}
}

// SetClock replaces the store's clock, for TTL tests.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) Open(path string) error { return nil }
func (s *MemoryStore) Close() error           { return nil }

func (s *MemoryStore) Put(bucket, key string, value interface{}) error {
	return s.PutWithTTL(bucket, key, value, 0)
}

func (s *MemoryStore) PutWithTTL(bucket, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record := memoryRecord{data: data}
	if ttl > 0 {
		record.expiresAt = s.now().Add(ttl)
	}
	s.records[string(makeKey(bucket, key))] = record
	return nil
}

func (s *MemoryStore) Get(bucket, key string, out interface{}) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[string(makeKey(bucket, key))]
	if !ok || record.expired(s.now()) {
		return ErrNotFound
	}
	return json.Unmarshal(record.data, out)
}

func (s *MemoryStore) Delete(bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, string(makeKey(bucket, key)))
	return nil
}

func (s *MemoryStore) List(bucket string) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := bucket + "/"
	keys := make([]string, 0)
	for key, record := range s.records {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix && !record.expired(s.now()) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	values := make([][]byte, 0, len(keys))
	for _, key := range keys {
		values = append(values, s.records[key].data)
	}
	return values, nil
}

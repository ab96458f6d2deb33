package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRecord struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func openStores(t *testing.T) map[string]Store {
	t.Helper()

	badgerStore := NewBadgerStore(nil)
	require.NoError(t, badgerStore.Open(t.TempDir()))
	t.Cleanup(func() { _ = badgerStore.Close() })

	return map[string]Store{
		"badger": badgerStore,
		"memory": NewMemoryStore(),
	}
}

func TestStorePutGetDelete(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Put(BucketHistory, "run-1", &testRecord{Name: "a", Count: 1}))

			var got testRecord
			require.NoError(t, s.Get(BucketHistory, "run-1", &got))
			assert.Equal(t, "a", got.Name)

			require.NoError(t, s.Delete(BucketHistory, "run-1"))
			assert.ErrorIs(t, s.Get(BucketHistory, "run-1", &got), ErrNotFound)
		})
	}
}

func TestStoreGetMissing(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			var got testRecord
			assert.ErrorIs(t, s.Get(BucketCredentials, "absent", &got), ErrNotFound)
		})
	}
}

func TestStoreListIsKeyOrderedAndBucketScoped(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Put(BucketHistory, "b", &testRecord{Name: "b"}))
			require.NoError(t, s.Put(BucketHistory, "a", &testRecord{Name: "a"}))
			require.NoError(t, s.Put(BucketCredentials, "c", &testRecord{Name: "c"}))

			values, err := s.List(BucketHistory)
			require.NoError(t, err)
			require.Len(t, values, 2)
			assert.Contains(t, string(values[0]), `"a"`)
			assert.Contains(t, string(values[1]), `"b"`)
		})
	}
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	s.SetClock(func() time.Time { return now })

	require.NoError(t, s.PutWithTTL(BucketRetryState, "target", &testRecord{Name: "x"}, 15*time.Minute))

	var got testRecord
	require.NoError(t, s.Get(BucketRetryState, "target", &got))

	now = now.Add(16 * time.Minute)
	assert.ErrorIs(t, s.Get(BucketRetryState, "target", &got), ErrNotFound)
}

package credentials

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabricsync/fabricsync/pkg/store"
	"github.com/fabricsync/fabricsync/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	s, err := NewStore(store.NewMemoryStore(), key, nil)
	require.NoError(t, err)
	return s
}

func TestControllerKey(t *testing.T) {
	assert.Equal(t, "nsx01.example.com", ControllerKey("https://NSX01.example.com:443"))
	assert.Equal(t, "nsx01.example.com", ControllerKey("nsx01.example.com"))
	assert.Equal(t, "10.1.2.3", ControllerKey("https://10.1.2.3"))
}

func TestSaveGetRemoveRoundTrip(t *testing.T) {
	s := newTestStore(t)

	cred := &types.Credential{Username: "admin", Password: "s3cret", Scheme: types.SchemeBasic}
	require.NoError(t, s.Save("https://nsx01.example.com", cred))

	// lookup is keyed by controller identity, not the exact address string
	got, err := s.Get("nsx01.example.com:443")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "admin", got.Username)
	assert.Equal(t, "s3cret", got.Password)
	assert.Equal(t, types.SchemeBasic, got.Scheme)

	require.NoError(t, s.Remove("nsx01.example.com"))
	got, err = s.Get("nsx01.example.com")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetAbsentReturnsNil(t *testing.T) {
	s := newTestStore(t)
	got, err := s.Get("unknown.example.com")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRecordsEncryptedAtRest(t *testing.T) {
	core := store.NewMemoryStore()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	s, err := NewStore(core, key, nil)
	require.NoError(t, err)
	require.NoError(t, s.Save("nsx01.example.com", &types.Credential{Username: "admin", Password: "s3cret"}))

	values, err := core.List(store.BucketCredentials)
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.NotContains(t, string(values[0]), "s3cret")
}

func TestWrongKeyFailsDecrypt(t *testing.T) {
	core := store.NewMemoryStore()
	key1 := make([]byte, 32)
	key2 := make([]byte, 32)
	_, _ = rand.Read(key1)
	_, _ = rand.Read(key2)

	s1, err := NewStore(core, key1, nil)
	require.NoError(t, err)
	require.NoError(t, s1.Save("nsx01.example.com", &types.Credential{Username: "admin"}))

	s2, err := NewStore(core, key2, nil)
	require.NoError(t, err)
	_, err = s2.Get("nsx01.example.com")
	assert.Error(t, err)
}

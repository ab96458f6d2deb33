// Package store provides the local state store backing fabricsync:
// encrypted credentials, auth retry state and run history.
package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("key not found")

// Bucket names used by fabricsync components.
const (
	BucketCredentials = "credentials"
	BucketRetryState  = "retry-state"
	BucketHistory     = "history"
)

// Store defines the keyed state storage interface. Values are JSON-encoded
// records grouped into buckets.
type Store interface {
	// Open initializes and opens the store at the given path.
	Open(path string) error

	// Close closes the store and releases resources.
	Close() error

	// Put stores a record under bucket/key, overwriting any existing value.
	Put(bucket, key string, value interface{}) error

	// PutWithTTL stores a record that expires after ttl.
	PutWithTTL(bucket, key string, value interface{}, ttl time.Duration) error

	// Get retrieves the record under bucket/key into out. Returns ErrNotFound
	// when the key is absent or expired.
	Get(bucket, key string, out interface{}) error

	// Delete removes the record under bucket/key. Deleting an absent key is
	// not an error.
	Delete(bucket, key string) error

	// List returns the raw JSON values of every record in a bucket, ordered
	// by key.
	List(bucket string) ([][]byte, error)
}

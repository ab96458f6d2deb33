// Package repos provides typed repositories over the core store buckets.
package repos

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/fabricsync/fabricsync/pkg/store"
)

// BaseRepo provides common typed access to one store bucket.
// T is the record payload struct.
type BaseRepo[T any] struct {
	core   store.Store
	bucket string
}

func NewBaseRepo[T any](core store.Store, bucket string) *BaseRepo[T] {
	return &BaseRepo[T]{core: core, bucket: bucket}
}

func (r *BaseRepo[T]) Put(key string, obj *T) error {
	return r.core.Put(r.bucket, key, obj)
}

func (r *BaseRepo[T]) PutWithTTL(key string, obj *T, ttl time.Duration) error {
	return r.core.PutWithTTL(r.bucket, key, obj, ttl)
}

// Get returns the record for key, or (nil, nil) when it is absent.
func (r *BaseRepo[T]) Get(key string) (*T, error) {
	var out T
	err := r.core.Get(r.bucket, key, &out)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *BaseRepo[T]) Delete(key string) error {
	return r.core.Delete(r.bucket, key)
}

// List returns every record in the bucket, key-ordered.
func (r *BaseRepo[T]) List() ([]*T, error) {
	raw, err := r.core.List(r.bucket)
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(raw))
	for _, data := range raw {
		var item T
		if err := json.Unmarshal(data, &item); err != nil {
			return nil, err
		}
		out = append(out, &item)
	}
	return out, nil
}

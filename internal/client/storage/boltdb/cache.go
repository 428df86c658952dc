package boltdb

import (
	"bytes"
	"context"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/plansync/internal/client/storage"
)

// Put stores value under key and notifies watchers after the commit.
func (s *Storage) Put(ctx context.Context, key string, value []byte) error {
	err := s.update(bucketCache, func(b *bbolt.Bucket) error {
		return b.Put([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("failed to put cache entry %q: %w", key, err)
	}

	// наблюдатели могут удерживать срез
	s.changes.Publish(storage.Change{
		Key:    key,
		Value:  bytes.Clone(value),
		Origin: storage.OriginFrom(ctx),
	})
	return nil
}

// Get returns a copy of the stored value.
func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.view(bucketCache, func(b *bbolt.Bucket) error {
		data := b.Get([]byte(key))
		if data == nil {
			return storage.ErrNotFound
		}
		// данные валидны только внутри транзакции
		value = bytes.Clone(data)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Delete removes key; a missing key is not an error.
func (s *Storage) Delete(ctx context.Context, key string) error {
	err := s.update(bucketCache, func(b *bbolt.Bucket) error {
		return b.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("failed to delete cache entry %q: %w", key, err)
	}

	s.changes.Publish(storage.Change{Key: key, Origin: storage.OriginFrom(ctx)})
	return nil
}

// Keys lists keys with the given prefix.
func (s *Storage) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	p := []byte(prefix)
	err := s.view(bucketCache, func(b *bbolt.Bucket) error {
		c := b.Cursor()
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list cache keys: %w", err)
	}
	return keys, nil
}

// Watch registers fn for every committed cache change.
func (s *Storage) Watch(fn func(storage.Change)) func() {
	return s.changes.Subscribe(fn)
}

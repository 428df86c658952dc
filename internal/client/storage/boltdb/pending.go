package boltdb

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"go.etcd.io/bbolt"

	"github.com/iudanet/plansync/internal/client/storage"
	"github.com/iudanet/plansync/internal/models"
)

// PutPending upserts the item keyed by item.Key.
func (s *Storage) PutPending(ctx context.Context, item *models.PendingWrite) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal pending write: %w", err)
	}

	err = s.update(bucketPending, func(b *bbolt.Bucket) error {
		return b.Put([]byte(item.Key), data)
	})
	if err != nil {
		return fmt.Errorf("failed to save pending write %q: %w", item.Key, err)
	}
	return nil
}

// GetPending returns the item queued for key.
func (s *Storage) GetPending(ctx context.Context, key string) (*models.PendingWrite, error) {
	var item *models.PendingWrite
	err := s.view(bucketPending, func(b *bbolt.Bucket) error {
		data := b.Get([]byte(key))
		if data == nil {
			return storage.ErrPendingNotFound
		}
		item = &models.PendingWrite{}
		if err := json.Unmarshal(data, item); err != nil {
			return fmt.Errorf("failed to unmarshal pending write: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ListPending returns every queued item, oldest first.
// Items that cannot be decoded are skipped.
func (s *Storage) ListPending(ctx context.Context) ([]*models.PendingWrite, error) {
	var items []*models.PendingWrite
	err := s.view(bucketPending, func(b *bbolt.Bucket) error {
		return b.ForEach(func(k, v []byte) error {
			item := &models.PendingWrite{}
			if err := json.Unmarshal(v, item); err != nil {
				return nil
			}
			items = append(items, item)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pending writes: %w", err)
	}

	slices.SortStableFunc(items, func(a, b *models.PendingWrite) int {
		return a.QueuedAt.Compare(b.QueuedAt)
	})
	return items, nil
}

// DeletePendingIf removes the item for key only if it is still the version with the given id.
func (s *Storage) DeletePendingIf(ctx context.Context, key, id string) (bool, error) {
	deleted := false
	err := s.update(bucketPending, func(b *bbolt.Bucket) error {
		data := b.Get([]byte(key))
		if data == nil {
			return nil
		}
		var item models.PendingWrite
		if err := json.Unmarshal(data, &item); err == nil && item.ID != id {
			return nil
		}
		deleted = true
		return b.Delete([]byte(key))
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete pending write %q: %w", key, err)
	}
	return deleted, nil
}

// ClearPending drops every queued item.
func (s *Storage) ClearPending(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return storage.ErrStorageClosed
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketPending); err != nil && err != bbolt.ErrBucketNotFound {
			return fmt.Errorf("failed to drop pending bucket: %w", err)
		}
		_, err := tx.CreateBucket(bucketPending)
		return err
	})
}

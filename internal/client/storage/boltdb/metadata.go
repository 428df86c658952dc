package boltdb

import (
	"context"
	"encoding/binary"
	"fmt"

	"go.etcd.io/bbolt"
)

const (
	keyLastSyncTimestamp = "last_sync_timestamp"
)

// SaveLastSyncTimestamp saves the timestamp of the last successful remote commit
func (s *Storage) SaveLastSyncTimestamp(ctx context.Context, timestamp int64) error {
	err := s.update(bucketMetadata, func(b *bbolt.Bucket) error {
		// int64 хранится как big-endian
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(timestamp))
		return b.Put([]byte(keyLastSyncTimestamp), buf)
	})
	if err != nil {
		return fmt.Errorf("failed to save last sync timestamp: %w", err)
	}
	return nil
}

// GetLastSyncTimestamp retrieves the timestamp of the last successful remote commit
// Returns 0 if nothing was synced yet
func (s *Storage) GetLastSyncTimestamp(ctx context.Context) (int64, error) {
	var timestamp int64

	err := s.view(bucketMetadata, func(b *bbolt.Bucket) error {
		buf := b.Get([]byte(keyLastSyncTimestamp))
		if len(buf) != 8 {
			// первая синхронизация
			return nil
		}
		timestamp = int64(binary.BigEndian.Uint64(buf))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get last sync timestamp: %w", err)
	}

	return timestamp, nil
}

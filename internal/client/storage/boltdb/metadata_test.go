package boltdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"
)

func TestSaveAndGetLastSyncTimestamp(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	// Изначально, если timestamp не сохранён — ожидаем 0
	ts, err := store.GetLastSyncTimestamp(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), ts)

	// наносекунды
	var expectedTS int64 = 1700000000123456789
	require.NoError(t, store.SaveLastSyncTimestamp(ctx, expectedTS))

	gotTS, err := store.GetLastSyncTimestamp(ctx)
	require.NoError(t, err)
	assert.Equal(t, expectedTS, gotTS)
}

func TestGetLastSyncTimestamp_BucketMissing(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	// Удаляем bucket metadata напрямую
	err := store.db.Update(func(tx *bbolt.Tx) error {
		return tx.DeleteBucket(bucketMetadata)
	})
	require.NoError(t, err)

	_, err = store.GetLastSyncTimestamp(ctx)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "metadata bucket not found")

	err = store.SaveLastSyncTimestamp(ctx, 1)
	assert.Error(t, err)
}

// Package storage defines the client's local persistence: the record cache,
// the pending write queue, sync metadata and the saved session.
package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound: the cache has no value under the key
	ErrNotFound = errors.New("cache entry not found")
	// ErrPendingNotFound: no pending write is queued for the key
	ErrPendingNotFound = errors.New("pending write not found")
	// ErrAuthNotFound: no session was saved
	ErrAuthNotFound = errors.New("authentication data not found")
	// ErrStorageClosed is returned after Close
	ErrStorageClosed = errors.New("storage is closed")
)

//go:generate moq -out metadata_mock.go . MetadataStorage

// MetadataStorage keeps the unix time in nanoseconds of the last remote commit, which
// becomes SyncStatus.LastSyncTime after a restart. Zero means never.
type MetadataStorage interface {
	SaveLastSyncTimestamp(ctx context.Context, timestamp int64) error
	GetLastSyncTimestamp(ctx context.Context) (int64, error)
}

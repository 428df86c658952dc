package storage

import (
	"context"

	"github.com/iudanet/plansync/internal/models"
)

//go:generate moq -out pending_mock.go . PendingStorage

// PendingStorage persists writes that could not be committed remotely.
// Items are keyed by PendingWrite.Key; putting an item for an existing key replaces it.
type PendingStorage interface {
	// PutPending upserts the item by its Key
	PutPending(ctx context.Context, item *models.PendingWrite) error

	// GetPending returns the item queued for key
	// Returns ErrPendingNotFound if nothing is queued
	GetPending(ctx context.Context, key string) (*models.PendingWrite, error)

	// ListPending returns all items ordered by QueuedAt
	ListPending(ctx context.Context) ([]*models.PendingWrite, error)

	// DeletePendingIf removes the item for key only when its ID still equals id
	DeletePendingIf(ctx context.Context, key, id string) (bool, error)

	// ClearPending removes every item
	ClearPending(ctx context.Context) error
}

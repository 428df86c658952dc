// Package queue keeps writes that failed to reach the remote store until they can be replayed.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/plansync/internal/client/storage"
	"github.com/iudanet/plansync/internal/models"
)

// ErrEmptyKey is returned when an item has no key.
var ErrEmptyKey = errors.New("pending write key is empty")

// Queue is the persistent pending write queue. Only the latest item per key is kept.
type Queue struct {
	store  storage.PendingStorage
	logger *slog.Logger
	now    func() time.Time
}

// New creates a queue over the given storage.
func New(store storage.PendingStorage, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Enqueue upserts a write for key, superseding any older item for that key.
func (q *Queue) Enqueue(ctx context.Context, key string, payload json.RawMessage, policy models.WritePolicy) (*models.PendingWrite, error) {
	item := &models.PendingWrite{
		Key:     key,
		Payload: payload,
		Policy:  policy,
	}
	if err := q.Put(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Put upserts a prepared item, assigning ID and QueuedAt when missing.
func (q *Queue) Put(ctx context.Context, item *models.PendingWrite) error {
	if item.Key == "" {
		return ErrEmptyKey
	}
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.QueuedAt.IsZero() {
		item.QueuedAt = q.now()
	}

	if err := q.store.PutPending(ctx, item); err != nil {
		return fmt.Errorf("failed to enqueue %q: %w", item.Key, err)
	}
	q.logger.Debug("Pending write queued", "key", item.Key, "op", item.Policy.Op)
	return nil
}

// Get returns the item queued for key, nil when there is none.
func (q *Queue) Get(ctx context.Context, key string) (*models.PendingWrite, error) {
	item, err := q.store.GetPending(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrPendingNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read pending write %q: %w", key, err)
	}
	return item, nil
}

// Items returns the queued items, oldest first.
func (q *Queue) Items(ctx context.Context) ([]*models.PendingWrite, error) {
	items, err := q.store.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read pending queue: %w", err)
	}
	return items, nil
}

// Len returns the number of queued items.
func (q *Queue) Len(ctx context.Context) (int, error) {
	items, err := q.Items(ctx)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// Ack removes item only if it is still the queued version for its key.
// A newer write queued meanwhile stays in place.
func (q *Queue) Ack(ctx context.Context, item *models.PendingWrite) (bool, error) {
	removed, err := q.store.DeletePendingIf(ctx, item.Key, item.ID)
	if err != nil {
		return false, fmt.Errorf("failed to ack %q: %w", item.Key, err)
	}
	return removed, nil
}

// Clear drops every queued item.
func (q *Queue) Clear(ctx context.Context) error {
	if err := q.store.ClearPending(ctx); err != nil {
		return fmt.Errorf("failed to clear pending queue: %w", err)
	}
	return nil
}

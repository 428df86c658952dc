package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/iudanet/plansync/internal/models"
)

// SyncResult summarizes a replay of the pending queue.
type SyncResult struct {
	Replayed int // committed and removed from the queue
	Failed   int // still queued
	Skipped  int // superseded by a newer version while replaying
}

// SyncPending replays every queued write without notifications. An item is removed
// only when it is still the queued version for its key, so the queue ends empty
// only when every replay succeeded.
func (o *Orchestrator) SyncPending(ctx context.Context) (SyncResult, error) {
	var res SyncResult

	if !o.Status().Online {
		return res, ErrOffline
	}
	if o.remote == nil || o.cfg.DisableRemoteWrites {
		return res, nil
	}
	if !o.syncing.CompareAndSwap(false, true) {
		return res, ErrSyncInProgress
	}
	defer o.syncing.Store(false)

	o.updateStatus(func(s *models.SyncStatus) { s.Syncing = true })
	defer func() {
		pending := o.hasPending(ctx)
		o.updateStatus(func(s *models.SyncStatus) {
			s.Syncing = false
			s.PendingChanges = pending
		})
	}()

	items, err := o.queue.Items(ctx)
	if err != nil {
		return res, err
	}
	if len(items) == 0 {
		return res, nil
	}

	identity, ok := o.awaitIdentity(ctx)
	if !ok {
		res.Failed = len(items)
		return res, fmt.Errorf("failed to replay pending writes: %w", ErrNoIdentity)
	}

	o.logger.Info("Replaying pending writes", "count", len(items))
	for _, item := range items {
		if ctx.Err() != nil {
			res.Failed += len(items) - res.Replayed - res.Failed - res.Skipped
			return res, ctx.Err()
		}
		switch o.replay(ctx, identity, item) {
		case OutcomeSynced:
			res.Replayed++
		case OutcomeSuperseded:
			res.Skipped++
		default:
			res.Failed++
		}
	}

	if res.Replayed > 0 {
		o.markSynced(ctx)
	}
	o.logger.Info("Pending writes replayed", "replayed", res.Replayed, "failed", res.Failed, "skipped", res.Skipped)
	return res, nil
}

func (o *Orchestrator) replay(ctx context.Context, identity string, item *models.PendingWrite) Outcome {
	l := o.lane(item.Key)
	l.mu.Lock()
	defer l.mu.Unlock()

	// версия в очереди могла смениться, пока мы ждали lane
	current, err := o.queue.Get(ctx, item.Key)
	if err != nil {
		o.logger.Warn("Failed to read pending write", "key", item.Key, "error", err)
		return OutcomeQueued
	}
	if current == nil || current.ID != item.ID {
		return OutcomeSuperseded
	}

	if err := o.commit(ctx, identity, item.Key, item.Payload, item.Policy); err != nil {
		if errors.Is(err, ErrMalformedPath) {
			o.logger.Warn("Dropping unreplayable pending write", "key", item.Key, "error", err)
			_, _ = o.queue.Ack(ctx, item)
			return OutcomeSuperseded
		}
		o.logger.Warn("Replay failed", "key", item.Key, "error", err)
		return OutcomeQueued
	}

	if _, err := o.queue.Ack(ctx, item); err != nil {
		o.logger.Warn("Failed to remove replayed write", "key", item.Key, "error", err)
	}
	return OutcomeSynced
}

// Defer queues an entity-level write that failed remotely, for the next replay.
func (o *Orchestrator) Defer(ctx context.Context, item models.PendingWrite) error {
	if err := checkKey(item.Key); err != nil {
		return err
	}
	if err := o.queue.Put(ctx, &item); err != nil {
		return err
	}
	o.markPending()
	return nil
}

// Discard drops whatever is queued for key, used when a later direct write made it obsolete.
func (o *Orchestrator) Discard(ctx context.Context, key string) {
	l := o.lane(key)
	l.mu.Lock()
	defer l.mu.Unlock()
	o.dropPending(ctx, key)
}

// Reset drops every queued write and every cached record, leaving the session alone.
// It refuses to run while a replay is in progress.
func (o *Orchestrator) Reset(ctx context.Context) (int, error) {
	if !o.syncing.CompareAndSwap(false, true) {
		return 0, ErrSyncInProgress
	}
	defer o.syncing.Store(false)

	if err := o.queue.Clear(ctx); err != nil {
		return 0, err
	}
	o.updateStatus(func(s *models.SyncStatus) { s.PendingChanges = false })

	keys, err := o.cache.Keys(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("failed to list cached records: %w", err)
	}
	for i, key := range keys {
		if err := o.cache.Delete(ctx, key); err != nil {
			return i, fmt.Errorf("failed to delete cached record %q: %w", key, err)
		}
	}
	o.logger.Info("Local data reset", "records", len(keys))
	return len(keys), nil
}

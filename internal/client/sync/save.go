package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iudanet/plansync/internal/client/notify"
	"github.com/iudanet/plansync/internal/client/storage"
	"github.com/iudanet/plansync/internal/models"
)

// SaveOptions controls where and how a record is saved.
type SaveOptions struct {
	// Path is an explicit document; it wins over Collection
	Path models.Path
	// Collection is the logical collection resolved by convention
	Collection string
	// Workspace overrides the active workspace
	Workspace string
	// Origin tags the cache change so the writer can skip its own echo
	Origin string
	// LocalOnly skips the remote store
	LocalOnly bool
	// Silent suppresses notifications
	Silent bool
}

// Save writes data to the cache and starts the remote write in the background.
// Only a failed local write is returned as an error.
func (o *Orchestrator) Save(ctx context.Context, key string, data any, opts SaveOptions) (*Receipt, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %q: %w", key, err)
	}
	if err := o.cache.Put(storage.WithOrigin(ctx, opts.Origin), key, raw); err != nil {
		return nil, fmt.Errorf("failed to save %q locally: %w", key, err)
	}

	if opts.LocalOnly || o.cfg.DisableRemoteWrites || o.remote == nil {
		return resolvedReceipt(OutcomeLocalOnly, nil), nil
	}
	if err := o.resolver.CheckExplicit(opts.Path); err != nil {
		o.logger.Warn("Invalid storage path configuration, saving locally only", "key", key, "error", err)
		return resolvedReceipt(OutcomeLocalOnly, nil), nil
	}

	policy := models.WritePolicy{
		Op:         models.WriteOpField,
		Collection: opts.Collection,
		Workspace:  o.activeWorkspace(opts.Workspace),
	}
	if p, ok := opts.Path.(models.DocumentPath); ok {
		policy.Path = p
	}

	seq := o.lane(key).latest.Add(1)

	if !o.Status().Online {
		o.enqueue(ctx, key, raw, policy, nil)
		o.notify(opts.Silent, "Saved locally, changes will sync when the connection returns", notify.KindWarning)
		return resolvedReceipt(OutcomeQueued, nil), nil
	}

	receipt := newReceipt()
	o.goBackground(func(ctx context.Context) {
		outcome, cause := o.push(ctx, key, raw, policy, seq)
		switch outcome {
		case OutcomeSynced:
			o.notify(opts.Silent, "Changes saved", notify.KindSuccess)
		case OutcomeQueued:
			o.notify(opts.Silent, "Saved locally, changes will sync when the connection returns", notify.KindWarning)
		}
		receipt.resolve(outcome, cause)
	})
	return receipt, nil
}

// push commits one remote write for key unless a newer save superseded it.
func (o *Orchestrator) push(ctx context.Context, key string, raw json.RawMessage, policy models.WritePolicy, seq uint64) (Outcome, error) {
	identity, ok := o.awaitIdentity(ctx)
	if !ok {
		o.logger.Debug("No session, keeping save local", "key", key)
		return OutcomeLocalOnly, nil
	}

	l := o.lane(key)
	l.mu.Lock()
	defer l.mu.Unlock()

	if seq < l.latest.Load() {
		return OutcomeSuperseded, nil
	}

	err := o.commit(ctx, identity, key, raw, policy)
	switch {
	case err == nil:
		if seq == l.latest.Load() {
			o.dropPending(ctx, key)
		}
		o.markSynced(ctx)
		return OutcomeSynced, nil
	case errors.Is(err, ErrNoWorkspace), errors.Is(err, ErrNoIdentity), errors.Is(err, ErrMalformedPath):
		o.logger.Debug("Remote path not resolvable, keeping save local", "key", key, "error", err)
		return OutcomeLocalOnly, nil
	case seq < l.latest.Load():
		return OutcomeSuperseded, err
	default:
		o.logger.Warn("Remote write failed, queued for replay", "key", key, "error", err)
		o.enqueue(ctx, key, raw, policy, err)
		return OutcomeQueued, err
	}
}

// commit performs the remote mutation described by policy.
func (o *Orchestrator) commit(ctx context.Context, identity, key string, raw json.RawMessage, policy models.WritePolicy) error {
	path := policy.Path
	if path.IsZero() {
		var err error
		path, err = o.resolver.Resolve(key, Target{Collection: policy.Collection, Workspace: policy.Workspace}, identity)
		if err != nil {
			return err
		}
	}

	updatedAt := o.now().UTC().Format(time.RFC3339Nano)

	switch policy.Op {
	case models.WriteOpDelete:
		return o.remote.DeleteDocument(ctx, path)
	case models.WriteOpMerge:
		var fields map[string]any
		if err := json.Unmarshal(raw, &fields); err != nil {
			return fmt.Errorf("%w: merge payload is not an object: %v", ErrMalformedPath, err)
		}
		delete(fields, "id")
		fields["updatedAt"] = updatedAt
		return o.remote.CreateOrMergeDocument(ctx, path, fields)
	default:
		var value any
		if err := json.Unmarshal(raw, &value); err != nil {
			return fmt.Errorf("failed to decode payload of %q: %w", key, err)
		}
		return o.remote.CreateOrMergeDocument(ctx, path, map[string]any{
			key:         value,
			"updatedAt": updatedAt,
		})
	}
}

func (o *Orchestrator) enqueue(ctx context.Context, key string, raw json.RawMessage, policy models.WritePolicy, cause error) {
	if _, err := o.queue.Enqueue(ctx, key, raw, policy); err != nil {
		o.logger.Error("Failed to queue pending write", "key", key, "error", err, "cause", cause)
	}
	o.markPending()
}

// dropPending removes an older queued write of key made obsolete by a successful save.
func (o *Orchestrator) dropPending(ctx context.Context, key string) {
	item, err := o.queue.Get(ctx, key)
	if err != nil || item == nil {
		return
	}
	if _, err := o.queue.Ack(ctx, item); err != nil {
		o.logger.Warn("Failed to drop obsolete pending write", "key", key, "error", err)
	}
}

// checkKey rejects keys that are empty after trimming whitespace.
func checkKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}
	return nil
}

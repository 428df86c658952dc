package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iudanet/plansync/internal/client/remote"
	"github.com/iudanet/plansync/internal/client/storage"
	"github.com/iudanet/plansync/internal/models"
)

// LoadOptions controls where Load looks for a record.
type LoadOptions struct {
	Path       models.Path
	Collection string
	Workspace  string
	// LocalOnly skips the remote read
	LocalOnly bool
	// NoLocalFallback returns not-found instead of reading the cache when the remote misses
	NoLocalFallback bool
}

// Load decodes the record stored under key into out.
// The remote copy wins when reachable; the cache is hydrated with it.
// A corrupt cached value is reported as not found.
func (o *Orchestrator) Load(ctx context.Context, key string, out any, opts LoadOptions) (bool, error) {
	if err := checkKey(key); err != nil {
		return false, err
	}

	if o.remoteReadable(opts) {
		found, err := o.loadRemote(ctx, key, out, opts)
		if err != nil {
			o.logger.Debug("Remote read failed, using local cache", "key", key, "error", err)
		} else if found {
			return true, nil
		}
	}

	if opts.NoLocalFallback {
		return false, nil
	}

	raw, err := o.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read %q from cache: %w", key, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		o.logger.Warn("Corrupt cached value ignored", "key", key, "error", err)
		return false, nil
	}
	return true, nil
}

func (o *Orchestrator) remoteReadable(opts LoadOptions) bool {
	return !opts.LocalOnly && !o.cfg.DisableRemoteReads && o.remote != nil && o.Status().Online
}

func (o *Orchestrator) loadRemote(ctx context.Context, key string, out any, opts LoadOptions) (bool, error) {
	if err := o.resolver.CheckExplicit(opts.Path); err != nil {
		o.logger.Warn("Invalid storage path configuration, reading locally only", "key", key, "error", err)
		return false, nil
	}

	identity, ok := o.awaitIdentity(ctx)
	if !ok {
		return false, nil
	}
	path, err := o.resolver.Resolve(key, Target{
		Path:       opts.Path,
		Collection: opts.Collection,
		Workspace:  o.activeWorkspace(opts.Workspace),
	}, identity)
	if err != nil {
		return false, err
	}

	doc, err := o.remote.GetDocument(ctx, path)
	if err != nil {
		if errors.Is(err, remote.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	value, ok := doc.Fields[key]
	if !ok {
		return false, nil
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("failed to encode remote value of %q: %w", key, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("failed to decode remote value of %q: %w", key, err)
	}
	if err := o.cache.Put(ctx, key, raw); err != nil {
		o.logger.Warn("Failed to hydrate cache", "key", key, "error", err)
	}
	return true, nil
}

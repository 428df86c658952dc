package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/iudanet/plansync/internal/client/collection"
	clientsync "github.com/iudanet/plansync/internal/client/sync"
	"github.com/iudanet/plansync/internal/client/workspace"
)

const (
	defaultSettleTimeout = 10 * time.Second
	settlePoll           = 20 * time.Millisecond
)

// ManagerOpener opens collection managers bound to the active workspace and waits
// until the first snapshot (or the cached fallback) is in place.
type ManagerOpener struct {
	Sync       *clientsync.Orchestrator
	Workspace  workspace.Source
	Authorizer collection.Authorizer
	Migrator   *collection.Migrator
	Notifier   clientsync.Notifier
	Logger     *slog.Logger
	// SettleTimeout bounds the wait for the first snapshot; the cache is served after it
	SettleTimeout time.Duration
}

var _ Collections = (*ManagerOpener)(nil)

// Open implements Collections.
func (o *ManagerOpener) Open(ctx context.Context, name string) (Collection, error) {
	ws := ""
	if o.Workspace != nil {
		ws = o.Workspace.Current()
	}
	if ws == "" {
		return nil, errNoWorkspace
	}

	m, err := collection.New(collection.Options{
		Sync:       o.Sync,
		Authorizer: o.Authorizer,
		Migrator:   o.Migrator,
		Notifier:   o.Notifier,
		Logger:     o.Logger,
		Collection: name,
		Workspace:  ws,
	})
	if err != nil {
		return nil, err
	}
	if err := m.Start(ctx); err != nil {
		m.Close()
		return nil, err
	}

	timeout := o.SettleTimeout
	if timeout <= 0 {
		timeout = defaultSettleTimeout
	}
	settle(ctx, m, timeout)
	return m, nil
}

// settle waits until m leaves the transient states.
func settle(ctx context.Context, m *collection.Manager, timeout time.Duration) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(settlePoll)
	defer ticker.Stop()

	for {
		switch m.State() {
		case collection.StateLive, collection.StateDegraded, collection.StateUnbound:
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			return
		case <-ticker.C:
		}
	}
}

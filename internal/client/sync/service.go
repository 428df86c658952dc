// Package sync coordinates the local cache with the remote document store.
package sync

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iudanet/plansync/internal/client/notify"
	"github.com/iudanet/plansync/internal/client/queue"
	"github.com/iudanet/plansync/internal/client/remote"
	"github.com/iudanet/plansync/internal/client/session"
	"github.com/iudanet/plansync/internal/client/storage"
	"github.com/iudanet/plansync/internal/client/workspace"
	"github.com/iudanet/plansync/internal/models"
)

const defaultSessionWait = 10 * time.Second

// Notifier receives user-facing messages about save results.
type Notifier interface {
	Notify(message string, kind notify.Kind)
}

// Config holds orchestrator policy.
type Config struct {
	// WorkspaceRoot is the root collection of workspace documents ("weddings" by default)
	WorkspaceRoot string
	// IdentityCollections are resolved to {collection}/{identity}
	IdentityCollections []string
	// SessionWait bounds the wait for the session ready signal
	SessionWait time.Duration
	// DisableRemoteWrites keeps every save local
	DisableRemoteWrites bool
	// DisableRemoteReads makes Load read the cache only
	DisableRemoteReads bool
	// StartOffline sets the initial connectivity state
	StartOffline bool
}

// Deps are the collaborators of the orchestrator. Cache, Metadata and Queue are required.
type Deps struct {
	Cache     storage.CacheStorage
	Metadata  storage.MetadataStorage
	Queue     *queue.Queue
	Remote    remote.Store
	Session   session.Provider
	Workspace workspace.Source
	Notifier  Notifier
	Logger    *slog.Logger
}

// Orchestrator owns one SyncStatus and funnels every save through the local cache
// first and the remote store second.
type Orchestrator struct {
	ctx      context.Context
	cache    storage.CacheStorage
	metadata storage.MetadataStorage
	queue    *queue.Queue
	remote   remote.Store
	session  session.Provider
	ws       workspace.Source
	notifier Notifier
	logger   *slog.Logger
	cancel   context.CancelFunc
	lanes    map[string]*lane
	watchers map[int]func(models.SyncStatus)
	now      func() time.Time
	resolver Resolver
	status   models.SyncStatus
	cfg      Config
	wg       sync.WaitGroup
	nextSub  int
	lanesMu  sync.Mutex
	mu       sync.Mutex
	syncing  atomic.Bool
}

// lane serializes remote writes of one key.
type lane struct {
	latest atomic.Uint64
	mu     sync.Mutex
}

// New creates an orchestrator and restores LastSyncTime and PendingChanges from storage.
func New(cfg Config, deps Deps) (*Orchestrator, error) {
	if deps.Cache == nil || deps.Metadata == nil || deps.Queue == nil {
		return nil, errors.New("sync: cache, metadata and queue are required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if cfg.SessionWait <= 0 {
		cfg.SessionWait = defaultSessionWait
	}

	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		ctx:      ctx,
		cancel:   cancel,
		cfg:      cfg,
		cache:    deps.Cache,
		metadata: deps.Metadata,
		queue:    deps.Queue,
		remote:   deps.Remote,
		session:  deps.Session,
		ws:       deps.Workspace,
		notifier: deps.Notifier,
		logger:   deps.Logger,
		resolver: NewResolver(cfg.WorkspaceRoot, cfg.IdentityCollections),
		lanes:    make(map[string]*lane),
		watchers: make(map[int]func(models.SyncStatus)),
		now:      time.Now,
	}
	if o.notifier == nil {
		o.notifier = logNotifier{logger: o.logger}
	}
	o.status.Online = !cfg.StartOffline

	ts, err := o.metadata.GetLastSyncTimestamp(ctx)
	if err != nil {
		o.logger.Warn("Failed to get last sync timestamp, using 0", "error", err)
	} else if ts > 0 {
		o.status.LastSyncTime = time.Unix(0, ts)
	}

	n, err := o.queue.Len(ctx)
	if err != nil {
		o.logger.Warn("Failed to read pending queue", "error", err)
	}
	o.status.PendingChanges = n > 0

	return o, nil
}

// Close stops background work and waits for in-flight remote writes.
func (o *Orchestrator) Close() {
	o.cancel()
	o.wg.Wait()
}

// Resolver returns the path resolver used by the orchestrator.
func (o *Orchestrator) Resolver() Resolver {
	return o.resolver
}

// Remote returns the remote store (nil when remote sync is disabled).
func (o *Orchestrator) Remote() remote.Store {
	return o.remote
}

// Status returns the current status.
func (o *Orchestrator) Status() models.SyncStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// Subscribe registers fn for every status transition.
func (o *Orchestrator) Subscribe(fn func(models.SyncStatus)) func() {
	o.mu.Lock()
	id := o.nextSub
	o.nextSub++
	o.watchers[id] = fn
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		delete(o.watchers, id)
		o.mu.Unlock()
	}
}

// Watch reports committed cache changes of key, including ones made by other components.
func (o *Orchestrator) Watch(key string, fn func(storage.Change)) func() {
	return o.cache.Watch(func(c storage.Change) {
		if c.Key == key {
			fn(c)
		}
	})
}

// SetOnline records a connectivity transition. Going online replays the queue in the background.
func (o *Orchestrator) SetOnline(online bool) {
	var wasOnline bool
	o.updateStatus(func(s *models.SyncStatus) {
		wasOnline = s.Online
		s.Online = online
	})

	if online && !wasOnline {
		o.logger.Info("Connection restored, replaying pending writes")
		o.goBackground(func(ctx context.Context) {
			res, err := o.SyncPending(ctx)
			if err != nil {
				o.logger.Warn("Background sync failed", "error", err)
				return
			}
			o.logger.Info("Background sync completed", "replayed", res.Replayed, "failed", res.Failed, "skipped", res.Skipped)
		})
	}
}

// updateStatus applies fn and broadcasts when the status changed.
func (o *Orchestrator) updateStatus(fn func(*models.SyncStatus)) {
	o.mu.Lock()
	before := o.status
	fn(&o.status)
	after := o.status
	fns := make([]func(models.SyncStatus), 0, len(o.watchers))
	for _, w := range o.watchers {
		fns = append(fns, w)
	}
	o.mu.Unlock()

	if before == after {
		return
	}
	for _, w := range fns {
		w(after)
	}
}

func (o *Orchestrator) goBackground(fn func(ctx context.Context)) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		fn(o.ctx)
	}()
}

func (o *Orchestrator) lane(key string) *lane {
	o.lanesMu.Lock()
	defer o.lanesMu.Unlock()

	l, ok := o.lanes[key]
	if !ok {
		l = &lane{}
		o.lanes[key] = l
	}
	return l
}

// awaitIdentity waits for the session ready signal and returns the identity.
func (o *Orchestrator) awaitIdentity(ctx context.Context) (string, bool) {
	if o.session == nil {
		return "", false
	}

	timer := time.NewTimer(o.cfg.SessionWait)
	defer timer.Stop()

	select {
	case <-o.session.Ready():
	case <-ctx.Done():
		return "", false
	case <-timer.C:
		o.logger.Warn("Session not ready in time", "wait", o.cfg.SessionWait)
		return "", false
	}
	return o.session.Identity()
}

// Identity waits for the session the way a remote write does and returns the signed-in user.
func (o *Orchestrator) Identity(ctx context.Context) (string, bool) {
	return o.awaitIdentity(ctx)
}

func (o *Orchestrator) activeWorkspace(explicit string) string {
	if explicit != "" || o.ws == nil {
		return explicit
	}
	return o.ws.Current()
}

// markSynced records a successful remote commit.
func (o *Orchestrator) markSynced(ctx context.Context) {
	now := o.now()
	if err := o.metadata.SaveLastSyncTimestamp(ctx, now.UnixNano()); err != nil {
		o.logger.Warn("Failed to save last sync timestamp", "error", err)
	}
	pending := o.hasPending(ctx)
	o.updateStatus(func(s *models.SyncStatus) {
		s.LastSyncTime = now
		s.PendingChanges = pending
	})
}

func (o *Orchestrator) markPending() {
	o.updateStatus(func(s *models.SyncStatus) { s.PendingChanges = true })
}

func (o *Orchestrator) hasPending(ctx context.Context) bool {
	n, err := o.queue.Len(ctx)
	if err != nil {
		o.logger.Warn("Failed to read pending queue", "error", err)
		return true
	}
	return n > 0
}

func (o *Orchestrator) notify(silent bool, message string, kind notify.Kind) {
	if silent {
		return
	}
	o.notifier.Notify(message, kind)
}

// logNotifier is used when no notification sink is configured.
type logNotifier struct {
	logger *slog.Logger
}

func (l logNotifier) Notify(message string, kind notify.Kind) {
	switch kind {
	case notify.KindError, notify.KindWarning, notify.KindConflict:
		l.logger.Warn(message, "kind", string(kind))
	default:
		l.logger.Info(message, "kind", string(kind))
	}
}


// Package collection keeps a live, cache-mirrored list of the entities of one
// workspace collection.
package collection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/plansync/internal/client/notify"
	"github.com/iudanet/plansync/internal/client/remote"
	"github.com/iudanet/plansync/internal/client/storage"
	clientsync "github.com/iudanet/plansync/internal/client/sync"
	"github.com/iudanet/plansync/internal/client/workspace"
	"github.com/iudanet/plansync/internal/models"
	"github.com/iudanet/plansync/internal/validation"
)

// State of a manager binding.
type State int

const (
	// StateUnbound: no workspace, sample data is served
	StateUnbound State = iota
	// StateSubscribing: the remote subscription is being opened
	StateSubscribing
	// StateLive: snapshots arrive from the remote store
	StateLive
	// StateRecovering: waiting for a permission grant to propagate
	StateRecovering
	// StateDegraded: the cached snapshot is served, no more retries for this binding
	StateDegraded
)

func (s State) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StateSubscribing:
		return "subscribing"
	case StateLive:
		return "live"
	case StateRecovering:
		return "recovering"
	case StateDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// Options configure a Manager.
type Options struct {
	// Sync is the orchestrator used for cache mirroring and deferred writes (required)
	Sync *clientsync.Orchestrator
	// Authorizer enables the permission self-heal; nil disables it
	Authorizer Authorizer
	// Migrator copies legacy records on the first live snapshot; nil disables migration
	Migrator *Migrator
	// Notifier receives warnings about degraded bindings and local fallbacks; nil only logs
	Notifier clientsync.Notifier
	Logger   *slog.Logger
	// Retry bounds the self-heal; the zero value means DefaultRetryPolicy
	Retry RetryPolicy
	// Collection is the collection name under the workspace document (required)
	Collection string
	// Workspace is the initial binding; "" starts unbound
	Workspace string
	// OrderBy sorts snapshots client-side by this field
	OrderBy string
	// Sample is served while unbound
	Sample []models.Entity
	// Limit truncates snapshots after sorting; 0 means no limit
	Limit int
	// Desc reverses OrderBy
	Desc bool
}

// Manager binds one collection of the active workspace to the remote store.
type Manager struct {
	ctx        context.Context
	err        error
	authorizer Authorizer
	orch       *clientsync.Orchestrator
	notifier   clientsync.Notifier
	remote     remote.Store
	migrator   *Migrator
	logger     *slog.Logger
	cancel     context.CancelFunc
	unsub      func()
	unwatch    func()
	unfollow   func()
	observers  map[int]func([]models.Entity)
	opts       Options
	origin     string
	workspace  string
	identity   string
	items      []models.Entity
	retry      RetryPolicy
	generation uint64
	attempts   int
	nextObs    int
	state      State
	wg         sync.WaitGroup
	mu         sync.Mutex
	loading    bool
	closed     bool
}

// New creates an unstarted manager. Call Start to bind Options.Workspace.
func New(opts Options) (*Manager, error) {
	if opts.Sync == nil {
		return nil, errors.New("collection: orchestrator is required")
	}
	if err := validation.ValidateSegment(opts.Collection); err != nil {
		return nil, fmt.Errorf("invalid collection name: %w", err)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	retry := opts.Retry
	if retry.MaxAttempts == 0 && retry.Backoff == nil {
		retry = DefaultRetryPolicy()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		ctx:        ctx,
		cancel:     cancel,
		opts:       opts,
		orch:       opts.Sync,
		notifier:   opts.Notifier,
		remote:     opts.Sync.Remote(),
		authorizer: opts.Authorizer,
		migrator:   opts.Migrator,
		retry:      retry,
		logger:     opts.Logger.With("collection", opts.Collection),
		origin:     uuid.New().String(),
		observers:  make(map[int]func([]models.Entity)),
		items:      cloneEntities(opts.Sample),
	}, nil
}

// Start binds the workspace given in Options.
func (m *Manager) Start(ctx context.Context) error {
	return m.Rebind(ctx, m.opts.Workspace)
}

// Rebind tears down the current binding and binds workspace ("" unbinds).
// Callbacks of the previous subscription are ignored from now on.
func (m *Manager) Rebind(ctx context.Context, ws string) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.generation++
	gen := m.generation
	stop := m.detachLocked()
	m.workspace = ws
	m.attempts = 0
	m.err = nil
	m.identity = ""
	if ws == "" {
		m.state = StateUnbound
		m.loading = false
		m.items = cloneEntities(m.opts.Sample)
		m.mu.Unlock()
		stop()
		m.emit()
		return nil
	}
	m.state = StateSubscribing
	m.loading = true
	m.mu.Unlock()
	stop()

	key := cacheKey(ws, m.opts.Collection)
	cached, _ := m.readCache(ctx, key)
	unwatch := m.orch.Watch(key, m.onCacheChange)

	m.mu.Lock()
	if m.generation != gen {
		m.mu.Unlock()
		unwatch()
		return nil
	}
	m.unwatch = unwatch
	m.items = cached
	m.mu.Unlock()
	m.emit()

	m.logger.Debug("Binding collection", "workspace", ws)
	m.goBackground(func(ctx context.Context) { m.subscribe(ctx, gen, ws) })
	return nil
}

// Reload reopens the subscription of the current workspace.
func (m *Manager) Reload(ctx context.Context) error {
	return m.Rebind(ctx, m.Workspace())
}

// Follow binds the active workspace of src and rebinds whenever it changes.
func (m *Manager) Follow(ctx context.Context, src workspace.Source) error {
	if err := m.Rebind(ctx, src.Current()); err != nil {
		return err
	}
	cancel := src.Watch(func(ws string) {
		if ws == m.Workspace() {
			return
		}
		if err := m.Rebind(m.ctx, ws); err != nil && !errors.Is(err, ErrClosed) {
			m.logger.Warn("Failed to rebind collection", "workspace", ws, "error", err)
		}
	})

	m.mu.Lock()
	prev := m.unfollow
	m.unfollow = cancel
	m.mu.Unlock()
	if prev != nil {
		prev()
	}
	return nil
}

// Close stops the subscription and waits for background work.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.generation++
	stop := m.detachLocked()
	unfollow := m.unfollow
	m.unfollow = nil
	m.mu.Unlock()

	if unfollow != nil {
		unfollow()
	}
	stop()
	m.cancel()
	m.wg.Wait()
}

// Items returns a copy of the current list.
func (m *Manager) Items() []models.Entity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneEntities(m.items)
}

// Loading reports whether the first snapshot of the binding is still awaited.
func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

// State returns the binding state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Err returns the last subscription error of the binding.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Workspace returns the bound workspace ("" when unbound).
func (m *Manager) Workspace() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.workspace
}

// OnChange registers fn for every list change.
func (m *Manager) OnChange(fn func([]models.Entity)) func() {
	m.mu.Lock()
	id := m.nextObs
	m.nextObs++
	m.observers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.observers, id)
		m.mu.Unlock()
	}
}

// detachLocked collects the teardown of the current subscription and cache watch.
func (m *Manager) detachLocked() func() {
	unsub, unwatch := m.unsub, m.unwatch
	m.unsub, m.unwatch = nil, nil
	return func() {
		if unsub != nil {
			unsub()
		}
		if unwatch != nil {
			unwatch()
		}
	}
}

func (m *Manager) subscribe(ctx context.Context, gen uint64, ws string) {
	if m.remote == nil {
		m.degrade(ctx, gen, ErrRemoteDisabled)
		return
	}

	identity, ok := m.orch.Identity(ctx)
	if !ok {
		m.degrade(ctx, gen, ErrAuthRequired)
		return
	}

	col, err := m.orch.Resolver().CollectionPath(ws, m.opts.Collection)
	if err != nil {
		m.degrade(ctx, gen, err)
		return
	}

	m.mu.Lock()
	if m.generation != gen {
		m.mu.Unlock()
		return
	}
	m.identity = identity
	m.mu.Unlock()

	unsub, err := m.remote.Subscribe(m.ctx,
		col,
		func(docs []models.Document) { m.onSnapshot(gen, docs) },
		func(err error) { m.onError(gen, err) },
	)
	if err != nil {
		m.onError(gen, err)
		return
	}

	m.mu.Lock()
	if m.generation != gen {
		// поколение сменилось, пока открывали подписку
		m.mu.Unlock()
		unsub()
		return
	}
	m.unsub = unsub
	m.mu.Unlock()
}

func (m *Manager) onSnapshot(gen uint64, docs []models.Document) {
	items := make([]models.Entity, 0, len(docs))
	for _, d := range docs {
		items = append(items, d.Entity())
	}
	items = shape(items, m.opts.OrderBy, m.opts.Desc, m.opts.Limit)

	m.mu.Lock()
	if m.generation != gen {
		m.mu.Unlock()
		return
	}
	ws := m.workspace
	m.mu.Unlock()

	// кэш обновляется до того, как список станет виден подписчикам
	m.persist(m.ctx, ws, items)

	m.mu.Lock()
	if m.generation != gen {
		m.mu.Unlock()
		return
	}
	becameLive := m.state != StateLive
	m.state = StateLive
	m.loading = false
	m.err = nil
	m.items = items
	identity := m.identity
	m.mu.Unlock()

	m.emit()

	if becameLive {
		m.logger.Debug("Collection live", "workspace", ws, "items", len(items))
		if m.migrator != nil {
			m.goBackground(func(ctx context.Context) {
				n, err := m.migrator.Run(ctx, m.remote, m.orch.Resolver(), m.opts.Collection, ws, identity)
				if err != nil {
					m.logger.Warn("Legacy migration failed", "workspace", ws, "error", err)
					return
				}
				if n > 0 {
					m.logger.Info("Legacy records migrated", "workspace", ws, "count", n)
				}
			})
		}
	}
}

func (m *Manager) onError(gen uint64, err error) {
	m.mu.Lock()
	if m.generation != gen || m.closed {
		m.mu.Unlock()
		return
	}
	heal := errors.Is(err, remote.ErrPermissionDenied) &&
		m.authorizer != nil &&
		m.identity != "" &&
		m.attempts < m.retry.MaxAttempts
	if !heal {
		m.mu.Unlock()
		m.degrade(m.ctx, gen, err)
		return
	}

	m.attempts++
	attempt := m.attempts
	m.generation++
	next := m.generation
	m.state = StateRecovering
	m.loading = false
	m.err = err
	ws, identity := m.workspace, m.identity
	unsub := m.unsub
	m.unsub = nil
	m.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	m.logger.Warn("Permission denied, trying to restore access", "workspace", ws, "attempt", attempt)
	m.notify("Access denied, trying to restore workspace access", notify.KindWarning)
	m.serveCache(m.ctx, next, ws)
	m.goBackground(func(ctx context.Context) { m.recover(ctx, next, ws, identity, attempt, err) })
}

// recover grants access, waits for the grant to propagate and reopens the subscription.
func (m *Manager) recover(ctx context.Context, gen uint64, ws, identity string, attempt int, cause error) {
	if err := m.authorizer.Authorize(ctx, ws, identity); err != nil {
		m.logger.Warn("Failed to restore access", "workspace", ws, "error", err)
		m.degrade(ctx, gen, fmt.Errorf("%w (grant failed: %v)", cause, err))
		return
	}

	timer := time.NewTimer(m.retry.delay(attempt))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	m.mu.Lock()
	current := m.generation == gen
	m.mu.Unlock()
	if current {
		m.subscribe(ctx, gen, ws)
	}
}

// degrade ends the binding's remote activity and serves the cached snapshot.
func (m *Manager) degrade(ctx context.Context, gen uint64, err error) {
	m.mu.Lock()
	if m.generation != gen || m.closed {
		m.mu.Unlock()
		return
	}
	m.generation++
	next := m.generation
	m.state = StateDegraded
	m.loading = false
	m.err = err
	ws := m.workspace
	unsub := m.unsub
	m.unsub = nil
	m.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	m.logger.Warn("Collection degraded to local cache", "workspace", ws, "error", err)
	m.notify("Live updates stopped, showing saved data", notify.KindWarning)
	m.serveCache(ctx, next, ws)
}

// serveCache replaces the list with the cached snapshot, if there is one.
func (m *Manager) serveCache(ctx context.Context, gen uint64, ws string) {
	cached, ok := m.readCache(ctx, cacheKey(ws, m.opts.Collection))

	m.mu.Lock()
	if m.generation != gen {
		m.mu.Unlock()
		return
	}
	if ok {
		m.items = cached
	}
	m.mu.Unlock()
	m.emit()
}

// onCacheChange adopts lists written to the cache by other managers.
func (m *Manager) onCacheChange(c storage.Change) {
	if c.Origin == m.origin || c.Value == nil {
		return
	}
	var items []models.Entity
	if err := json.Unmarshal(c.Value, &items); err != nil {
		m.logger.Debug("Ignoring unreadable cache change", "key", c.Key, "error", err)
		return
	}

	m.mu.Lock()
	if c.Key != cacheKey(m.workspace, m.opts.Collection) {
		m.mu.Unlock()
		return
	}
	m.items = items
	m.mu.Unlock()
	m.emit()
}

func (m *Manager) readCache(ctx context.Context, key string) ([]models.Entity, bool) {
	var items []models.Entity
	found, err := m.orch.Load(ctx, key, &items, clientsync.LoadOptions{LocalOnly: true})
	if err != nil {
		m.logger.Warn("Failed to read cached collection", "key", key, "error", err)
		return nil, false
	}
	if !found || items == nil {
		return []models.Entity{}, found
	}
	return items, true
}

// persist mirrors items to the workspace cache key without echoing back to this manager.
func (m *Manager) persist(ctx context.Context, ws string, items []models.Entity) {
	key := cacheKey(ws, m.opts.Collection)
	_, err := m.orch.Save(ctx, key, items, clientsync.SaveOptions{
		LocalOnly: true,
		Silent:    true,
		Origin:    m.origin,
	})
	if err != nil {
		m.logger.Error("Failed to cache collection", "key", key, "error", err)
	}
}

func (m *Manager) emit() {
	m.mu.Lock()
	items := cloneEntities(m.items)
	fns := make([]func([]models.Entity), 0, len(m.observers))
	for _, fn := range m.observers {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(items)
	}
}

func (m *Manager) notify(message string, kind notify.Kind) {
	if m.notifier != nil {
		m.notifier.Notify(message, kind)
	}
}

func (m *Manager) goBackground(fn func(ctx context.Context)) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		fn(m.ctx)
	}()
}

// cacheKey is the cache key mirroring a workspace collection.
func cacheKey(ws, collection string) string {
	return ws + "/" + collection
}

func cloneEntities(items []models.Entity) []models.Entity {
	out := make([]models.Entity, len(items))
	for i, e := range items {
		out[i] = e.Clone()
	}
	return out
}

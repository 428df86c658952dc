package collection

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iudanet/plansync/internal/client/notify"
	"github.com/iudanet/plansync/internal/client/queue"
	"github.com/iudanet/plansync/internal/client/remote"
	"github.com/iudanet/plansync/internal/client/session"
	"github.com/iudanet/plansync/internal/client/storage/boltdb"
	clientsync "github.com/iudanet/plansync/internal/client/sync"
	"github.com/iudanet/plansync/internal/models"
)

const (
	waitFor = 5 * time.Second
	tick    = 5 * time.Millisecond
)

// AuthorizerMock is a moq-style Authorizer.
type AuthorizerMock struct {
	AuthorizeFunc func(ctx context.Context, workspace, identity string) error

	calls struct {
		Authorize []struct {
			Workspace string
			Identity  string
		}
	}
	lock sync.Mutex
}

func (m *AuthorizerMock) Authorize(ctx context.Context, workspace, identity string) error {
	if m.AuthorizeFunc == nil {
		panic("AuthorizerMock.AuthorizeFunc: method is nil but Authorizer.Authorize was just called")
	}
	m.lock.Lock()
	m.calls.Authorize = append(m.calls.Authorize, struct {
		Workspace string
		Identity  string
	}{workspace, identity})
	m.lock.Unlock()
	return m.AuthorizeFunc(ctx, workspace, identity)
}

func (m *AuthorizerMock) AuthorizeCalls() []struct {
	Workspace string
	Identity  string
} {
	m.lock.Lock()
	defer m.lock.Unlock()
	return append([]struct {
		Workspace string
		Identity  string
	}(nil), m.calls.Authorize...)
}

// NotifierMock records notifications.
type NotifierMock struct {
	calls []struct {
		Message string
		Kind    notify.Kind
	}
	lock sync.Mutex
}

func (m *NotifierMock) Notify(message string, kind notify.Kind) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.calls = append(m.calls, struct {
		Message string
		Kind    notify.Kind
	}{message, kind})
}

func (m *NotifierMock) Kinds() []notify.Kind {
	m.lock.Lock()
	defer m.lock.Unlock()
	out := make([]notify.Kind, 0, len(m.calls))
	for _, c := range m.calls {
		out = append(out, c.Kind)
	}
	return out
}

type env struct {
	store  *boltdb.Storage
	remote *remote.MemoryStore
	queue  *queue.Queue
	orch   *clientsync.Orchestrator
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newEnv(t *testing.T, cfg clientsync.Config) *env {
	t.Helper()

	store, err := boltdb.New(context.Background(), filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)

	e := &env{
		store:  store,
		remote: remote.NewMemoryStore(),
		queue:  queue.New(store, discardLogger()),
	}
	e.orch, err = clientsync.New(cfg, clientsync.Deps{
		Cache:    store,
		Metadata: store,
		Queue:    e.queue,
		Remote:   e.remote,
		Session:  session.NewStatic("u1"),
		Logger:   discardLogger(),
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		e.orch.Close()
		_ = store.Close()
	})
	return e
}

func (e *env) manager(t *testing.T, opts Options) *Manager {
	t.Helper()
	opts.Sync = e.orch
	if opts.Logger == nil {
		opts.Logger = discardLogger()
	}
	m, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m
}

func (e *env) put(t *testing.T, path string, fields map[string]any) {
	t.Helper()
	p, err := models.ParseDocumentPath(path)
	require.NoError(t, err)
	require.NoError(t, e.remote.CreateOrMergeDocument(context.Background(), p, fields))
}

func (e *env) cached(t *testing.T, key string) []models.Entity {
	t.Helper()
	raw, err := e.store.Get(context.Background(), key)
	require.NoError(t, err)
	var items []models.Entity
	require.NoError(t, json.Unmarshal(raw, &items))
	return items
}

func waitState(t *testing.T, m *Manager, want State) {
	t.Helper()
	require.Eventually(t, func() bool { return m.State() == want }, waitFor, tick,
		"state %s, want %s", m.State(), want)
}

func ids(items []models.Entity) []string {
	out := make([]string, 0, len(items))
	for _, e := range items {
		out = append(out, e.ID())
	}
	return out
}

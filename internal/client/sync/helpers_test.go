package sync

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	gosync "sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iudanet/plansync/internal/client/notify"
	"github.com/iudanet/plansync/internal/client/queue"
	"github.com/iudanet/plansync/internal/client/remote"
	"github.com/iudanet/plansync/internal/client/session"
	"github.com/iudanet/plansync/internal/client/storage/boltdb"
	"github.com/iudanet/plansync/internal/client/workspace"
)

type recordingNotifier struct {
	messages []string
	kinds    []notify.Kind
	mu       gosync.Mutex
}

func (r *recordingNotifier) Notify(message string, kind notify.Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
	r.kinds = append(r.kinds, kind)
}

func (r *recordingNotifier) Kinds() []notify.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Kind(nil), r.kinds...)
}

// gateSession становится ready только по open()
type gateSession struct {
	ready chan struct{}
	id    string
}

func newGateSession(id string) *gateSession {
	return &gateSession{ready: make(chan struct{}), id: id}
}

func (g *gateSession) Identity() (string, bool) { return g.id, g.id != "" }
func (g *gateSession) Ready() <-chan struct{}   { return g.ready }
func (g *gateSession) open()                    { close(g.ready) }

type env struct {
	store    *boltdb.Storage
	remote   *remote.MemoryStore
	queue    *queue.Queue
	notifier *recordingNotifier
	ws       *workspace.Static
	orch     *Orchestrator
}

type envOption func(*Config, *Deps)

func withConfig(fn func(*Config)) envOption {
	return func(c *Config, _ *Deps) { fn(c) }
}

func withSession(p session.Provider) envOption {
	return func(_ *Config, d *Deps) { d.Session = p }
}

func withoutRemote() envOption {
	return func(_ *Config, d *Deps) { d.Remote = nil }
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newEnv(t *testing.T, opts ...envOption) *env {
	t.Helper()

	store, err := boltdb.New(context.Background(), filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)

	e := &env{
		store:    store,
		remote:   remote.NewMemoryStore(),
		queue:    queue.New(store, discardLogger()),
		notifier: &recordingNotifier{},
		ws:       workspace.NewStatic("w1"),
	}

	cfg := Config{}
	deps := Deps{
		Cache:     store,
		Metadata:  store,
		Queue:     e.queue,
		Remote:    e.remote,
		Session:   session.NewStatic("u1"),
		Workspace: e.ws,
		Notifier:  e.notifier,
		Logger:    discardLogger(),
	}
	for _, opt := range opts {
		opt(&cfg, &deps)
	}

	e.orch, err = New(cfg, deps)
	require.NoError(t, err)

	t.Cleanup(func() {
		e.orch.Close()
		_ = store.Close()
	})
	return e
}

package cli

import (
	"context"

	"github.com/iudanet/plansync/internal/client/collection"
	"github.com/iudanet/plansync/internal/client/storage"
	clientsync "github.com/iudanet/plansync/internal/client/sync"
	"github.com/iudanet/plansync/internal/models"
)

//go:generate moq -out session_mock.go . Session

// Session is the part of session.Manager the commands use.
type Session interface {
	Register(ctx context.Context, username, password string) (string, error)
	Login(ctx context.Context, username, password string) (*storage.AuthData, error)
	Logout(ctx context.Context) error
	Current() (*storage.AuthData, error)
}

//go:generate moq -out syncer_mock.go . Syncer

// Syncer is the part of sync.Orchestrator the commands use.
type Syncer interface {
	Status() models.SyncStatus
	Save(ctx context.Context, key string, data any, opts clientsync.SaveOptions) (*clientsync.Receipt, error)
	Load(ctx context.Context, key string, out any, opts clientsync.LoadOptions) (bool, error)
	SyncPending(ctx context.Context) (clientsync.SyncResult, error)
	Reset(ctx context.Context) (int, error)
	Watch(key string, fn func(storage.Change)) func()
}

//go:generate moq -out collections_mock.go . Collections

// Collections opens a settled collection of the active workspace.
type Collections interface {
	Open(ctx context.Context, name string) (Collection, error)
}

// Collection is the part of collection.Manager the commands use.
type Collection interface {
	Items() []models.Entity
	State() collection.State
	Err() error
	AddItem(ctx context.Context, entity models.Entity) (models.Entity, error)
	UpdateItem(ctx context.Context, id string, patch map[string]any) error
	RemoveItem(ctx context.Context, id string) error
	Close()
}

// WorkspaceSelector changes the active workspace (workspace.FileSource).
type WorkspaceSelector interface {
	Set(workspace string) error
}

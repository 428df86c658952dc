package cli

import (
	"context"
	"sync"

	"github.com/iudanet/plansync/internal/client/storage"
	clientsync "github.com/iudanet/plansync/internal/client/sync"
	"github.com/iudanet/plansync/internal/models"
)

// SessionMock is a mock implementation of Session.
type SessionMock struct {
	RegisterFunc func(ctx context.Context, username, password string) (string, error)
	LoginFunc    func(ctx context.Context, username, password string) (*storage.AuthData, error)
	LogoutFunc   func(ctx context.Context) error
	CurrentFunc  func() (*storage.AuthData, error)

	calls struct {
		Register []struct{ Username, Password string }
		Login    []struct{ Username, Password string }
		Logout   int
	}
	lock sync.Mutex
}

func (mock *SessionMock) Register(ctx context.Context, username, password string) (string, error) {
	if mock.RegisterFunc == nil {
		panic("SessionMock.RegisterFunc: method is nil but Session.Register was just called")
	}
	mock.lock.Lock()
	mock.calls.Register = append(mock.calls.Register, struct{ Username, Password string }{username, password})
	mock.lock.Unlock()
	return mock.RegisterFunc(ctx, username, password)
}

func (mock *SessionMock) RegisterCalls() []struct{ Username, Password string } {
	mock.lock.Lock()
	defer mock.lock.Unlock()
	return mock.calls.Register
}

func (mock *SessionMock) Login(ctx context.Context, username, password string) (*storage.AuthData, error) {
	if mock.LoginFunc == nil {
		panic("SessionMock.LoginFunc: method is nil but Session.Login was just called")
	}
	mock.lock.Lock()
	mock.calls.Login = append(mock.calls.Login, struct{ Username, Password string }{username, password})
	mock.lock.Unlock()
	return mock.LoginFunc(ctx, username, password)
}

func (mock *SessionMock) LoginCalls() []struct{ Username, Password string } {
	mock.lock.Lock()
	defer mock.lock.Unlock()
	return mock.calls.Login
}

func (mock *SessionMock) Logout(ctx context.Context) error {
	if mock.LogoutFunc == nil {
		panic("SessionMock.LogoutFunc: method is nil but Session.Logout was just called")
	}
	mock.lock.Lock()
	mock.calls.Logout++
	mock.lock.Unlock()
	return mock.LogoutFunc(ctx)
}

func (mock *SessionMock) LogoutCalls() int {
	mock.lock.Lock()
	defer mock.lock.Unlock()
	return mock.calls.Logout
}

func (mock *SessionMock) Current() (*storage.AuthData, error) {
	if mock.CurrentFunc == nil {
		panic("SessionMock.CurrentFunc: method is nil but Session.Current was just called")
	}
	return mock.CurrentFunc()
}

// SyncerMock is a mock implementation of Syncer.
type SyncerMock struct {
	StatusFunc      func() models.SyncStatus
	SaveFunc        func(ctx context.Context, key string, data any, opts clientsync.SaveOptions) (*clientsync.Receipt, error)
	LoadFunc        func(ctx context.Context, key string, out any, opts clientsync.LoadOptions) (bool, error)
	SyncPendingFunc func(ctx context.Context) (clientsync.SyncResult, error)
	ResetFunc       func(ctx context.Context) (int, error)
	WatchFunc       func(key string, fn func(storage.Change)) func()

	calls struct {
		SyncPending int
	}
	lock sync.Mutex
}

func (mock *SyncerMock) Status() models.SyncStatus {
	if mock.StatusFunc == nil {
		panic("SyncerMock.StatusFunc: method is nil but Syncer.Status was just called")
	}
	return mock.StatusFunc()
}

func (mock *SyncerMock) Save(ctx context.Context, key string, data any, opts clientsync.SaveOptions) (*clientsync.Receipt, error) {
	if mock.SaveFunc == nil {
		panic("SyncerMock.SaveFunc: method is nil but Syncer.Save was just called")
	}
	return mock.SaveFunc(ctx, key, data, opts)
}

func (mock *SyncerMock) Load(ctx context.Context, key string, out any, opts clientsync.LoadOptions) (bool, error) {
	if mock.LoadFunc == nil {
		panic("SyncerMock.LoadFunc: method is nil but Syncer.Load was just called")
	}
	return mock.LoadFunc(ctx, key, out, opts)
}

func (mock *SyncerMock) SyncPending(ctx context.Context) (clientsync.SyncResult, error) {
	if mock.SyncPendingFunc == nil {
		panic("SyncerMock.SyncPendingFunc: method is nil but Syncer.SyncPending was just called")
	}
	mock.lock.Lock()
	mock.calls.SyncPending++
	mock.lock.Unlock()
	return mock.SyncPendingFunc(ctx)
}

func (mock *SyncerMock) SyncPendingCalls() int {
	mock.lock.Lock()
	defer mock.lock.Unlock()
	return mock.calls.SyncPending
}

func (mock *SyncerMock) Reset(ctx context.Context) (int, error) {
	if mock.ResetFunc == nil {
		panic("SyncerMock.ResetFunc: method is nil but Syncer.Reset was just called")
	}
	return mock.ResetFunc(ctx)
}

func (mock *SyncerMock) Watch(key string, fn func(storage.Change)) func() {
	if mock.WatchFunc == nil {
		panic("SyncerMock.WatchFunc: method is nil but Syncer.Watch was just called")
	}
	return mock.WatchFunc(key, fn)
}

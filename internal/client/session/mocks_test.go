package session

import (
	"context"
	"sync"

	"github.com/iudanet/plansync/internal/client/storage"
	pkgapi "github.com/iudanet/plansync/pkg/api"
)

// AuthenticatorMock is a mock implementation of Authenticator.
type AuthenticatorMock struct {
	RegisterFunc func(ctx context.Context, req pkgapi.RegisterRequest) (*pkgapi.RegisterResponse, error)
	LoginFunc    func(ctx context.Context, req pkgapi.LoginRequest) (*pkgapi.TokenResponse, error)

	calls struct {
		Register []pkgapi.RegisterRequest
		Login    []pkgapi.LoginRequest
	}
	lock sync.Mutex
}

func (m *AuthenticatorMock) Register(ctx context.Context, req pkgapi.RegisterRequest) (*pkgapi.RegisterResponse, error) {
	if m.RegisterFunc == nil {
		panic("AuthenticatorMock.RegisterFunc: method is nil but Authenticator.Register was just called")
	}
	m.lock.Lock()
	m.calls.Register = append(m.calls.Register, req)
	m.lock.Unlock()
	return m.RegisterFunc(ctx, req)
}

func (m *AuthenticatorMock) Login(ctx context.Context, req pkgapi.LoginRequest) (*pkgapi.TokenResponse, error) {
	if m.LoginFunc == nil {
		panic("AuthenticatorMock.LoginFunc: method is nil but Authenticator.Login was just called")
	}
	m.lock.Lock()
	m.calls.Login = append(m.calls.Login, req)
	m.lock.Unlock()
	return m.LoginFunc(ctx, req)
}

// LoginCalls gets all the calls that were made to Login.
func (m *AuthenticatorMock) LoginCalls() []pkgapi.LoginRequest {
	m.lock.Lock()
	defer m.lock.Unlock()
	return append([]pkgapi.LoginRequest(nil), m.calls.Login...)
}

// mockAuthStorage implements storage.AuthStorage for testing
type mockAuthStorage struct {
	data    *storage.AuthData
	saveErr error
	getErr  error
}

func (m *mockAuthStorage) SaveAuth(ctx context.Context, auth *storage.AuthData) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	cp := *auth
	m.data = &cp
	return nil
}

func (m *mockAuthStorage) GetAuth(ctx context.Context) (*storage.AuthData, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.data == nil {
		return nil, storage.ErrAuthNotFound
	}
	cp := *m.data
	return &cp, nil
}

func (m *mockAuthStorage) DeleteAuth(ctx context.Context) error {
	if m.data == nil {
		return storage.ErrAuthNotFound
	}
	m.data = nil
	return nil
}

func (m *mockAuthStorage) IsAuthenticated(ctx context.Context) (bool, error) {
	return m.data != nil, nil
}

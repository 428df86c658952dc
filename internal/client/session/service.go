package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/plansync/internal/client/storage"
	"github.com/iudanet/plansync/internal/validation"
	pkgapi "github.com/iudanet/plansync/pkg/api"
)

// ErrNotAuthenticated is returned when an operation needs a session and there is none.
var ErrNotAuthenticated = errors.New("not authenticated")

//go:generate moq -out authenticator_mock.go . Authenticator

// Authenticator is the server side of registration and login.
type Authenticator interface {
	Register(ctx context.Context, req pkgapi.RegisterRequest) (*pkgapi.RegisterResponse, error)
	Login(ctx context.Context, req pkgapi.LoginRequest) (*pkgapi.TokenResponse, error)
}

// Manager owns the client session: it logs in against the server, persists the
// token and serves the identity to the sync layer.
type Manager struct {
	api     Authenticator
	store   storage.AuthStorage
	logger  *slog.Logger
	current *storage.AuthData
	ready   *readySignal
	now     func() time.Time
	mu      sync.RWMutex
}

var _ Provider = (*Manager)(nil)

// NewManager создает менеджер сессии
func NewManager(api Authenticator, store storage.AuthStorage, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		api:    api,
		store:  store,
		logger: logger,
		ready:  newReadySignal(),
		now:    time.Now,
	}
}

// Restore loads a stored, non-expired session and marks the manager ready.
// A missing or expired session is not an error: the manager becomes ready as anonymous.
func (m *Manager) Restore(ctx context.Context) error {
	defer m.ready.fire()

	auth, err := m.store.GetAuth(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrAuthNotFound) {
			return nil
		}
		return fmt.Errorf("failed to restore session: %w", err)
	}

	if m.now().Unix() >= auth.ExpiresAt {
		m.logger.Info("Stored session expired", "username", auth.Username)
		return nil
	}

	m.mu.Lock()
	m.current = auth
	m.mu.Unlock()
	return nil
}

// Register регистрирует нового пользователя, сессия не создается
func (m *Manager) Register(ctx context.Context, username, password string) (string, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return "", fmt.Errorf("invalid username: %w", err)
	}
	if err := validation.ValidatePassword(password); err != nil {
		return "", fmt.Errorf("invalid password: %w", err)
	}

	resp, err := m.api.Register(ctx, pkgapi.RegisterRequest{Username: username, Password: password})
	if err != nil {
		return "", fmt.Errorf("registration failed: %w", err)
	}
	return resp.UserID, nil
}

// Login authenticates against the server and persists the session.
func (m *Manager) Login(ctx context.Context, username, password string) (*storage.AuthData, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, fmt.Errorf("invalid username: %w", err)
	}
	if password == "" {
		return nil, fmt.Errorf("invalid password: password cannot be empty")
	}

	resp, err := m.api.Login(ctx, pkgapi.LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	auth := &storage.AuthData{
		Username:    username,
		UserID:      resp.UserID,
		AccessToken: resp.AccessToken,
		ExpiresAt:   m.now().Add(time.Duration(resp.ExpiresIn) * time.Second).Unix(),
	}
	if err := m.store.SaveAuth(ctx, auth); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	m.mu.Lock()
	m.current = auth
	m.mu.Unlock()
	m.ready.fire()

	m.logger.Info("Logged in", "username", username, "user_id", resp.UserID)
	return auth, nil
}

// Logout удаляет локальную сессию
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()

	if err := m.store.DeleteAuth(ctx); err != nil && !errors.Is(err, storage.ErrAuthNotFound) {
		return fmt.Errorf("failed to delete local auth data: %w", err)
	}
	return nil
}

// Current returns a copy of the session, or ErrNotAuthenticated.
func (m *Manager) Current() (*storage.AuthData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.current == nil {
		return nil, ErrNotAuthenticated
	}
	auth := *m.current
	return &auth, nil
}

// Identity implements Provider.
func (m *Manager) Identity() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.current == nil {
		return "", false
	}
	return m.current.UserID, true
}

// Ready implements Provider.
func (m *Manager) Ready() <-chan struct{} {
	return m.ready.ch
}

// Token returns the access token for the API client ("" when signed out).
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.current == nil {
		return ""
	}
	return m.current.AccessToken
}

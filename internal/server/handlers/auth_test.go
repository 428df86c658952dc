package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/plansync/internal/crypto"
	"github.com/iudanet/plansync/internal/models"
	"github.com/iudanet/plansync/internal/server/storage"
	"github.com/iudanet/plansync/pkg/api"
)

// mockUserStorage is a mock implementation of UserStorage for testing
type mockUserStorage struct {
	users        map[string]*models.User // username -> User
	createError  error
	getUserError error
}

func (m *mockUserStorage) CreateUser(ctx context.Context, user *models.User) error {
	if m.createError != nil {
		return m.createError
	}
	if _, exists := m.users[user.Username]; exists {
		return storage.ErrUserAlreadyExists
	}
	m.users[user.Username] = user
	return nil
}

func (m *mockUserStorage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.getUserError != nil {
		return nil, m.getUserError
	}
	user, ok := m.users[username]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserStorage) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if m.getUserError != nil {
		return nil, m.getUserError
	}
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

// mockTokenIssuer is a mock implementation of TokenIssuer for testing
type mockTokenIssuer struct {
	err   error
	calls []string
}

func (m *mockTokenIssuer) GenerateAccessToken(userID, username string) (string, int64, error) {
	m.calls = append(m.calls, userID)
	if m.err != nil {
		return "", 0, m.err
	}
	return "token-" + userID, 3600, nil
}

// seedUser сохраняет пользователя с настоящим argon2 хешем
func seedUser(t *testing.T, users *mockUserStorage, username, password string) *models.User {
	t.Helper()
	salt, err := crypto.GenerateSalt()
	require.NoError(t, err)
	hash, err := crypto.HashPassword(password, salt)
	require.NoError(t, err)
	user := &models.User{ID: "id-" + username, Username: username, PasswordHash: hash, Salt: salt}
	users.users[username] = user
	return user
}

func TestAuthHandler_Register_Success(t *testing.T) {
	users := &mockUserStorage{users: make(map[string]*models.User)}
	handler := NewAuthHandler(setupTestLogger(), users, &mockTokenIssuer{})

	req := newJSONRequest(t, http.MethodPost, "/api/v1/auth/register", "",
		api.RegisterRequest{Username: "testuser", Password: "correct horse battery"})
	w := httptest.NewRecorder()
	handler.Register(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var response api.RegisterResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.NotEmpty(t, response.UserID)

	// пароль хранится только в виде хеша
	user, err := users.GetUserByUsername(context.Background(), "testuser")
	require.NoError(t, err)
	assert.Equal(t, response.UserID, user.ID)
	assert.NotContains(t, user.PasswordHash, "correct horse")
	ok, err := crypto.VerifyPassword("correct horse battery", user.Salt, user.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAuthHandler_Register_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		createErr  error
		existing   string
		wantStatus int
		wantCode   string
	}{
		{name: "invalid json", body: "{", wantStatus: http.StatusBadRequest, wantCode: api.CodeInvalidArgument},
		{name: "invalid username", body: api.RegisterRequest{Username: "a b", Password: "correct horse battery"}, wantStatus: http.StatusBadRequest, wantCode: api.CodeInvalidArgument},
		{name: "short password", body: api.RegisterRequest{Username: "alice", Password: "short"}, wantStatus: http.StatusBadRequest, wantCode: api.CodeInvalidArgument},
		{name: "duplicate", body: api.RegisterRequest{Username: "alice", Password: "correct horse battery"}, existing: "alice", wantStatus: http.StatusConflict, wantCode: api.CodeConflict},
		{name: "storage error", body: api.RegisterRequest{Username: "alice", Password: "correct horse battery"}, createErr: errors.New("disk full"), wantStatus: http.StatusInternalServerError, wantCode: api.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := &mockUserStorage{users: make(map[string]*models.User), createError: tt.createErr}
			if tt.existing != "" {
				users.users[tt.existing] = &models.User{ID: "old", Username: tt.existing}
			}
			handler := NewAuthHandler(setupTestLogger(), users, &mockTokenIssuer{})

			var req *http.Request
			if raw, ok := tt.body.(string); ok {
				req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewBufferString(raw))
			} else {
				req = newJSONRequest(t, http.MethodPost, "/api/v1/auth/register", "", tt.body)
			}
			w := httptest.NewRecorder()
			handler.Register(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, w).Code)
		})
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	users := &mockUserStorage{users: make(map[string]*models.User)}
	user := seedUser(t, users, "alice", "correct horse battery")
	tokens := &mockTokenIssuer{}
	handler := NewAuthHandler(setupTestLogger(), users, tokens)

	req := newJSONRequest(t, http.MethodPost, "/api/v1/auth/login", "",
		api.LoginRequest{Username: "alice", Password: "correct horse battery"})
	w := httptest.NewRecorder()
	handler.Login(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp api.TokenResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "token-"+user.ID, resp.AccessToken)
	assert.Equal(t, user.ID, resp.UserID)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, []string{user.ID}, tokens.calls)
}

func TestAuthHandler_Login_Errors(t *testing.T) {
	tests := []struct {
		name       string
		req        api.LoginRequest
		getErr     error
		tokenErr   error
		wantStatus int
		wantCode   string
	}{
		{name: "empty password", req: api.LoginRequest{Username: "alice"}, wantStatus: http.StatusBadRequest, wantCode: api.CodeInvalidArgument},
		{name: "invalid username", req: api.LoginRequest{Username: "", Password: "x"}, wantStatus: http.StatusBadRequest, wantCode: api.CodeInvalidArgument},
		{name: "unknown user", req: api.LoginRequest{Username: "bob", Password: "correct horse battery"}, wantStatus: http.StatusUnauthorized, wantCode: api.CodeUnauthenticated},
		{name: "wrong password", req: api.LoginRequest{Username: "alice", Password: "wrong horse battery"}, wantStatus: http.StatusUnauthorized, wantCode: api.CodeUnauthenticated},
		{name: "storage error", req: api.LoginRequest{Username: "alice", Password: "correct horse battery"}, getErr: errors.New("db down"), wantStatus: http.StatusInternalServerError, wantCode: api.CodeInternal},
		{name: "token error", req: api.LoginRequest{Username: "alice", Password: "correct horse battery"}, tokenErr: errors.New("sign failed"), wantStatus: http.StatusInternalServerError, wantCode: api.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := &mockUserStorage{users: make(map[string]*models.User)}
			seedUser(t, users, "alice", "correct horse battery")
			users.getUserError = tt.getErr
			handler := NewAuthHandler(setupTestLogger(), users, &mockTokenIssuer{err: tt.tokenErr})

			w := httptest.NewRecorder()
			handler.Login(w, newJSONRequest(t, http.MethodPost, "/api/v1/auth/login", "", tt.req))

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, tt.wantCode, resp.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				// одинаковый ответ для неизвестного пользователя и неверного пароля
				assert.Equal(t, "invalid credentials", resp.Message)
			}
		})
	}
}

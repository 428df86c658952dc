package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/plansync/internal/client/iocli"
	"github.com/iudanet/plansync/internal/client/session"
	"github.com/iudanet/plansync/internal/client/storage"
	"github.com/iudanet/plansync/internal/client/workspace"
	"github.com/iudanet/plansync/internal/models"
)

// newIO возвращает IO с заданным вводом и буфером вывода
func newIO(input string) (iocli.IO, *bytes.Buffer) {
	var out bytes.Buffer
	return iocli.New(strings.NewReader(input), &out), &out
}

func writePasswordFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "password.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

// TestGetPassword_Priority проверяет приоритет источников пароля
func TestGetPassword_Priority(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		file        string
		args        string
		input       string
		want        string
		interactive bool
	}{
		{name: "env wins", env: "env_password", file: "file_password", args: "cli_password", want: "env_password"},
		{name: "file over args", file: "file_password\n", args: "cli_password", want: "file_password"},
		{name: "args", args: "cli_password", want: "cli_password"},
		{name: "prompt fallback", input: "typed_password\n", want: "typed_password", interactive: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(PasswordEnv, tt.env)
			io, _ := newIO(tt.input)
			sources := PasswordSources{FromArgs: tt.args}
			if tt.file != "" {
				sources.FromFile = writePasswordFile(t, tt.file)
			}
			c := New(Deps{IO: io, Passwords: sources})

			password, interactive, err := c.getPassword("Password: ")
			require.NoError(t, err)
			assert.Equal(t, tt.want, password)
			assert.Equal(t, tt.interactive, interactive)
		})
	}
}

func TestGetPassword_Errors(t *testing.T) {
	t.Setenv(PasswordEnv, "")

	io, _ := newIO("")
	c := New(Deps{IO: io, Passwords: PasswordSources{FromFile: writePasswordFile(t, "  \n")}})
	_, _, err := c.getPassword("Password: ")
	assert.ErrorContains(t, err, "password file is empty")

	c = New(Deps{IO: io, Passwords: PasswordSources{FromFile: filepath.Join(t.TempDir(), "missing")}})
	_, _, err = c.getPassword("Password: ")
	assert.ErrorContains(t, err, "failed to read password file")

	io, _ = newIO("\n")
	c = New(Deps{IO: io})
	_, _, err = c.getPassword("Password: ")
	assert.ErrorContains(t, err, "password cannot be empty")
}

func TestRegister_Interactive(t *testing.T) {
	t.Setenv(PasswordEnv, "")
	ctx := context.Background()

	mockSession := &SessionMock{
		RegisterFunc: func(ctx context.Context, username, password string) (string, error) {
			return "user-123", nil
		},
	}
	io, out := newIO("alice\ncorrect horse battery\ncorrect horse battery\n")
	c := New(Deps{IO: io, Session: mockSession})

	require.NoError(t, c.Run(ctx, "register", nil))

	calls := mockSession.RegisterCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "alice", calls[0].Username)
	assert.Equal(t, "correct horse battery", calls[0].Password)
	assert.Contains(t, out.String(), "User ID: user-123")
}

func TestRegister_Errors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		input   string
		args    []string
		env     string
		wantErr string
	}{
		{name: "password mismatch", input: "alice\ncorrect horse battery\ncorrect horse staple\n", wantErr: "passwords do not match"},
		{name: "short password", input: "alice\nshort\n", wantErr: "invalid password"},
		{name: "invalid username", args: []string{"--username", "a b"}, env: "correct horse battery", wantErr: "invalid username"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(PasswordEnv, tt.env)
			mockSession := &SessionMock{}
			io, _ := newIO(tt.input)
			c := New(Deps{IO: io, Session: mockSession})

			err := c.Run(ctx, "register", tt.args)
			assert.ErrorContains(t, err, tt.wantErr)
			assert.Empty(t, mockSession.RegisterCalls())
		})
	}
}

func TestLogin(t *testing.T) {
	t.Setenv(PasswordEnv, "correct horse battery")
	ctx := context.Background()

	expires := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	mockSession := &SessionMock{
		LoginFunc: func(ctx context.Context, username, password string) (*storage.AuthData, error) {
			return &storage.AuthData{Username: username, UserID: "user-1", AccessToken: "tok", ExpiresAt: expires.Unix()}, nil
		},
	}
	io, out := newIO("")
	c := New(Deps{IO: io, Session: mockSession})

	require.NoError(t, c.Run(ctx, "login", []string{"--username", "alice"}))
	calls := mockSession.LoginCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "correct horse battery", calls[0].Password)
	assert.Contains(t, out.String(), "User ID: user-1")

	mockSession.LoginFunc = func(ctx context.Context, username, password string) (*storage.AuthData, error) {
		return nil, errors.New("invalid credentials")
	}
	assert.ErrorContains(t, c.Run(ctx, "login", []string{"--username", "alice"}), "invalid credentials")
}

func TestLogout(t *testing.T) {
	mockSession := &SessionMock{LogoutFunc: func(ctx context.Context) error { return nil }}
	io, out := newIO("")
	c := New(Deps{IO: io, Session: mockSession})

	require.NoError(t, c.Run(context.Background(), "logout", nil))
	assert.Equal(t, 1, mockSession.LogoutCalls())
	assert.Contains(t, out.String(), "Logout successful")
}

func TestStatus(t *testing.T) {
	lastSync := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		auth    *storage.AuthData
		status  models.SyncStatus
		ws      string
		want    []string
		notWant []string
	}{
		{
			name:   "signed in and synced",
			auth:   &storage.AuthData{Username: "alice", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour).Unix()},
			status: models.SyncStatus{Online: true, LastSyncTime: lastSync},
			ws:     "W1",
			want:   []string{"Session: alice (u1)", "Workspace: W1", "Connection: online", "Last sync: 2024-05-01", "All data synchronized"},
		},
		{
			name:    "anonymous offline with pending",
			status:  models.SyncStatus{PendingChanges: true},
			want:    []string{"not authenticated", "Workspace: none", "Connection: offline", "Last sync: never", "Pending changes"},
			notWant: []string{"All data synchronized"},
		},
		{
			name: "expired token",
			auth: &storage.AuthData{Username: "alice", UserID: "u1", ExpiresAt: time.Now().Add(-time.Hour).Unix()},
			want: []string{"Token has expired"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSession := &SessionMock{CurrentFunc: func() (*storage.AuthData, error) {
				if tt.auth == nil {
					return nil, session.ErrNotAuthenticated
				}
				return tt.auth, nil
			}}
			mockSync := &SyncerMock{StatusFunc: func() models.SyncStatus { return tt.status }}
			io, out := newIO("")
			c := New(Deps{IO: io, Session: mockSession, Sync: mockSync, Workspace: workspace.NewStatic(tt.ws)})

			require.NoError(t, c.Run(context.Background(), "status", nil))
			for _, s := range tt.want {
				assert.Contains(t, out.String(), s)
			}
			for _, s := range tt.notWant {
				assert.NotContains(t, out.String(), s)
			}
		})
	}
}

// selectorMock запоминает выбранный workspace
type selectorMock struct {
	*workspace.Static
	selected string
}

func (s *selectorMock) Set(ws string) error {
	s.selected = ws
	s.Static.Set(ws)
	return nil
}

func TestWorkspace(t *testing.T) {
	io, out := newIO("")
	c := New(Deps{IO: io, Workspace: workspace.NewStatic("")})
	assert.ErrorIs(t, c.Run(context.Background(), "workspace", nil), errNoWorkspace)
	assert.ErrorContains(t, c.Run(context.Background(), "workspace", []string{"W2"}), "--workspace-file")

	sel := &selectorMock{Static: workspace.NewStatic("W1")}
	c = New(Deps{IO: io, Workspace: sel})
	require.NoError(t, c.Run(context.Background(), "workspace", nil))
	require.NoError(t, c.Run(context.Background(), "workspace", []string{"W2"}))
	assert.Equal(t, "W2", sel.selected)
	assert.Contains(t, out.String(), "W1\n")
	assert.Contains(t, out.String(), "Active workspace: W2")
}

func TestRun_UnknownCommand(t *testing.T) {
	io, out := newIO("")
	c := New(Deps{IO: io})

	err := c.Run(context.Background(), "frobnicate", nil)
	assert.ErrorContains(t, err, "unknown command: frobnicate")
	assert.Contains(t, out.String(), "Commands:")
}

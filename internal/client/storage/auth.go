package storage

import (
	"context"
)

//go:generate moq -out authstorage_mock.go . AuthStorage

// AuthStorage stores the current session of the client.
type AuthStorage interface {
	// SaveAuth stores session data, replacing the previous one
	SaveAuth(ctx context.Context, auth *AuthData) error

	// GetAuth retrieves stored session data
	// Returns ErrAuthNotFound if no session exists
	GetAuth(ctx context.Context) (*AuthData, error)

	// DeleteAuth removes stored session data (logout)
	DeleteAuth(ctx context.Context) error

	// IsAuthenticated checks if a session exists and its token is not expired
	IsAuthenticated(ctx context.Context) (bool, error)
}

// AuthData represents the session issued by the document server.
type AuthData struct {
	Username    string `json:"username"`
	UserID      string `json:"user_id"`
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"` // unix seconds
}

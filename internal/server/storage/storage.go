// Package storage defines the server's persistence contracts; sqlstore
// implements them over SQLite and PostgreSQL.
package storage

import (
	"context"
	"errors"

	"github.com/iudanet/plansync/internal/models"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrDocumentNotFound  = errors.New("document not found")
	// ErrUnsupportedDSN: the DSN scheme is neither sqlite nor postgres
	ErrUnsupportedDSN = errors.New("unsupported database DSN")
)

// UserStorage stores accounts. Usernames are unique (ErrUserAlreadyExists);
// lookups of unknown users return ErrUserNotFound.
type UserStorage interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
}

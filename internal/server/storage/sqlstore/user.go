package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iudanet/plansync/internal/models"
	"github.com/iudanet/plansync/internal/server/storage"
)

// CreateUser creates a new user in the storage
func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	query := s.rebind(`
		INSERT INTO users (id, username, password_hash, salt, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)

	now := s.now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.PasswordHash,
		user.Salt,
		user.CreatedAt.UnixNano(),
		user.UpdatedAt.UnixNano(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// GetUserByUsername retrieves user by username
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getUser(ctx, "username", username)
}

// GetUserByID retrieves user by ID
func (s *Storage) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	return s.getUser(ctx, "id", userID)
}

// column берется только из констант выше
func (s *Storage) getUser(ctx context.Context, column, value string) (*models.User, error) {
	query := s.rebind(`
		SELECT id, username, password_hash, salt, created_at, updated_at
		FROM users
		WHERE ` + column + ` = ?
	`)

	user := &models.User{}
	var createdAt, updatedAt int64
	err := s.db.QueryRowContext(ctx, query, value).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Salt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.CreatedAt = fromUnix(createdAt)
	user.UpdatedAt = fromUnix(updatedAt)
	return user, nil
}

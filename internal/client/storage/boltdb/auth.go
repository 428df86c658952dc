package boltdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/plansync/internal/client/storage"
)

var authKey = []byte("current")

// SaveAuth stores session data
func (s *Storage) SaveAuth(ctx context.Context, auth *storage.AuthData) error {
	data, err := json.Marshal(auth)
	if err != nil {
		return fmt.Errorf("failed to marshal auth data: %w", err)
	}

	err = s.update(bucketAuth, func(b *bbolt.Bucket) error {
		return b.Put(authKey, data)
	})
	if err != nil {
		return fmt.Errorf("failed to save auth data: %w", err)
	}
	return nil
}

// GetAuth retrieves stored session data
func (s *Storage) GetAuth(ctx context.Context) (*storage.AuthData, error) {
	var auth *storage.AuthData

	err := s.view(bucketAuth, func(b *bbolt.Bucket) error {
		data := b.Get(authKey)
		if data == nil {
			return storage.ErrAuthNotFound
		}

		auth = &storage.AuthData{}
		if err := json.Unmarshal(data, auth); err != nil {
			return fmt.Errorf("failed to unmarshal auth data: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return auth, nil
}

// DeleteAuth removes stored session data (logout)
func (s *Storage) DeleteAuth(ctx context.Context) error {
	return s.update(bucketAuth, func(b *bbolt.Bucket) error {
		if b.Get(authKey) == nil {
			return storage.ErrAuthNotFound
		}
		if err := b.Delete(authKey); err != nil {
			return fmt.Errorf("failed to delete auth data: %w", err)
		}
		return nil
	})
}

// IsAuthenticated checks if a non-expired session exists
func (s *Storage) IsAuthenticated(ctx context.Context) (bool, error) {
	auth, err := s.GetAuth(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrAuthNotFound) {
			return false, nil
		}
		return false, err
	}

	if time.Now().Unix() >= auth.ExpiresAt {
		return false, nil
	}

	return true, nil
}

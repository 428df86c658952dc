package collection

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/iudanet/plansync/internal/client/remote"
	clientsync "github.com/iudanet/plansync/internal/client/sync"
)

// DefaultRecoveryDelay is the wait between a permission grant and reopening the subscription.
const DefaultRecoveryDelay = 3 * time.Second

// AuthorizedUsersField lists the identities allowed to read a workspace.
const AuthorizedUsersField = "authorizedUsers"

// RetryPolicy bounds the permission self-heal of one binding.
type RetryPolicy struct {
	// Backoff returns the delay before reopening after attempt n (1-based)
	Backoff func(attempt int) time.Duration
	// MaxAttempts is the number of self-heal attempts per binding; 0 disables self-heal
	MaxAttempts int
}

// DefaultRetryPolicy allows one self-heal after DefaultRecoveryDelay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 1, Backoff: FixedBackoff(DefaultRecoveryDelay)}
}

// FixedBackoff waits d before every attempt.
func FixedBackoff(d time.Duration) func(int) time.Duration {
	return func(int) time.Duration { return d }
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	if p.Backoff == nil {
		return DefaultRecoveryDelay
	}
	if d := p.Backoff(attempt); d > 0 {
		return d
	}
	return 0
}

//go:generate moq -out authorizer_mock.go . Authorizer

// Authorizer grants identity access to workspace after a permission-denied error.
// Granting access automatically is a policy decision, so managers only self-heal
// when one is configured.
type Authorizer interface {
	Authorize(ctx context.Context, workspace, identity string) error
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(ctx context.Context, workspace, identity string) error

func (f AuthorizerFunc) Authorize(ctx context.Context, workspace, identity string) error {
	return f(ctx, workspace, identity)
}

// DocumentGrant adds the identity to the authorizedUsers list of the workspace document.
type DocumentGrant struct {
	Store    remote.Store
	Resolver clientsync.Resolver
}

// Authorize implements Authorizer. Already listed identities are left untouched.
func (g DocumentGrant) Authorize(ctx context.Context, workspace, identity string) error {
	path, err := g.Resolver.WorkspacePath(workspace)
	if err != nil {
		return fmt.Errorf("failed to resolve workspace %q: %w", workspace, err)
	}

	var users []any
	doc, err := g.Store.GetDocument(ctx, path)
	switch {
	case err == nil:
		users, _ = doc.Fields[AuthorizedUsersField].([]any)
	case errors.Is(err, remote.ErrNotFound):
	default:
		return fmt.Errorf("failed to read workspace %q: %w", workspace, err)
	}

	for _, u := range users {
		if s, ok := u.(string); ok && s == identity {
			return nil
		}
	}
	users = append(slices.Clone(users), identity)

	if err := g.Store.CreateOrMergeDocument(ctx, path, map[string]any{AuthorizedUsersField: users}); err != nil {
		return fmt.Errorf("failed to grant %q on workspace %q: %w", identity, workspace, err)
	}
	return nil
}

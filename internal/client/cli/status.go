package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/plansync/internal/client/session"
)

func (c *Cli) runStatus(ctx context.Context) error {
	c.io.Println("=== Status ===")
	c.io.Println()

	auth, err := c.session.Current()
	switch {
	case errors.Is(err, session.ErrNotAuthenticated):
		c.io.Println("Session: not authenticated (saves stay local)")
		c.io.Println("Run 'plansync login' to authenticate.")
	case err != nil:
		return fmt.Errorf("failed to check authentication: %w", err)
	default:
		expiresAt := time.Unix(auth.ExpiresAt, 0)
		c.io.Printf("Session: %s (%s)\n", auth.Username, auth.UserID)
		if remaining := time.Until(expiresAt); remaining > 0 {
			c.io.Printf("Token expires: %s (in %s)\n", expiresAt.Format(time.RFC3339), remaining.Round(time.Second))
		} else {
			c.io.Println("⚠️  Token has expired. Please login again.")
		}
	}

	if ws := c.activeWorkspace(); ws != "" {
		c.io.Printf("Workspace: %s\n", ws)
	} else {
		c.io.Println("Workspace: none")
	}

	status := c.sync.Status()
	c.io.Println()
	if status.Online {
		c.io.Println("Connection: online")
	} else {
		c.io.Println("Connection: offline")
	}
	if status.LastSyncTime.IsZero() {
		c.io.Println("Last sync: never")
	} else {
		c.io.Printf("Last sync: %s\n", status.LastSyncTime.Format(time.RFC3339))
	}
	if status.PendingChanges {
		c.io.Println("⚠️  Pending changes are waiting to be synchronized.")
		c.io.Println("Run 'plansync sync' to replay them.")
	} else {
		c.io.Println("✓ All data synchronized with server")
	}
	return nil
}

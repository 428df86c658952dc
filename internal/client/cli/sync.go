package cli

import (
	"context"
	"errors"
	"fmt"

	clientsync "github.com/iudanet/plansync/internal/client/sync"
)

func (c *Cli) runSync(ctx context.Context) error {
	c.io.Println("=== Synchronization ===")

	result, err := c.sync.SyncPending(ctx)
	if err != nil {
		if errors.Is(err, clientsync.ErrOffline) {
			return fmt.Errorf("server is unreachable, pending writes are kept: %w", err)
		}
		return fmt.Errorf("synchronization failed: %w", err)
	}

	c.io.Println()
	c.io.Printf("Replayed: %d\n", result.Replayed)
	if result.Skipped > 0 {
		c.io.Printf("Skipped (superseded): %d\n", result.Skipped)
	}
	if result.Failed > 0 {
		c.io.Printf("Failed (still queued): %d\n", result.Failed)
		return fmt.Errorf("%d pending write(s) could not be replayed", result.Failed)
	}

	c.io.Println("✓ Synchronization completed successfully!")
	return nil
}

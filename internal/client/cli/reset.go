package cli

import (
	"context"
	"errors"
	"fmt"
)

var errResetNotConfirmed = errors.New("reset discards unsynced writes; rerun with --yes")

func (c *Cli) runReset(ctx context.Context, args []string) error {
	fs := c.flagSet("reset")
	yes := fs.Bool("yes", false, "Confirm that pending writes may be lost")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !*yes {
		return errResetNotConfirmed
	}

	c.io.Println("=== Reset local data ===")

	pending := c.sync.Status().PendingChanges
	n, err := c.sync.Reset(ctx)
	if err != nil {
		return fmt.Errorf("reset failed: %w", err)
	}

	c.io.Printf("Cached records removed: %d\n", n)
	if pending {
		c.io.Println("⚠️  Unsynced writes were discarded.")
	}
	c.io.Println("✓ Local data reset. The session is kept.")
	return nil
}

package cli

import (
	"context"
	"fmt"

	"github.com/iudanet/plansync/internal/client/storage"
)

// runWatch prints every committed change of a record until ctx is cancelled.
func (c *Cli) runWatch(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: watch KEY")
	}
	key := args[0]

	changes := make(chan []byte, 16)
	cancel := c.sync.Watch(key, func(ch storage.Change) {
		select {
		case changes <- ch.Value:
		default:
			// медленный терминал не должен блокировать запись в кэш
		}
	})
	defer cancel()

	c.io.Printf("Watching %q, press Ctrl+C to stop\n", key)
	for {
		select {
		case <-ctx.Done():
			return nil
		case value := <-changes:
			if value == nil {
				c.io.Printf("%s: deleted\n", key)
				continue
			}
			c.io.Printf("%s: %s\n", key, value)
		}
	}
}

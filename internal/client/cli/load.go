package cli

import (
	"context"
	"encoding/json"
	"fmt"

	clientsync "github.com/iudanet/plansync/internal/client/sync"
)

func (c *Cli) runLoad(ctx context.Context, args []string) error {
	fs := c.flagSet("load")
	collection := fs.String("collection", "", "Logical collection")
	path := fs.String("path", "", "Explicit document path")
	ws := fs.String("workspace", "", "Workspace override")
	local := fs.Bool("local", false, "Read the local cache only")
	strict := fs.Bool("no-fallback", false, "Do not fall back to the cache when the server has no copy")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: load [flags] KEY")
	}
	key := fs.Arg(0)

	opts := clientsync.LoadOptions{
		Collection:      *collection,
		Workspace:       *ws,
		LocalOnly:       *local,
		NoLocalFallback: *strict,
	}
	if *path != "" {
		p, err := parsePath(*path)
		if err != nil {
			return err
		}
		opts.Path = p
	}

	var value any
	found, err := c.sync.Load(ctx, key, &value, opts)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("record %q not found", key)
	}

	out, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format %q: %w", key, err)
	}
	c.io.Println(string(out))
	return nil
}

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	clientsync "github.com/iudanet/plansync/internal/client/sync"
	"github.com/iudanet/plansync/internal/models"
)

const defaultWaitTimeout = 30 * time.Second

func (c *Cli) runSave(ctx context.Context, args []string) error {
	fs := c.flagSet("save")
	collection := fs.String("collection", "", "Logical collection (resolved under the workspace or the user)")
	path := fs.String("path", "", "Explicit document path, wins over --collection")
	ws := fs.String("workspace", "", "Workspace override")
	local := fs.Bool("local", false, "Save to the local cache only")
	wait := fs.Bool("wait", true, "Wait until the remote write settles")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: save [flags] KEY JSON")
	}
	key, raw := fs.Arg(0), fs.Arg(1)

	var data any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return fmt.Errorf("invalid JSON value: %w", err)
	}

	opts := clientsync.SaveOptions{Collection: *collection, Workspace: *ws, LocalOnly: *local}
	if *path != "" {
		p, err := parsePath(*path)
		if err != nil {
			return err
		}
		opts.Path = p
	}

	receipt, err := c.sync.Save(ctx, key, data, opts)
	if err != nil {
		return err
	}
	c.io.Printf("✓ Saved %q locally\n", key)
	if !*wait {
		return nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, defaultWaitTimeout)
	defer cancel()
	outcome, err := receipt.Wait(waitCtx)
	if err != nil {
		return fmt.Errorf("failed to wait for remote write: %w", err)
	}

	switch outcome {
	case clientsync.OutcomeSynced:
		c.io.Println("✓ Synced with server")
	case clientsync.OutcomeQueued:
		c.io.Printf("⚠️  Queued for later sync: %v\n", receipt.Cause())
	case clientsync.OutcomeSuperseded:
		c.io.Println("Superseded by a newer save")
	default:
		c.io.Println("Kept local only")
	}
	return nil
}

// parsePath accepts a document path. A collection path is passed through so the
// orchestrator reports it and keeps the save local.
func parsePath(s string) (models.Path, error) {
	if doc, err := models.ParseDocumentPath(s); err == nil {
		return doc, nil
	}
	col, err := models.ParseCollectionPath(s)
	if err != nil {
		return nil, fmt.Errorf("invalid path %q: %w", s, err)
	}
	return col, nil
}

package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/iudanet/plansync/internal/client/collection"
	"github.com/iudanet/plansync/internal/models"
)

func (c *Cli) runCollection(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: collection NAME list|add|update|remove [ARGS]")
	}
	name, action, rest := args[0], args[1], args[2:]

	col, err := c.collections.Open(ctx, name)
	if err != nil {
		return err
	}
	defer col.Close()

	switch action {
	case "list":
		return c.listItems(name, col)

	case "add":
		if len(rest) != 1 {
			return fmt.Errorf("usage: collection NAME add JSON")
		}
		var entity models.Entity
		if err := json.Unmarshal([]byte(rest[0]), &entity); err != nil {
			return fmt.Errorf("invalid item JSON: %w", err)
		}
		item, err := col.AddItem(ctx, entity)
		if err != nil {
			return err
		}
		if models.IsTempID(item.ID()) {
			c.io.Printf("✓ Added %s locally, it will be created on the server during sync\n", item.ID())
		} else {
			c.io.Printf("✓ Added %s\n", item.ID())
		}
		return nil

	case "update":
		if len(rest) != 2 {
			return fmt.Errorf("usage: collection NAME update ID JSON")
		}
		var patch map[string]any
		if err := json.Unmarshal([]byte(rest[1]), &patch); err != nil {
			return fmt.Errorf("invalid patch JSON: %w", err)
		}
		if err := col.UpdateItem(ctx, rest[0], patch); err != nil {
			return err
		}
		c.io.Printf("✓ Updated %s\n", rest[0])
		return nil

	case "remove":
		if len(rest) != 1 {
			return fmt.Errorf("usage: collection NAME remove ID")
		}
		if err := col.RemoveItem(ctx, rest[0]); err != nil {
			return err
		}
		c.io.Printf("✓ Removed %s\n", rest[0])
		return nil

	default:
		return fmt.Errorf("unknown collection action: %s", action)
	}
}

func (c *Cli) listItems(name string, col Collection) error {
	items := col.Items()

	c.io.Printf("=== %s (%d) ===\n", name, len(items))
	if col.State() == collection.StateDegraded {
		c.io.Printf("⚠️  Showing cached data: %v\n", col.Err())
	}
	for _, item := range items {
		fields, err := json.Marshal(item.Fields())
		if err != nil {
			return fmt.Errorf("failed to format item %s: %w", item.ID(), err)
		}
		c.io.Printf("%s  %s\n", item.ID(), fields)
	}
	return nil
}

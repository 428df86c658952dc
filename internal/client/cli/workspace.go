package cli

import "fmt"

func (c *Cli) runWorkspace(args []string) error {
	if len(args) == 0 {
		if ws := c.activeWorkspace(); ws != "" {
			c.io.Println(ws)
			return nil
		}
		return errNoWorkspace
	}

	selector, ok := c.workspace.(WorkspaceSelector)
	if !ok {
		return fmt.Errorf("the active workspace is fixed by --workspace; use --workspace-file to switch it")
	}
	if err := selector.Set(args[0]); err != nil {
		return fmt.Errorf("failed to select workspace: %w", err)
	}
	c.io.Printf("✓ Active workspace: %s\n", args[0])
	return nil
}

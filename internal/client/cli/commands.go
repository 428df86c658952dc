package cli

import (
	"context"
	"flag"
	"fmt"
)

// Run executes command with its arguments (without the command name).
func (c *Cli) Run(ctx context.Context, command string, args []string) error {
	switch command {
	case "register":
		return c.runRegister(ctx, args)
	case "login":
		return c.runLogin(ctx, args)
	case "logout":
		return c.runLogout(ctx)
	case "status":
		return c.runStatus(ctx)
	case "workspace":
		return c.runWorkspace(args)
	case "save":
		return c.runSave(ctx, args)
	case "load":
		return c.runLoad(ctx, args)
	case "sync":
		return c.runSync(ctx)
	case "reset":
		return c.runReset(ctx, args)
	case "watch":
		return c.runWatch(ctx, args)
	case "collection":
		return c.runCollection(ctx, args)
	case "help":
		PrintUsage(c.io)
		return nil
	default:
		PrintUsage(c.io)
		return fmt.Errorf("unknown command: %s", command)
	}
}

// flagSet creates a flag set that reports errors to the CLI output.
func (c *Cli) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.io)
	return fs
}

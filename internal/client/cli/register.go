package cli

import (
	"context"
	"fmt"

	"github.com/iudanet/plansync/internal/validation"
)

func (c *Cli) runRegister(ctx context.Context, args []string) error {
	fs := c.flagSet("register")
	username := fs.String("username", "", "Username")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c.io.Println("=== Registration ===")
	c.io.Println()

	name, err := c.readUsername(*username)
	if err != nil {
		return err
	}

	password, interactive, err := c.getPassword("Password (min 12 chars): ")
	if err != nil {
		return err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return fmt.Errorf("invalid password: %w", err)
	}
	if interactive {
		// Подтверждение пароля
		confirm, err := c.io.ReadPassword("Confirm password: ")
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		if password != confirm {
			return fmt.Errorf("passwords do not match")
		}
	}

	c.io.Println("Registering user...")
	userID, err := c.session.Register(ctx, name, password)
	if err != nil {
		return err
	}

	c.io.Println()
	c.io.Println("✓ Registration successful!")
	c.io.Printf("User ID: %s\n", userID)
	c.io.Printf("Username: %s\n", name)
	c.io.Println()
	c.io.Println("Please run 'plansync login' to start syncing.")
	return nil
}

// readUsername uses the flag value or asks for it.
func (c *Cli) readUsername(fromFlag string) (string, error) {
	username := fromFlag
	if username == "" {
		var err error
		username, err = c.io.ReadInput("Username: ")
		if err != nil {
			return "", fmt.Errorf("failed to read username: %w", err)
		}
	}
	if err := validation.ValidateUsername(username); err != nil {
		return "", fmt.Errorf("invalid username: %w", err)
	}
	return username, nil
}

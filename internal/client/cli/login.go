package cli

import (
	"context"
	"time"
)

func (c *Cli) runLogin(ctx context.Context, args []string) error {
	fs := c.flagSet("login")
	username := fs.String("username", "", "Username")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c.io.Println("=== Login ===")
	c.io.Println()

	name, err := c.readUsername(*username)
	if err != nil {
		return err
	}
	password, _, err := c.getPassword("Password: ")
	if err != nil {
		return err
	}

	c.io.Println("Authenticating...")
	auth, err := c.session.Login(ctx, name, password)
	if err != nil {
		return err
	}

	c.io.Println()
	c.io.Println("✓ Login successful!")
	c.io.Printf("Username: %s\n", auth.Username)
	c.io.Printf("User ID: %s\n", auth.UserID)
	c.io.Printf("Token expires: %s\n", time.Unix(auth.ExpiresAt, 0).Format(time.RFC3339))
	return nil
}

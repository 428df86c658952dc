// Package cli implements the commands of the plansync client.
package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/iudanet/plansync/internal/client/iocli"
	"github.com/iudanet/plansync/internal/client/workspace"
)

// PasswordEnv is the environment variable checked first for the account password.
const PasswordEnv = "PLANSYNC_PASSWORD"

var errNoWorkspace = errors.New("no active workspace; use 'plansync workspace ID' or --workspace")

// PasswordSources are the non-interactive password sources.
type PasswordSources struct {
	FromFile string
	FromArgs string
}

// Deps are the services the commands run against.
type Deps struct {
	IO          iocli.IO
	Session     Session
	Sync        Syncer
	Collections Collections
	Workspace   workspace.Source
	Passwords   PasswordSources
}

type Cli struct {
	io          iocli.IO
	session     Session
	sync        Syncer
	collections Collections
	workspace   workspace.Source
	passwords   PasswordSources
}

func New(deps Deps) *Cli {
	if deps.IO == nil {
		deps.IO = iocli.NewStdio()
	}
	return &Cli{
		io:          deps.IO,
		session:     deps.Session,
		sync:        deps.Sync,
		collections: deps.Collections,
		workspace:   deps.Workspace,
		passwords:   deps.Passwords,
	}
}

// getPassword retrieves the password with priority:
// 1. Environment variable PLANSYNC_PASSWORD
// 2. File given by --password-file
// 3. Command-line parameter --password
// 4. Interactive prompt (fallback)
func (c *Cli) getPassword(prompt string) (password string, interactive bool, err error) {
	// Priority 1: Environment variable
	if envPassword := os.Getenv(PasswordEnv); envPassword != "" {
		return envPassword, false, nil
	}

	// Priority 2: File
	if c.passwords.FromFile != "" {
		content, err := os.ReadFile(c.passwords.FromFile)
		if err != nil {
			return "", false, fmt.Errorf("failed to read password file: %w", err)
		}
		// Убираем trailing newline/whitespace
		password := strings.TrimSpace(string(content))
		if password == "" {
			return "", false, fmt.Errorf("password file is empty")
		}
		return password, false, nil
	}

	// Priority 3: CLI parameter
	if c.passwords.FromArgs != "" {
		return c.passwords.FromArgs, false, nil
	}

	// Priority 4: Interactive prompt (fallback)
	password, err = c.io.ReadPassword(prompt)
	if err != nil {
		return "", true, fmt.Errorf("failed to read password: %w", err)
	}
	if password == "" {
		return "", true, fmt.Errorf("password cannot be empty")
	}
	return password, true, nil
}

func (c *Cli) activeWorkspace() string {
	if c.workspace == nil {
		return ""
	}
	return c.workspace.Current()
}

func PrintUsage(io iocli.IO) {
	io.Println("plansync client")
	io.Println()
	io.Println("Usage:")
	io.Println("  plansync [OPTIONS] COMMAND [ARGS]")
	io.Println()
	io.Println("Options:")
	io.Println("  --version                Show version information")
	io.Println("  --server URL             Server URL (env PLANSYNC_SERVER, default: http://localhost:8080)")
	io.Println("  --db PATH                Local database (env PLANSYNC_DB, default: plansync-client.db)")
	io.Println("  --workspace ID           Active workspace (env PLANSYNC_WORKSPACE)")
	io.Println("  --workspace-file PATH    File holding the active workspace, shared between processes")
	io.Println("  --offline                Start offline: saves are queued until 'sync'")
	io.Println("  --password PASSWORD      Account password (not recommended, use env var or file)")
	io.Println("  --password-file PATH     File containing the account password")
	io.Println()
	io.Println("Commands:")
	io.Println("  register                          Register new user")
	io.Println("  login                             Login to server")
	io.Println("  logout                            Delete the local session")
	io.Println("  status                            Show session and sync status")
	io.Println("  workspace [ID]                    Show or select the active workspace")
	io.Println("  save [flags] KEY JSON             Save a record locally and sync it")
	io.Println("  load [flags] KEY                  Load a record, remote copy first")
	io.Println("  sync                              Replay pending writes")
	io.Println("  reset --yes                       Drop the local cache and pending writes")
	io.Println("  watch KEY                         Print changes of a record until interrupted")
	io.Println("  collection NAME list              List the collection of the active workspace")
	io.Println("  collection NAME add JSON          Add an item")
	io.Println("  collection NAME update ID JSON    Merge fields into an item")
	io.Println("  collection NAME remove ID         Remove an item")
	io.Println()
	io.Println("Examples:")
	io.Println("  export PLANSYNC_PASSWORD='correct horse battery'")
	io.Println("  plansync login")
	io.Println("  plansync workspace W123")
	io.Println("  plansync save --collection budget summary '{\"total\":1200}'")
	io.Println("  plansync collection guests add '{\"name\":\"Ana\",\"status\":\"pending\"}'")
}

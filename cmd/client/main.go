package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iudanet/plansync/internal/client/api"
	"github.com/iudanet/plansync/internal/client/cli"
	"github.com/iudanet/plansync/internal/client/collection"
	"github.com/iudanet/plansync/internal/client/iocli"
	"github.com/iudanet/plansync/internal/client/netstate"
	"github.com/iudanet/plansync/internal/client/notify"
	"github.com/iudanet/plansync/internal/client/queue"
	"github.com/iudanet/plansync/internal/client/session"
	"github.com/iudanet/plansync/internal/client/storage/boltdb"
	clientsync "github.com/iudanet/plansync/internal/client/sync"
	"github.com/iudanet/plansync/internal/client/workspace"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Глобальные флаги
	showVersion := flag.Bool("version", false, "Show version information")
	serverURL := flag.String("server", envOr("PLANSYNC_SERVER", "http://localhost:8080"), "Server URL")
	dbPath := flag.String("db", envOr("PLANSYNC_DB", "plansync-client.db"), "Path to local database")
	wsID := flag.String("workspace", os.Getenv("PLANSYNC_WORKSPACE"), "Active workspace")
	wsFile := flag.String("workspace-file", "", "File holding the active workspace")
	offline := flag.Bool("offline", false, "Start offline, saves are queued")
	password := flag.String("password", "", "Account password (not recommended)")
	passwordFile := flag.String("password-file", "", "File containing the account password")
	verbose := flag.Bool("verbose", false, "Debug logging")

	flag.Parse()

	stdio := iocli.NewStdio()
	if *showVersion {
		printVersion(stdio)
		return 0
	}

	args := flag.Args()
	if len(args) == 0 {
		cli.PrintUsage(stdio)
		return 1
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Открываем BoltDB storage
	store, err := boltdb.New(ctx, *dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		return 1
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	var sess *session.Manager
	apiClient := api.NewClient(*serverURL,
		api.WithLogger(logger),
		api.WithToken(func() string { return sess.Token() }),
	)
	sess = session.NewManager(apiClient, store, logger)
	if err := sess.Restore(ctx); err != nil {
		logger.Warn("Failed to restore session", "error", err)
	}

	var source workspace.Source = workspace.NewStatic(*wsID)
	if *wsFile != "" {
		fileSource, err := workspace.NewFileSource(*wsFile, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open workspace file: %v\n", err)
			return 1
		}
		defer func() { _ = fileSource.Close() }()
		source = fileSource
	}

	notes := notify.New(notify.Options{Logger: logger})

	orch, err := clientsync.New(clientsync.Config{StartOffline: *offline}, clientsync.Deps{
		Cache:     store,
		Metadata:  store,
		Queue:     queue.New(store, logger),
		Remote:    apiClient,
		Session:   sess,
		Workspace: source,
		Notifier:  notes,
		Logger:    logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start sync: %v\n", err)
		return 1
	}
	defer orch.Close()

	c := cli.New(cli.Deps{
		IO:      stdio,
		Session: sess,
		Sync:    orch,
		Collections: &cli.ManagerOpener{
			Sync:       orch,
			Workspace:  source,
			Authorizer: apiClient,
			Migrator:   collection.NewMigrator(nil, logger),
			Notifier:   notes,
			Logger:     logger,
		},
		Workspace: source,
		Passwords: cli.PasswordSources{FromFile: *passwordFile, FromArgs: *password},
	})
	defer c.FollowNotifications(notes)()

	if !*offline {
		monitor := netstate.New(apiClient, orch, netstate.Config{Interval: 10 * time.Second, FailureThreshold: 1}, logger)
		monitor.Check(ctx)

		monitorCtx, cancelMonitor := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			defer close(done)
			monitor.Run(monitorCtx)
		}()
		// монитор останавливается до закрытия оркестратора
		defer func() {
			cancelMonitor()
			<-done
		}()
	}

	if err := c.Run(ctx, args[0], args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func printVersion(io iocli.IO) {
	io.Printf("plansync client\n")
	io.Printf("Version:    %s\n", Version)
	io.Printf("Build Date: %s\n", BuildDate)
	io.Printf("Git Commit: %s\n", GitCommit)
}

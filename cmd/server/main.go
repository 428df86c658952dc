package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/iudanet/plansync/internal/server"
	"github.com/iudanet/plansync/internal/server/config"
	"github.com/iudanet/plansync/internal/server/jwt"
	"github.com/iudanet/plansync/internal/server/schema"
	"github.com/iudanet/plansync/internal/server/storage/sqlstore"
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
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load(os.Args[1:], os.Getenv, logger)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		return 2
	}
	if cfg.ShowVersion {
		printVersion()
		return 0
	}

	if cfg.Verbose {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := sqlstore.Open(ctx, cfg.DSN)
	if err != nil {
		logger.Error("Failed to open storage", "error", err)
		return 1
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage", "error", err)
		}
	}()

	schemas, err := schema.Default()
	if err != nil {
		logger.Error("Failed to load schemas", "error", err)
		return 1
	}
	if cfg.SchemaDir != "" {
		if err := schemas.LoadDir(cfg.SchemaDir); err != nil {
			logger.Error("Failed to load schema dir", "dir", cfg.SchemaDir, "error", err)
			return 1
		}
	}
	logger.Info("Schemas loaded", "collections", schemas.Collections())

	srv := server.New(server.Options{
		Store:         store,
		Tokens:        jwt.NewService(cfg.JWTSecret, cfg.AccessTTL),
		Schemas:       schemas,
		Logger:        logger,
		WorkspaceRoot: cfg.WorkspaceRoot,
		RateLimit:     cfg.RateLimit,
		RateWindow:    cfg.RateWindow,
	})
	defer srv.Close()

	logger.Info("plansync server starting", "version", Version, "addr", cfg.Addr)
	if err := srv.ListenAndServe(ctx, cfg.Addr); err != nil {
		logger.Error("Server stopped with error", "error", err)
		return 1
	}
	logger.Info("Server stopped")
	return 0
}

func printVersion() {
	fmt.Printf("plansync server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}

package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"
)

// ErrMissingSecret is returned when no JWT secret is configured.
var ErrMissingSecret = errors.New("jwt secret is required (PLANSYNC_JWT_SECRET or --jwt-secret)")

// Defaults
const (
	DefaultAddr          = ":8080"
	DefaultDSN           = "sqlite://plansync-server.db"
	DefaultAccessTTL     = 24 * time.Hour
	DefaultRateLimit     = 20
	DefaultRateWindow    = time.Minute
	DefaultWorkspaceRoot = "weddings"
)

// Config holds the server settings. Flags override environment variables.
type Config struct {
	Addr          string
	DSN           string
	JWTSecret     string
	WorkspaceRoot string
	SchemaDir     string
	AccessTTL     time.Duration
	RateWindow    time.Duration
	RateLimit     int
	Verbose       bool
	ShowVersion   bool
}

// Load reads the environment through getenv and then parses args.
func Load(args []string, getenv func(string) string, logger *slog.Logger) (*Config, error) {
	if logger == nil {
		logger = slog.Default()
	}
	env := envReader{getenv: getenv, logger: logger}

	cfg := &Config{}
	fs := flag.NewFlagSet("plansync-server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&cfg.Addr, "addr", env.str("PLANSYNC_ADDR", DefaultAddr), "HTTP listen address")
	fs.StringVar(&cfg.DSN, "dsn", env.str("PLANSYNC_DSN", DefaultDSN), "Database DSN (sqlite://path or postgres://...)")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", env.str("PLANSYNC_JWT_SECRET", ""), "Secret for signing access tokens")
	fs.DurationVar(&cfg.AccessTTL, "access-ttl", env.duration("PLANSYNC_ACCESS_TTL", DefaultAccessTTL), "Access token lifetime")
	fs.IntVar(&cfg.RateLimit, "rate-limit", env.integer("PLANSYNC_RATE_LIMIT", DefaultRateLimit), "Auth requests per window and client")
	fs.DurationVar(&cfg.RateWindow, "rate-window", env.duration("PLANSYNC_RATE_WINDOW", DefaultRateWindow), "Rate limit window")
	fs.StringVar(&cfg.WorkspaceRoot, "workspace-root", env.str("PLANSYNC_WORKSPACE_ROOT", DefaultWorkspaceRoot), "Root collection holding workspace documents")
	fs.StringVar(&cfg.SchemaDir, "schema-dir", env.str("PLANSYNC_SCHEMA_DIR", ""), "Directory with extra <collection>.json schemas")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "Debug logging")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}
	if cfg.ShowVersion {
		return cfg, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return ErrMissingSecret
	}
	if c.AccessTTL <= 0 {
		return fmt.Errorf("access ttl must be positive, got %s", c.AccessTTL)
	}
	if c.RateLimit <= 0 || c.RateWindow <= 0 {
		return fmt.Errorf("rate limit must be positive, got %d per %s", c.RateLimit, c.RateWindow)
	}
	if c.WorkspaceRoot == "" {
		return fmt.Errorf("workspace root cannot be empty")
	}
	return nil
}

// envReader читает переменные окружения, неверные значения заменяются значением по умолчанию
type envReader struct {
	getenv func(string) string
	logger *slog.Logger
}

func (e envReader) str(name, fallback string) string {
	if v := e.getenv(name); v != "" {
		return v
	}
	return fallback
}

func (e envReader) integer(name string, fallback int) int {
	raw := e.getenv(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		e.logger.Warn("Invalid integer in environment, using fallback", "name", name, "value", raw, "fallback", fallback)
		return fallback
	}
	return value
}

func (e envReader) duration(name string, fallback time.Duration) time.Duration {
	raw := e.getenv(name)
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		e.logger.Warn("Invalid duration in environment, using fallback", "name", name, "value", raw, "fallback", fallback.String())
		return fallback
	}
	return value
}

package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/iudanet/plansync/internal/server/storage"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// goose хранит dialect и FS глобально
var migrateMu sync.Mutex

type dialect struct {
	driver    string
	goose     string
	forUpdate string
	numbered  bool
}

var (
	sqliteDialect   = dialect{driver: "sqlite", goose: "sqlite3"}
	postgresDialect = dialect{driver: "postgres", goose: "postgres", forUpdate: " FOR UPDATE", numbered: true}
)

// Storage implements storage.UserStorage and storage.DocumentStorage over database/sql.
type Storage struct {
	db      *sql.DB
	now     func() time.Time
	dialect dialect
}

var (
	_ storage.UserStorage     = (*Storage)(nil)
	_ storage.DocumentStorage = (*Storage)(nil)
)

// Open picks the backend by DSN scheme:
// "sqlite://path", "postgres://..." or "postgresql://...". A bare path opens SQLite.
func Open(ctx context.Context, dsn string) (*Storage, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return NewPostgres(ctx, dsn)
	case strings.HasPrefix(dsn, "sqlite://"):
		return NewSQLite(ctx, strings.TrimPrefix(dsn, "sqlite://"))
	case strings.Contains(dsn, "://"):
		return nil, fmt.Errorf("%w: %q", storage.ErrUnsupportedDSN, dsn)
	case dsn == "":
		return nil, fmt.Errorf("%w: empty", storage.ErrUnsupportedDSN)
	}
	return NewSQLite(ctx, dsn)
}

// NewSQLite opens a SQLite database file.
// Use ":memory:" for in-memory database (useful for testing)
func NewSQLite(ctx context.Context, dbPath string) (*Storage, error) {
	db, err := sql.Open(sqliteDialect.driver, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite с WAL mode может поддерживать несколько читателей, но только одного писателя
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	return newStorage(ctx, db, sqliteDialect)
}

// NewPostgres opens a PostgreSQL database through lib/pq.
func NewPostgres(ctx context.Context, dsn string) (*Storage, error) {
	db, err := sql.Open(postgresDialect.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return newStorage(ctx, db, postgresDialect)
}

func newStorage(ctx context.Context, db *sql.DB, d dialect) (*Storage, error) {
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Storage{db: db, dialect: d, now: time.Now}
	if err := s.runMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// runMigrations выполняет миграции из embedded FS
func (s *Storage) runMigrations() error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	if err := goose.SetDialect(s.dialect.goose); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	goose.SetBaseFS(embedMigrations)

	if err := goose.Up(s.db, "migrations"); err != nil {
		return fmt.Errorf("goose up failed: %w", err)
	}
	return nil
}

// rebind переводит плейсхолдеры "?" в "$n" для PostgreSQL
func (s *Storage) rebind(query string) string {
	if !s.dialect.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func fromUnix(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

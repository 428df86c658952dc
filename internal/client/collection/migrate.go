package collection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/plansync/internal/client/remote"
	clientsync "github.com/iudanet/plansync/internal/client/sync"
	"github.com/iudanet/plansync/internal/models"
)

// LegacySource is a location that held records of a collection before they moved
// under the workspace document. Exactly one of Path and Field is set.
type LegacySource struct {
	// Path returns the legacy collection of identity
	Path func(identity string) (models.CollectionPath, error)
	// Normalize maps an embedded record to the current shape; nil keeps it as is
	Normalize func(raw map[string]any) map[string]any
	// Field names an array of records embedded in the workspace document
	Field string
}

// identityCollection builds the source {root}/{identity}/{name}.
func identityCollection(root, name string) LegacySource {
	return LegacySource{Path: func(identity string) (models.CollectionPath, error) {
		return models.Collection(root, identity, name)
	}}
}

// DefaultSources lists where guests and suppliers used to be stored.
func DefaultSources() map[string][]LegacySource {
	return map[string][]LegacySource{
		"guests": {
			identityCollection("users", "guests"),
			identityCollection("users", "userGuests"),
			{Field: "guests", Normalize: normalizeGuest},
		},
		"suppliers": {
			identityCollection("usuarios", "proveedores"),
			identityCollection("users", "suppliers"),
			{Field: "suppliers", Normalize: normalizeSupplier},
		},
	}
}

// Migrator copies legacy records into workspace collections once per process
// for every (collection, workspace) pair.
type Migrator struct {
	sources map[string][]LegacySource
	done    map[string]bool
	logger  *slog.Logger
	now     func() time.Time
	mu      sync.Mutex
}

// NewMigrator creates a migrator; nil sources means DefaultSources.
func NewMigrator(sources map[string][]LegacySource, logger *slog.Logger) *Migrator {
	if sources == nil {
		sources = DefaultSources()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Migrator{
		sources: sources,
		done:    make(map[string]bool),
		logger:  logger,
		now:     time.Now,
	}
}

// Run migrates collection of workspace unless it already ran in this process.
// A failed run may be retried.
func (g *Migrator) Run(ctx context.Context, store remote.Store, resolver clientsync.Resolver, collection, workspace, identity string) (int, error) {
	if len(g.sources[collection]) == 0 || identity == "" {
		return 0, nil
	}

	key := collection + "|" + workspace
	g.mu.Lock()
	if g.done[key] {
		g.mu.Unlock()
		return 0, nil
	}
	g.done[key] = true
	g.mu.Unlock()

	n, err := g.Migrate(ctx, store, resolver, collection, workspace, identity)
	if err != nil {
		g.mu.Lock()
		delete(g.done, key)
		g.mu.Unlock()
	}
	return n, err
}

// Migrate copies every legacy record whose id is absent from the destination in one batch.
// It reads the destination before writing, so running it again copies nothing.
func (g *Migrator) Migrate(ctx context.Context, store remote.Store, resolver clientsync.Resolver, collection, workspace, identity string) (int, error) {
	dest, err := resolver.CollectionPath(workspace, collection)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve destination: %w", err)
	}

	existing, err := store.ListDocuments(ctx, dest)
	if err != nil {
		return 0, fmt.Errorf("failed to list %s: %w", dest, err)
	}
	seen := make(map[string]bool, len(existing))
	for _, d := range existing {
		seen[d.ID()] = true
	}

	stamp := g.now().UTC().Format(time.RFC3339Nano)
	batch := store.NewBatch()
	writes := 0

	add := func(id string, fields map[string]any) {
		if id == "" || seen[id] {
			return
		}
		path, err := dest.Doc(id)
		if err != nil {
			g.logger.Warn("Skipping legacy record with invalid id", "id", id, "error", err)
			return
		}
		seen[id] = true
		fields["migratedAt"] = stamp
		batch.Set(path, fields, true)
		writes++
	}

	for _, src := range g.sources[collection] {
		switch {
		case src.Path != nil:
			legacy, err := src.Path(identity)
			if err != nil {
				g.logger.Warn("Skipping legacy source", "error", err)
				continue
			}
			docs, err := store.ListDocuments(ctx, legacy)
			if err != nil {
				// источник может быть недоступен по правилам доступа, это не повод прерывать миграцию
				g.logger.Warn("Failed to read legacy collection", "path", legacy.String(), "error", err)
				continue
			}
			for _, d := range docs {
				add(d.ID(), d.Entity().Fields())
			}

		case src.Field != "":
			wsPath, err := resolver.WorkspacePath(workspace)
			if err != nil {
				return 0, fmt.Errorf("failed to resolve workspace: %w", err)
			}
			doc, err := store.GetDocument(ctx, wsPath)
			if err != nil {
				if !errors.Is(err, remote.ErrNotFound) {
					g.logger.Warn("Failed to read workspace document", "path", wsPath.String(), "error", err)
				}
				continue
			}
			embedded, _ := doc.Fields[src.Field].([]any)
			for idx, raw := range embedded {
				record, ok := raw.(map[string]any)
				if !ok {
					continue
				}
				id := models.Entity(record).ID()
				if id == "" {
					id = fmt.Sprintf("legacy-%d", idx)
				}
				var fields map[string]any
				if src.Normalize != nil {
					fields = src.Normalize(record)
				} else {
					fields = models.Entity(record).Fields()
				}
				fields["createdAt"] = stamp
				add(id, fields)
			}
		}
	}

	if writes == 0 {
		return 0, nil
	}
	if err := batch.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit migration batch: %w", err)
	}
	g.logger.Info("Legacy records merged", "destination", dest.String(), "count", writes)
	return writes, nil
}

func normalizeGuest(g map[string]any) map[string]any {
	return map[string]any{
		"name":      firstString(g, "Invitado", "name", "fullName"),
		"phone":     firstString(g, "", "phone"),
		"address":   firstString(g, "", "address"),
		"companion": firstNumber(g, "companion", "companions"),
		"table":     firstString(g, "", "table", "group"),
		"response":  firstString(g, "", "response"),
		"status":    firstString(g, "pending", "status"),
	}
}

func normalizeSupplier(s map[string]any) map[string]any {
	return map[string]any{
		"name":     firstString(s, "Proveedor", "name", "provider"),
		"category": firstString(s, "", "category", "type"),
		"email":    firstString(s, "", "email"),
		"phone":    firstString(s, "", "phone"),
	}
}

// firstString returns the first non-empty string among keys, or def.
func firstString(m map[string]any, def string, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return def
}

func firstNumber(m map[string]any, keys ...string) float64 {
	for _, k := range keys {
		if n, ok := m[k].(float64); ok {
			return n
		}
	}
	return 0
}

package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/iudanet/plansync/internal/models"
	"github.com/iudanet/plansync/internal/server/storage"
)

type writeMode int

const (
	modeMerge writeMode = iota
	modeReplace
	modeUpdate
)

// querier общий интерфейс *sql.DB и *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// GetDocument implements storage.DocumentStorage.
func (s *Storage) GetDocument(ctx context.Context, path models.DocumentPath) (*models.Document, error) {
	fields, updatedAt, err := s.readFields(ctx, s.db, path, false)
	if err != nil {
		return nil, err
	}
	return &models.Document{Path: path, Fields: fields, UpdatedAt: fromUnix(updatedAt)}, nil
}

// UpsertDocument implements storage.DocumentStorage.
func (s *Storage) UpsertDocument(ctx context.Context, path models.DocumentPath, fields map[string]any) (bool, error) {
	var created bool
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		created, err = s.write(ctx, tx, path, fields, modeMerge)
		return err
	})
	return created, err
}

// UpdateFields implements storage.DocumentStorage.
func (s *Storage) UpdateFields(ctx context.Context, path models.DocumentPath, fields map[string]any) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := s.write(ctx, tx, path, fields, modeUpdate)
		return err
	})
}

// DeleteDocument implements storage.DocumentStorage.
func (s *Storage) DeleteDocument(ctx context.Context, path models.DocumentPath) error {
	query := s.rebind(`DELETE FROM documents WHERE path = ?`)
	if _, err := s.db.ExecContext(ctx, query, path.String()); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", path, err)
	}
	return nil
}

// ListDocuments implements storage.DocumentStorage.
func (s *Storage) ListDocuments(ctx context.Context, collection models.CollectionPath) ([]models.Document, error) {
	query := s.rebind(`SELECT path, fields, updated_at FROM documents WHERE parent = ?`)

	rows, err := s.db.QueryContext(ctx, query, collection.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}
	defer rows.Close()

	docs := make([]models.Document, 0)
	for rows.Next() {
		var (
			rawPath, rawFields string
			updatedAt          int64
		)
		if err := rows.Scan(&rawPath, &rawFields, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		path, err := models.ParseDocumentPath(rawPath)
		if err != nil {
			return nil, fmt.Errorf("stored document has invalid path %q: %w", rawPath, err)
		}
		fields, err := decodeFields(rawFields)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", rawPath, err)
		}
		docs = append(docs, models.Document{Path: path, Fields: fields, UpdatedAt: fromUnix(updatedAt)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}

	// порядок байтовый, независимо от collation базы
	slices.SortFunc(docs, func(a, b models.Document) int { return strings.Compare(a.ID(), b.ID()) })
	return docs, nil
}

// ApplyBatch implements storage.DocumentStorage.
func (s *Storage) ApplyBatch(ctx context.Context, writes []storage.Write) error {
	if len(writes) == 0 {
		return nil
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, w := range writes {
			mode := modeReplace
			if w.Merge {
				mode = modeMerge
			}
			if _, err := s.write(ctx, tx, w.Path, w.Fields, mode); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Storage) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// write применяет одну запись внутри транзакции и сообщает, был ли документ создан
func (s *Storage) write(ctx context.Context, q querier, path models.DocumentPath, fields map[string]any, mode writeMode) (bool, error) {
	current, _, err := s.readFields(ctx, q, path, true)
	exists := err == nil
	if err != nil && !errors.Is(err, storage.ErrDocumentNotFound) {
		return false, err
	}
	if !exists && mode == modeUpdate {
		return false, fmt.Errorf("%w: %s", storage.ErrDocumentNotFound, path)
	}

	next := make(map[string]any, len(current)+len(fields))
	if exists && mode != modeReplace {
		for k, v := range current {
			next[k] = v
		}
	}
	for k, v := range fields {
		next[k] = v
	}

	raw, err := json.Marshal(next)
	if err != nil {
		return false, fmt.Errorf("failed to encode fields of %s: %w", path, err)
	}
	now := s.now().UnixNano()

	if exists {
		query := s.rebind(`UPDATE documents SET fields = ?, updated_at = ? WHERE path = ?`)
		if _, err := q.ExecContext(ctx, query, string(raw), now, path.String()); err != nil {
			return false, fmt.Errorf("failed to update %s: %w", path, err)
		}
		return false, nil
	}

	query := s.rebind(`
		INSERT INTO documents (path, parent, doc_id, fields, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if _, err := q.ExecContext(ctx, query, path.String(), path.Parent().String(), path.ID(), string(raw), now, now); err != nil {
		return false, fmt.Errorf("failed to insert %s: %w", path, err)
	}
	return true, nil
}

func (s *Storage) readFields(ctx context.Context, q querier, path models.DocumentPath, lock bool) (map[string]any, int64, error) {
	query := `SELECT fields, updated_at FROM documents WHERE path = ?`
	if lock {
		query += s.dialect.forUpdate
	}

	var (
		raw       string
		updatedAt int64
	)
	err := q.QueryRowContext(ctx, s.rebind(query), path.String()).Scan(&raw, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, fmt.Errorf("%w: %s", storage.ErrDocumentNotFound, path)
		}
		return nil, 0, fmt.Errorf("failed to read %s: %w", path, err)
	}

	fields, err := decodeFields(raw)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return fields, updatedAt, nil
}

func decodeFields(raw string) (map[string]any, error) {
	fields := map[string]any{}
	if raw == "" {
		return fields, nil
	}
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

package storage

import (
	"context"

	"github.com/iudanet/plansync/internal/models"
)

// Write is one operation of an atomic batch.
// Merge keeps existing top-level fields, otherwise the document is replaced.
type Write struct {
	Fields map[string]any
	Path   models.DocumentPath
	Merge  bool
}

// DocumentStorage defines interface for document persistence.
// Field merges are shallow: top-level keys of the write replace stored keys.
type DocumentStorage interface {
	// GetDocument returns ErrDocumentNotFound if the document doesn't exist
	GetDocument(ctx context.Context, path models.DocumentPath) (*models.Document, error)

	// UpsertDocument creates the document or merges fields into it.
	// Reports whether the document was created.
	UpsertDocument(ctx context.Context, path models.DocumentPath, fields map[string]any) (bool, error)

	// UpdateFields merges fields into an existing document
	// Returns ErrDocumentNotFound if the document doesn't exist
	UpdateFields(ctx context.Context, path models.DocumentPath, fields map[string]any) error

	// DeleteDocument removes the document; deleting a missing document is not an error
	DeleteDocument(ctx context.Context, path models.DocumentPath) error

	// ListDocuments returns direct children of the collection ordered by id
	ListDocuments(ctx context.Context, collection models.CollectionPath) ([]models.Document, error)

	// ApplyBatch applies all writes in one transaction or none of them
	ApplyBatch(ctx context.Context, writes []Write) error
}

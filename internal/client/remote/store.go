// Package remote defines the contract with the authoritative document store.
package remote

import (
	"context"

	"github.com/iudanet/plansync/internal/models"
)

//go:generate moq -out store_mock.go . Store

// Store is the authoritative hierarchical document store.
// Implementations must be safe for concurrent use.
type Store interface {
	// GetDocument returns the document or ErrNotFound
	GetDocument(ctx context.Context, path models.DocumentPath) (*models.Document, error)

	// CreateOrMergeDocument creates the document or merges fields into it
	CreateOrMergeDocument(ctx context.Context, path models.DocumentPath, fields map[string]any) error

	// UpdateFields merges fields into an existing document; ErrNotFound when absent
	UpdateFields(ctx context.Context, path models.DocumentPath, fields map[string]any) error

	// AddDocument creates a document with a store-assigned id
	AddDocument(ctx context.Context, collection models.CollectionPath, fields map[string]any) (models.DocumentPath, error)

	// DeleteDocument removes the document; deleting a missing document is not an error
	DeleteDocument(ctx context.Context, path models.DocumentPath) error

	// ListDocuments returns every document of the collection ordered by id
	ListDocuments(ctx context.Context, collection models.CollectionPath) ([]models.Document, error)

	// Subscribe delivers the full collection on every change until the returned
	// function is called. Failures after the subscription was established are
	// reported through onError, after which no more snapshots arrive.
	Subscribe(ctx context.Context, collection models.CollectionPath, onSnapshot func([]models.Document), onError func(error)) (func(), error)

	// NewBatch starts an atomic multi-document write
	NewBatch() Batch
}

// Batch collects writes committed atomically.
type Batch interface {
	// Set writes fields to path, merging into an existing document when merge is true
	Set(path models.DocumentPath, fields map[string]any, merge bool)

	// Commit applies every write or none
	Commit(ctx context.Context) error
}

// BatchWrite is one write of a batch.
type BatchWrite struct {
	Fields map[string]any
	Path   models.DocumentPath
	Merge  bool
}

package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/iudanet/plansync/internal/client/remote"
	"github.com/iudanet/plansync/internal/models"
	"github.com/iudanet/plansync/pkg/api"
)

var _ remote.Store = (*Client)(nil)

// GetDocument implements remote.Store.
func (c *Client) GetDocument(ctx context.Context, path models.DocumentPath) (*models.Document, error) {
	var resp api.Document
	if err := c.doJSON(ctx, http.MethodGet, documentURL(path), nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", path, err)
	}
	doc, err := fromWire(resp)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// CreateOrMergeDocument implements remote.Store.
func (c *Client) CreateOrMergeDocument(ctx context.Context, path models.DocumentPath, fields map[string]any) error {
	if err := c.doJSON(ctx, http.MethodPut, documentURL(path), api.WriteRequest{Fields: fields}, nil); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// UpdateFields implements remote.Store.
func (c *Client) UpdateFields(ctx context.Context, path models.DocumentPath, fields map[string]any) error {
	if err := c.doJSON(ctx, http.MethodPatch, documentURL(path), api.WriteRequest{Fields: fields}, nil); err != nil {
		return fmt.Errorf("failed to update %s: %w", path, err)
	}
	return nil
}

// AddDocument implements remote.Store.
func (c *Client) AddDocument(ctx context.Context, collection models.CollectionPath, fields map[string]any) (models.DocumentPath, error) {
	var resp api.AddResponse
	if err := c.doJSON(ctx, http.MethodPost, collectionURL(collection), api.WriteRequest{Fields: fields}, &resp); err != nil {
		return models.DocumentPath{}, fmt.Errorf("failed to add to %s: %w", collection, err)
	}
	path, err := models.ParseDocumentPath(resp.Path)
	if err != nil {
		return models.DocumentPath{}, fmt.Errorf("server returned invalid path %q: %w", resp.Path, err)
	}
	return path, nil
}

// DeleteDocument implements remote.Store.
func (c *Client) DeleteDocument(ctx context.Context, path models.DocumentPath) error {
	err := c.doJSON(ctx, http.MethodDelete, documentURL(path), nil, nil)
	if err != nil && !isStatus(err, http.StatusNotFound) {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	return nil
}

// ListDocuments implements remote.Store.
func (c *Client) ListDocuments(ctx context.Context, collection models.CollectionPath) ([]models.Document, error) {
	var resp api.ListResponse
	if err := c.doJSON(ctx, http.MethodGet, collectionURL(collection), nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}
	return fromWireList(resp.Documents)
}

// NewBatch implements remote.Store.
func (c *Client) NewBatch() remote.Batch {
	return &batch{client: c}
}

type batch struct {
	client *Client
	writes []api.BatchWrite
}

func (b *batch) Set(path models.DocumentPath, fields map[string]any, merge bool) {
	b.writes = append(b.writes, api.BatchWrite{Path: path.String(), Fields: fields, Merge: merge})
}

func (b *batch) Commit(ctx context.Context) error {
	if len(b.writes) == 0 {
		return nil
	}
	if err := b.client.doJSON(ctx, http.MethodPost, "/api/v1/batch", api.BatchRequest{Writes: b.writes}, nil); err != nil {
		return fmt.Errorf("failed to commit batch of %d writes: %w", len(b.writes), err)
	}
	return nil
}

func documentURL(path models.DocumentPath) string {
	return "/api/v1/documents/" + escapeSegments(path.Segments()...)
}

func collectionURL(path models.CollectionPath) string {
	return "/api/v1/collections/" + escapeSegments(path.Segments()...)
}

func escapeSegments(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return strings.Join(escaped, "/")
}

func fromWire(d api.Document) (models.Document, error) {
	path, err := models.ParseDocumentPath(d.Path)
	if err != nil {
		return models.Document{}, fmt.Errorf("server returned invalid path %q: %w", d.Path, err)
	}
	fields := d.Fields
	if fields == nil {
		fields = map[string]any{}
	}
	return models.Document{Path: path, Fields: fields, UpdatedAt: d.UpdatedAt}, nil
}

func fromWireList(docs []api.Document) ([]models.Document, error) {
	out := make([]models.Document, 0, len(docs))
	for _, d := range docs {
		doc, err := fromWire(d)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

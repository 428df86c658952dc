package remote

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/plansync/internal/models"
)

func TestMemoryStore_CRUD(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	path := models.MustDoc("users", "u1")

	_, err := store.GetDocument(ctx, path)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.CreateOrMergeDocument(ctx, path, map[string]any{"a": 1.0}))
	require.NoError(t, store.CreateOrMergeDocument(ctx, path, map[string]any{"b": 2.0}))

	doc, err := store.GetDocument(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1.0, "b": 2.0}, doc.Fields)
	assert.False(t, doc.UpdatedAt.IsZero())

	require.NoError(t, store.UpdateFields(ctx, path, map[string]any{"a": 3.0}))
	doc, err = store.GetDocument(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 3.0, doc.Fields["a"])

	err = store.UpdateFields(ctx, models.MustDoc("users", "nobody"), map[string]any{"a": 1})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.DeleteDocument(ctx, path))
	_, err = store.GetDocument(ctx, path)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ReturnedDataIsCopied(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	path := models.MustDoc("users", "u1")

	input := map[string]any{"nested": map[string]any{"x": 1.0}}
	require.NoError(t, store.CreateOrMergeDocument(ctx, path, input))
	input["nested"].(map[string]any)["x"] = 2.0

	doc, err := store.GetDocument(ctx, path)
	require.NoError(t, err)
	doc.Fields["nested"].(map[string]any)["x"] = 3.0

	again, err := store.GetDocument(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 1.0, again.Fields["nested"].(map[string]any)["x"])
}

func TestMemoryStore_AddAndList(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	col := models.MustCollection("weddings", "w1", "guests")

	p1, err := store.AddDocument(ctx, col, map[string]any{"name": "Ana"})
	require.NoError(t, err)
	p2, err := store.AddDocument(ctx, col, map[string]any{"name": "Luis"})
	require.NoError(t, err)
	assert.NotEqual(t, p1.ID(), p2.ID())

	// документ в другой коллекции не попадает в список
	require.NoError(t, store.CreateOrMergeDocument(ctx, models.MustDoc("weddings", "w1"), map[string]any{"x": 1}))

	docs, err := store.ListDocuments(ctx, col)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.True(t, docs[0].ID() < docs[1].ID())
}

func TestMemoryStore_Subscribe(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	col := models.MustCollection("weddings", "w1", "guests")

	var snapshots [][]models.Document
	unsubscribe, err := store.Subscribe(ctx, col, func(docs []models.Document) {
		snapshots = append(snapshots, docs)
	}, nil)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Empty(t, snapshots[0])

	_, err = store.AddDocument(ctx, col, map[string]any{"name": "Ana"})
	require.NoError(t, err)
	require.Len(t, snapshots, 2)
	assert.Len(t, snapshots[1], 1)

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, store.Listeners())

	_, err = store.AddDocument(ctx, col, map[string]any{"name": "Luis"})
	require.NoError(t, err)
	assert.Len(t, snapshots, 2)
}

func TestMemoryStore_FaultAndRevoke(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	col := models.MustCollection("weddings", "w1", "guests")

	store.SetFault(func(op Op, path string) error {
		if op == OpListen {
			return fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		}
		return nil
	})

	var gotErr error
	_, err := store.Subscribe(ctx, col, func([]models.Document) {
		t.Fatal("no snapshot expected")
	}, func(err error) { gotErr = err })
	require.NoError(t, err)
	assert.ErrorIs(t, gotErr, ErrPermissionDenied)

	store.SetFault(nil)
	gotErr = nil
	_, err = store.Subscribe(ctx, col, func([]models.Document) {}, func(err error) { gotErr = err })
	require.NoError(t, err)
	assert.Equal(t, 1, store.Listeners())

	store.Revoke(col, ErrPermissionDenied)
	assert.ErrorIs(t, gotErr, ErrPermissionDenied)
	assert.Equal(t, 0, store.Listeners())
}

func TestMemoryStore_Batch(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	col := models.MustCollection("weddings", "w1", "guests")

	batch := store.NewBatch()
	batch.Set(models.MustDoc("weddings", "w1", "guests", "g1"), map[string]any{"name": "Ana"}, true)
	batch.Set(models.MustDoc("weddings", "w1", "guests", "g2"), map[string]any{"name": "Luis"}, true)
	require.NoError(t, batch.Commit(ctx))

	docs, err := store.ListDocuments(ctx, col)
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	store.SetFault(func(op Op, _ string) error {
		if op == OpCommit {
			return ErrUnavailable
		}
		return nil
	})
	batch = store.NewBatch()
	batch.Set(models.MustDoc("weddings", "w1", "guests", "g3"), map[string]any{"name": "Eva"}, true)
	assert.True(t, errors.Is(batch.Commit(ctx), ErrUnavailable))

	docs, err = store.ListDocuments(ctx, col)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}


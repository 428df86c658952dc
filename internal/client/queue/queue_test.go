package queue

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/plansync/internal/client/storage/boltdb"
	"github.com/iudanet/plansync/internal/models"
)

func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	store, err := boltdb.New(context.Background(), filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return New(store, nil)
}

func fieldPolicy() models.WritePolicy {
	return models.WritePolicy{Path: models.MustDoc("users", "u1"), Op: models.WriteOpField}
}

func TestQueue_LatestWinsPerKey(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t)

	first, err := q.Enqueue(ctx, "k", json.RawMessage(`1`), fieldPolicy())
	require.NoError(t, err)
	second, err := q.Enqueue(ctx, "k", json.RawMessage(`2`), fieldPolicy())
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	items, err := q.Items(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, json.RawMessage(`2`), items[0].Payload)
}

func TestQueue_EmptyKey(t *testing.T) {
	q := newTestQueue(t)
	_, err := q.Enqueue(context.Background(), "", json.RawMessage(`1`), fieldPolicy())
	assert.ErrorIs(t, err, ErrEmptyKey)
}

func TestQueue_AckKeepsNewerVersion(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t)

	old, err := q.Enqueue(ctx, "k", json.RawMessage(`1`), fieldPolicy())
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, "k", json.RawMessage(`2`), fieldPolicy())
	require.NoError(t, err)

	removed, err := q.Ack(ctx, old)
	require.NoError(t, err)
	assert.False(t, removed)

	current, err := q.Get(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, json.RawMessage(`2`), current.Payload)

	missing, err := q.Get(ctx, "other")
	require.NoError(t, err)
	assert.Nil(t, missing)

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestQueue_PutKeepsProvidedFields(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t)
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	item := &models.PendingWrite{
		ID:       "fixed",
		Key:      "entity:w1/guests/g1",
		Payload:  json.RawMessage(`{"name":"Ana"}`),
		Policy:   models.WritePolicy{Path: models.MustDoc("weddings", "w1", "guests", "g1"), Op: models.WriteOpMerge},
		QueuedAt: at,
	}
	require.NoError(t, q.Put(ctx, item))

	items, err := q.Items(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "fixed", items[0].ID)
	assert.True(t, at.Equal(items[0].QueuedAt))
	assert.Equal(t, models.WriteOpMerge, items[0].Policy.Op)
}

func TestQueue_Clear(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t)

	for _, k := range []string{"a", "b", "c"} {
		_, err := q.Enqueue(ctx, k, json.RawMessage(`true`), fieldPolicy())
		require.NoError(t, err)
	}
	require.NoError(t, q.Clear(ctx))

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

package storage

import "context"

//go:generate moq -out cache_mock.go . CacheStorage

// CacheStorage is the persistent key/value cache shared by every component of the process.
// Values are opaque serialized bytes; concurrent writers follow last-writer-wins.
type CacheStorage interface {
	// Put stores the value under key and notifies watchers.
	// The origin attached with WithOrigin is forwarded in the Change.
	Put(ctx context.Context, key string, value []byte) error

	// Get returns the stored value
	// Returns ErrNotFound if the key has no value
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes the value; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error

	// Keys lists keys starting with prefix in lexical order
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Watch registers fn for every committed change until cancel is called
	Watch(fn func(Change)) (cancel func())
}

// Change describes a committed cache write. Value is nil for deletions.
type Change struct {
	Key    string
	Origin string
	Value  []byte
}

type originKey struct{}

// WithOrigin tags cache writes made with ctx so that the writer can recognise its own changes.
func WithOrigin(ctx context.Context, origin string) context.Context {
	return context.WithValue(ctx, originKey{}, origin)
}

// OriginFrom returns the origin attached with WithOrigin.
func OriginFrom(ctx context.Context) string {
	origin, _ := ctx.Value(originKey{}).(string)
	return origin
}

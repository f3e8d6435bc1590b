package metadata

import (
	"context"
)

// Repository is the client-side key/value store holding sync bookkeeping,
// the saved session and preferences. A nil value means the key is absent.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error

	// Update replaces the value of key with fn(current) atomically. A nil
	// result deletes the key. fn must not call back into the repository.
	Update(ctx context.Context, key string, fn func(cur []byte) ([]byte, error)) error

	// List returns the pairs whose key starts with prefix.
	List(ctx context.Context, prefix string) (map[string][]byte, error)
}

// Package cache persists extraction results in an external key-value store,
// applying the merge policy that decides whether a new fetch replaces what is
// stored.
package cache

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by KV implementations on a cache miss.
var ErrKeyNotFound = errors.New("key not found")

// KV is the minimal key-value contract the store needs. It abstracts the
// external store so the pipeline is independent of a specific backend.
type KV interface {
	// Get returns the value at key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Set writes value at key, overwriting any previous value.
	Set(ctx context.Context, key string, value string) error
}

// Package metadata is a small key/value store for local sync bookkeeping:
// per-collection pull watermarks and the device identifier.
package metadata

import "context"

type Repository interface {
	// Get returns the value under key, or nil when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Clear drops every key. Used by full resync.
	Clear(ctx context.Context, prefix string) error
}

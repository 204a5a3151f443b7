// Package cache stores rendered catalog views. Entries are JSON so the
// in-memory and Redis implementations behave the same way.
package cache

import (
	"context"
	"time"
)

// ViewCache is a TTL cache of JSON-encoded values.
type ViewCache interface {
	// Get decodes the entry at key into dst. It reports false on a miss.
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// DeletePrefix removes every key starting with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
}

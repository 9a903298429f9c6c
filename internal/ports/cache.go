package ports

import (
	"context"
	"time"
)

// Cache is a small key-value store with per-entry expiry.
// Writes inside a UnitOfWork participate in that transaction.
type Cache interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

package domain

import (
	"context"
	"time"
)

// Cache retains completed analysis payloads for retrieval by id. Entries
// are process-local and expire; this is retention, not persistence.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

package cache

import (
	"context"
	"time"
)

// Store is the read-through cache used for export documents. Cache failures
// are never fatal; implementations log and report a miss instead.
type Store interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, expiration time.Duration)
	Delete(ctx context.Context, key string)
}

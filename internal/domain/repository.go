package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching serialized values
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// CatalogRepository holds the vehicle catalog the matcher reads from.
// All returns vehicles in catalog order; callers must not modify the slice.
type CatalogRepository interface {
	All(ctx context.Context) ([]Vehicle, error)
	Replace(ctx context.Context, vehicles []Vehicle) error
}

// CatalogSource loads a catalog from somewhere outside the process
type CatalogSource interface {
	Load(ctx context.Context) ([]Vehicle, error)
}

// Package metadata is the durable key/value store of the client. It keeps
// the bearer token between runs.
package metadata

import (
	"context"
	"time"
)

// Repository is a flat key/value table. Get returns (nil, nil) for a
// missing key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}

// TokenStorage persists the single bearer token the client holds.
// Load returns "" when no token is stored.
type TokenStorage interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string, validatedAt time.Time) error
	Remove(ctx context.Context) error
}

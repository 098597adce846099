// Package kv persists small pieces of flow state, such as the chain a user
// last withdrew to, in a file or in Redis.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get for a missing key
var ErrNotFound = errors.New("kv: key not found")

// Storage stores JSON-encoded values by key
type Storage interface {
	Set(ctx context.Context, key string, value interface{}) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, key string) error
	Close() error
}

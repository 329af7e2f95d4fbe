package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound signals that a key was absent from the store.
var ErrNotFound = errors.New("key not found")

// KeyValueStore abstracts the external TTL store. The engine never embeds a
// concrete client; implementations must be safe for concurrent use.
// Records written through this interface are either immutable or capped
// append-only lists, so last-write-wins semantics are acceptable.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetNX stores the value only if the key does not exist. Returns true
	// when the value was written.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Del(ctx context.Context, key string) error
	// Keys returns keys matching a glob-style pattern (e.g. "correlation:*").
	Keys(ctx context.Context, pattern string) ([]string, error)
	// PushCapped prepends a value to a list, trims it to the newest max
	// entries, and refreshes the list TTL.
	PushCapped(ctx context.Context, key string, value []byte, max int64, ttl time.Duration) error
	// ListRange returns list entries between start and stop inclusive,
	// newest first. An absent key yields an empty result, not an error.
	ListRange(ctx context.Context, key string, start, stop int64) ([][]byte, error)
	Close() error
}

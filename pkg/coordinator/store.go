package coordinator

import (
	"context"
	"time"
)

// Store is the key-value backend behind locks and progress records.
// Every method may be a network call; errors mean the store could not be reached.
type Store interface {
	// SetNX stores value only when key is absent. It reports whether the write happened.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// CompareAndDelete deletes key only while it still holds value.
	CompareAndDelete(ctx context.Context, key, value string) (bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Get returns found=false for a missing or expired key.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Del(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

package port

import (
	"context"
	"time"
)

// Locker is an external mutual-exclusion service with leased locks.
type Locker interface {
	// AcquireIfAbsent atomically sets the lock key if no one holds it,
	// bounded by ttl. On success it returns the lease token identifying
	// this acquisition; the caller passes the same token back to Release.
	// Returns ok=false when another holder has the key.
	AcquireIfAbsent(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)

	// Release frees the lock only if it still carries the given token.
	// Releasing with a token the key no longer holds, such as after the
	// lease expired and another holder took the key over, must be a no-op.
	Release(ctx context.Context, key, token string) error
}

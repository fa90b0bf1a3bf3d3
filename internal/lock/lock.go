// Package lock provides a non-blocking, token-fenced advisory lock used to
// serialize wallet charging per reseller.
package lock

import (
	"context"
	"time"
)

// Locker acquires short-lived leases. TryLock never waits: a held lock
// reports ok=false so the caller can skip and retry on the next tick.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
}

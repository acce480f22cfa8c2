package cache

import (
	"context"
	"errors"
	"time"
)

var (
	ErrLockNotAcquired = errors.New("lock not acquired within wait window")
)

// Store is a TTL key/value backend. A missing key is (nil, nil), not an
// error, so callers can treat the cache as best-effort.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Forget(ctx context.Context, key string) error
}

// Locker hands out named advisory locks with a bounded wait. The returned
// release func must be safe to call on every exit path.
type Locker interface {
	Acquire(ctx context.Context, name string, wait time.Duration) (release func(), err error)
}

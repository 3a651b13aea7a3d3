package ports

import (
	"context"
	"time"
)

// UnlockFunc is a function that releases a distributed lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes event cycles of one session across replicas.
type DistributedLocker interface {
	// Lock acquires the lock for the given key (a session ID). It blocks until
	// the lock is acquired or the context is canceled. The lock expires after
	// ttl if it is never released.
	// Returns an UnlockFunc that MUST be called to release the lock.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}

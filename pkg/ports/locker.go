package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a distributed lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker coordinates turn processing for the same session
// key across replicas. It is optional: a single-instance deployment
// relies on the session manager's in-process locks alone.
type DistributedLocker interface {
	// Lock blocks until the lock for key is acquired or the context is
	// canceled. The returned UnlockFunc MUST be called to release it;
	// the TTL bounds the damage if a holder crashes.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}

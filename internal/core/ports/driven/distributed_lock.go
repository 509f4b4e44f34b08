package driven

import (
	"context"
	"time"
)

// DistributedLock coordinates work across instances, so that only one
// instance runs a scheduled token validation cycle at a time.
type DistributedLock interface {
	// Acquire attempts to take a named lock for ttl.
	// Returns false when another instance holds it.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release is best-effort; the TTL expires the lock anyway.
	Release(ctx context.Context, name string) error

	// Extend pushes out the TTL of a lock this instance holds.
	Extend(ctx context.Context, name string, ttl time.Duration) error

	Ping(ctx context.Context) error
}

package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-connect/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*LeaseLock)(nil)

// LeaseLock implements DistributedLock with a row per lock name in the
// locks table. A lease is taken when the row is missing or its expiry has
// passed, so a crashed holder blocks others for at most one TTL.
//
// Used when no Redis is configured. Works on both SQLite and PostgreSQL.
type LeaseLock struct {
	store *Store
	owner string
	clock func() time.Time
}

// NewLeaseLock creates a lease lock with a random owner ID.
func NewLeaseLock(store *Store) *LeaseLock {
	return &LeaseLock{
		store: store,
		owner: uuid.NewString(),
		clock: time.Now,
	}
}

// Acquire attempts to take the lease.
func (l *LeaseLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	db, err := l.store.handle()
	if err != nil {
		return false, err
	}

	now := l.clock()
	query := db.rebind(`
		INSERT INTO locks (name, owner, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			owner = excluded.owner,
			expires_at = excluded.expires_at
		WHERE locks.expires_at <= ? OR locks.owner = excluded.owner
	`)

	res, err := db.ExecContext(ctx, query, name, l.owner, now.Add(ttl).UnixNano(), now.UnixNano())
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	return n > 0, nil
}

// Release drops the lease if this instance holds it.
func (l *LeaseLock) Release(ctx context.Context, name string) error {
	db, err := l.store.handle()
	if err != nil {
		return err
	}

	query := db.rebind(`DELETE FROM locks WHERE name = ? AND owner = ?`)
	if _, err := db.ExecContext(ctx, query, name, l.owner); err != nil {
		return fmt.Errorf("release lock %s: %w", name, err)
	}
	return nil
}

// Extend pushes out the expiry of a lease this instance holds.
func (l *LeaseLock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	db, err := l.store.handle()
	if err != nil {
		return err
	}

	query := db.rebind(`UPDATE locks SET expires_at = ? WHERE name = ? AND owner = ?`)
	res, err := db.ExecContext(ctx, query, l.clock().Add(ttl).UnixNano(), name, l.owner)
	if err != nil {
		return fmt.Errorf("extend lock %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("extend lock %s: not held", name)
	}
	return nil
}

// Ping checks database connectivity.
func (l *LeaseLock) Ping(ctx context.Context) error {
	db, err := l.store.handle()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

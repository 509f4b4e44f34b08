package driven

import (
	"context"

	"github.com/custodia-labs/sercha-connect/internal/core/domain"
)

// Keyed is a record that knows its own persistence key.
type Keyed interface {
	StoreKey() string
}

// Collection is the uniform keyed CRUD contract shared by every persistence
// backend. Both the connector registry and the sync-state tracker are
// written against this interface only.
type Collection[T Keyed] interface {
	// Get returns the record stored under key, or domain.ErrNotFound.
	Get(ctx context.Context, key string) (T, error)

	// GetAll returns every record in the collection.
	GetAll(ctx context.Context) ([]T, error)

	// Put inserts or replaces the record under record.StoreKey().
	Put(ctx context.Context, record T) error

	// Delete removes the record. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Backend groups the two named collections and their one-time setup.
type Backend interface {
	// Init prepares the backend for use. It is idempotent: once it has
	// succeeded, later calls return nil without doing any work.
	Init(ctx context.Context) error

	Connectors() Collection[*domain.Connector]
	SyncStates() Collection[*domain.SyncState]

	Close() error
}

// Snapshot is the full contents of both collections at one point in time.
type Snapshot struct {
	Connectors []*domain.Connector
	SyncStates []*domain.SyncState
}

// Observable is implemented by backends whose contents can change under us,
// such as a shared map replicated between processes. The callback receives
// the full current contents on every observed change, including changes
// made by this process.
type Observable interface {
	Watch(ctx context.Context, fn func(Snapshot)) (stop func(), err error)
}

// Snapshotter is implemented by backends that can read both collections at
// one consistent point in time.
type Snapshotter interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

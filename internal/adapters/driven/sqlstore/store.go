package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-connect/internal/core/domain"
	"github.com/custodia-labs/sercha-connect/internal/core/ports/driven"
)

const (
	connectorsTable = "connectors"
	syncStatesTable = "connector_sync_states"
	metadataTable   = "encryption_metadata"
)

// Verify interface compliance
var (
	_ driven.Backend     = (*Store)(nil)
	_ driven.Snapshotter = (*Store)(nil)
)

// Store is the local persistence backend. The connection is opened lazily
// by Init so that the process can start while the database is unreachable.
type Store struct {
	cfg   Config
	clock func() time.Time

	mu    sync.RWMutex
	db    *DB
	ready bool

	connectors *Table[*domain.Connector]
	syncStates *Table[*domain.SyncState]
	metadata   *Table[*domain.EncryptionMetadata]
}

// NewStore creates a store for cfg.URL. No connection is made until Init.
func NewStore(cfg Config) *Store {
	s := &Store{cfg: cfg, clock: time.Now}
	s.connectors = newTable[*domain.Connector](s, connectorsTable)
	s.syncStates = newTable[*domain.SyncState](s, syncStatesTable)
	s.metadata = newTable[*domain.EncryptionMetadata](s, metadataTable)
	return s
}

// Init connects and creates the schema. Once it has succeeded, later calls
// return immediately.
func (s *Store) Init(ctx context.Context) error {
	s.mu.RLock()
	ready := s.ready
	s.mu.RUnlock()
	if ready {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}

	db, err := Connect(ctx, s.cfg)
	if err != nil {
		return err
	}
	if err := db.InitSchema(ctx); err != nil {
		db.Close()
		return err
	}

	s.db = db
	s.ready = true
	return nil
}

// handle returns the connection, or domain.ErrNotInitialized before Init.
func (s *Store) handle() (*DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil || !s.ready {
		return nil, fmt.Errorf("sql store: %w", domain.ErrNotInitialized)
	}
	return s.db, nil
}

func (s *Store) Connectors() driven.Collection[*domain.Connector] {
	return s.connectors
}

func (s *Store) SyncStates() driven.Collection[*domain.SyncState] {
	return s.syncStates
}

// Snapshot reads both tables inside one transaction so that the two lists
// describe the same point in time.
func (s *Store) Snapshot(ctx context.Context) (driven.Snapshot, error) {
	db, err := s.handle()
	if err != nil {
		return driven.Snapshot{}, err
	}

	var snap driven.Snapshot
	err = db.Transaction(ctx, db.snapshotTxOptions(), func(tx *sql.Tx) error {
		conns, err := s.connectors.list(ctx, tx)
		if err != nil {
			return err
		}
		states, err := s.syncStates.list(ctx, tx)
		if err != nil {
			return err
		}
		snap = driven.Snapshot{Connectors: conns, SyncStates: states}
		return nil
	})
	if err != nil {
		return driven.Snapshot{}, err
	}
	return snap, nil
}

// Metadata returns the encryption metadata store backed by this database.
func (s *Store) Metadata() driven.EncryptionMetadataStore {
	return &MetadataStore{table: s.metadata}
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

// DB returns the underlying connection, or nil before Init.
func (s *Store) DB() *DB {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db
}

// Close closes the connection. The store cannot be used afterwards.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	s.ready = false
	return err
}

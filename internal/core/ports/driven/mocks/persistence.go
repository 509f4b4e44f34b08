package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-connect/internal/core/domain"
	"github.com/custodia-labs/sercha-connect/internal/core/ports/driven"
)

// MockCollection is an in-memory Collection for testing. Records are
// cloned on the way in and out so tests can compare stored state against
// what the service holds.
type MockCollection[T driven.Keyed] struct {
	mu      sync.RWMutex
	records map[string]T
	order   []string
	clone   func(T) T

	// Injected failures (optional)
	GetErr    error
	GetAllErr error
	PutErr    error
	DeleteErr error

	// PutFn, when set, is consulted before every Put.
	PutFn    func(record T) error
	DeleteFn func(key string) error

	// AfterGetAll, when set, runs after GetAll has read the records and
	// before it returns them.
	AfterGetAll func()

	PutCalls    int
	DeleteCalls int
}

// NewMockCollection creates an empty collection.
func NewMockCollection[T driven.Keyed](clone func(T) T) *MockCollection[T] {
	return &MockCollection[T]{
		records: make(map[string]T),
		clone:   clone,
	}
}

// NewMockConnectorCollection creates an empty connector collection.
func NewMockConnectorCollection() *MockCollection[*domain.Connector] {
	return NewMockCollection(func(c *domain.Connector) *domain.Connector { return c.Clone() })
}

// NewMockSyncStateCollection creates an empty sync state collection.
func NewMockSyncStateCollection() *MockCollection[*domain.SyncState] {
	return NewMockCollection(func(s *domain.SyncState) *domain.SyncState { return s.Clone() })
}

func (m *MockCollection[T]) Get(ctx context.Context, key string) (T, error) {
	var zero T
	if m.GetErr != nil {
		return zero, m.GetErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[key]
	if !ok {
		return zero, domain.ErrNotFound
	}
	return m.clone(rec), nil
}

func (m *MockCollection[T]) GetAll(ctx context.Context) ([]T, error) {
	if m.GetAllErr != nil {
		return nil, m.GetAllErr
	}
	m.mu.RLock()
	result := make([]T, 0, len(m.order))
	for _, key := range m.order {
		result = append(result, m.clone(m.records[key]))
	}
	m.mu.RUnlock()

	if m.AfterGetAll != nil {
		m.AfterGetAll()
	}
	return result, nil
}

func (m *MockCollection[T]) Put(ctx context.Context, record T) error {
	if m.PutFn != nil {
		if err := m.PutFn(record); err != nil {
			return err
		}
	}
	if m.PutErr != nil {
		return m.PutErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PutCalls++
	key := record.StoreKey()
	if _, ok := m.records[key]; !ok {
		m.order = append(m.order, key)
	}
	m.records[key] = m.clone(record)
	return nil
}

func (m *MockCollection[T]) Delete(ctx context.Context, key string) error {
	if m.DeleteFn != nil {
		if err := m.DeleteFn(key); err != nil {
			return err
		}
	}
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCalls++
	if _, ok := m.records[key]; !ok {
		return nil
	}
	delete(m.records, key)
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// Helper methods for testing

// Seed stores a record directly, bypassing injected failures.
func (m *MockCollection[T]) Seed(record T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := record.StoreKey()
	if _, ok := m.records[key]; !ok {
		m.order = append(m.order, key)
	}
	m.records[key] = m.clone(record)
}

// Peek returns the stored record without going through Get.
func (m *MockCollection[T]) Peek(key string) (T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[key]
	if !ok {
		var zero T
		return zero, false
	}
	return m.clone(rec), true
}

func (m *MockCollection[T]) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// MockBackend is an in-memory Backend for testing.
type MockBackend struct {
	mu         sync.Mutex
	connectors *MockCollection[*domain.Connector]
	syncStates *MockCollection[*domain.SyncState]

	InitErr   error
	InitCalls int
	Closed    bool
}

// NewMockBackend creates a backend with two empty collections.
func NewMockBackend() *MockBackend {
	return &MockBackend{
		connectors: NewMockConnectorCollection(),
		syncStates: NewMockSyncStateCollection(),
	}
}

func (m *MockBackend) Init(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InitCalls++
	return m.InitErr
}

func (m *MockBackend) Connectors() driven.Collection[*domain.Connector] {
	return m.connectors
}

func (m *MockBackend) SyncStates() driven.Collection[*domain.SyncState] {
	return m.syncStates
}

func (m *MockBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// ConnectorStore exposes the concrete collection for assertions.
func (m *MockBackend) ConnectorStore() *MockCollection[*domain.Connector] {
	return m.connectors
}

// SyncStateStore exposes the concrete collection for assertions.
func (m *MockBackend) SyncStateStore() *MockCollection[*domain.SyncState] {
	return m.syncStates
}

// MockSharedBackend is a MockBackend that also implements Observable.
// Tests call Emit to simulate a remote change.
type MockSharedBackend struct {
	*MockBackend

	watchMu  sync.Mutex
	watchers map[int]func(driven.Snapshot)
	nextID   int
}

// NewMockSharedBackend creates an observable in-memory backend.
func NewMockSharedBackend() *MockSharedBackend {
	return &MockSharedBackend{
		MockBackend: NewMockBackend(),
		watchers:    make(map[int]func(driven.Snapshot)),
	}
}

func (m *MockSharedBackend) Watch(ctx context.Context, fn func(driven.Snapshot)) (func(), error) {
	m.watchMu.Lock()
	defer m.watchMu.Unlock()
	id := m.nextID
	m.nextID++
	m.watchers[id] = fn
	return func() {
		m.watchMu.Lock()
		defer m.watchMu.Unlock()
		delete(m.watchers, id)
	}, nil
}

// Emit delivers the current contents of both collections to every watcher.
func (m *MockSharedBackend) Emit(ctx context.Context) {
	conns, _ := m.connectors.GetAll(ctx)
	states, _ := m.syncStates.GetAll(ctx)
	snap := driven.Snapshot{Connectors: conns, SyncStates: states}

	m.watchMu.Lock()
	fns := make([]func(driven.Snapshot), 0, len(m.watchers))
	for _, fn := range m.watchers {
		fns = append(fns, fn)
	}
	m.watchMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// WatcherCount returns the number of active watchers.
func (m *MockSharedBackend) WatcherCount() int {
	m.watchMu.Lock()
	defer m.watchMu.Unlock()
	return len(m.watchers)
}

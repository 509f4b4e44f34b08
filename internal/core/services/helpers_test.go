package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/custodia-labs/sercha-connect/internal/core/domain"
	"github.com/custodia-labs/sercha-connect/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-connect/internal/core/ports/driven/mocks"
)

// fakeClock returns a fixed time until advanced
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// sequentialIDs hands out id-1, id-2, ...
func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

type testEnv struct {
	service   *ConnectorService
	backend   *mocks.MockBackend
	notifier  *mocks.MockNotifier
	providers *mocks.MockProviderRegistry
	encryptor *mocks.MockEncryptor
	metadata  *mocks.MockMetadataStore
	clock     *fakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	backend := mocks.NewMockBackend()
	return newTestEnvWithBackend(t, backend, backend)
}

// newTestEnvWithBackend builds the service on backend; stores is the mock
// that owns the collections, for assertions.
func newTestEnvWithBackend(t *testing.T, backend driven.Backend, stores *mocks.MockBackend) *testEnv {
	t.Helper()

	env := &testEnv{
		backend:   stores,
		notifier:  mocks.NewMockNotifier(),
		providers: mocks.NewMockProviderRegistry(),
		encryptor: mocks.NewMockEncryptor(),
		metadata:  mocks.NewMockMetadataStore(),
		clock:     newFakeClock(),
	}
	env.service = NewConnectorService(ConnectorServiceConfig{
		Backend:     backend,
		Providers:   env.providers,
		Encryptor:   env.encryptor,
		Metadata:    env.metadata,
		Notifier:    env.notifier,
		Clock:       env.clock.Now,
		IDGenerator: sequentialIDs("id"),
	})
	return env
}

// addConnector adds a connector and fails the test on error.
func (e *testEnv) addConnector(t *testing.T, input domain.ConnectorInput) string {
	t.Helper()
	id, err := e.service.AddConnector(context.Background(), input)
	if err != nil {
		t.Fatalf("AddConnector failed: %v", err)
	}
	return id
}

func appInput(provider domain.ProviderType, name string) domain.ConnectorInput {
	return domain.ConnectorInput{
		Provider: provider,
		Category: domain.ConnectorCategoryApp,
		Name:     name,
		Status:   domain.ConnectorStatusConnected,
	}
}

func statusPtr(s domain.SyncStatus) *domain.SyncStatus { return &s }
func intPtr(n int) *int                                { return &n }
func strPtr(s string) *string                          { return &s }

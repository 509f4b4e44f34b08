package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockDistributedLock keeps lock state in memory. The Fn hooks replace the
// default behaviour when set.
type MockDistributedLock struct {
	mu      sync.Mutex
	expires map[string]time.Time

	AcquireFn func(name string, ttl time.Duration) (bool, error)
	ReleaseFn func(name string) error

	AcquireCalls int
	ReleaseCalls int
}

func NewMockDistributedLock() *MockDistributedLock {
	return &MockDistributedLock{expires: make(map[string]time.Time)}
}

func (m *MockDistributedLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	m.AcquireCalls++
	m.mu.Unlock()

	if m.AcquireFn != nil {
		return m.AcquireFn(name, ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if exp, ok := m.expires[name]; ok && time.Now().Before(exp) {
		return false, nil
	}
	m.expires[name] = time.Now().Add(ttl)
	return true, nil
}

func (m *MockDistributedLock) Release(ctx context.Context, name string) error {
	m.mu.Lock()
	m.ReleaseCalls++
	m.mu.Unlock()

	if m.ReleaseFn != nil {
		return m.ReleaseFn(name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.expires, name)
	return nil
}

func (m *MockDistributedLock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.expires[name]
	if !ok || time.Now().After(exp) {
		return fmt.Errorf("lock %s not held", name)
	}
	m.expires[name] = time.Now().Add(ttl)
	return nil
}

func (m *MockDistributedLock) Ping(ctx context.Context) error {
	return nil
}

// Hold marks a lock as taken by another instance.
func (m *MockDistributedLock) Hold(name string, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expires[name] = time.Now().Add(ttl)
}

func (m *MockDistributedLock) IsHeld(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.expires[name]
	return ok && time.Now().Before(exp)
}

func (m *MockDistributedLock) Counts() (acquire, release int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.AcquireCalls, m.ReleaseCalls
}

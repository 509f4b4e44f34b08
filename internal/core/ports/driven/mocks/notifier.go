package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-connect/internal/core/domain"
)

// MockNotifier records every notification it receives.
type MockNotifier struct {
	mu            sync.Mutex
	notifications []domain.Notification
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Notify(ctx context.Context, n domain.Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, n)
}

// Notifications returns a copy of everything recorded so far.
func (m *MockNotifier) Notifications() []domain.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Notification, len(m.notifications))
	copy(out, m.notifications)
	return out
}

// CountTitle returns how many notifications carried the given title.
func (m *MockNotifier) CountTitle(title string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, rec := range m.notifications {
		if rec.Title == title {
			n++
		}
	}
	return n
}

func (m *MockNotifier) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.notifications)
}

func (m *MockNotifier) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = nil
}

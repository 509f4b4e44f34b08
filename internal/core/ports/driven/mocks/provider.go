package mocks

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/sercha-connect/internal/core/domain"
	"github.com/custodia-labs/sercha-connect/internal/core/ports/driven"
)

// MockProvider is an AppProvider without token validation.
type MockProvider struct {
	ProviderType domain.ProviderType
	RefreshFn    func(ctx context.Context, connector *domain.Connector) (*domain.RefreshResult, error)

	refreshCalls atomic.Int32
}

func NewMockProvider(providerType domain.ProviderType) *MockProvider {
	return &MockProvider{ProviderType: providerType}
}

func (m *MockProvider) Type() domain.ProviderType {
	return m.ProviderType
}

func (m *MockProvider) RefreshToken(ctx context.Context, connector *domain.Connector) (*domain.RefreshResult, error) {
	m.refreshCalls.Add(1)
	if m.RefreshFn != nil {
		return m.RefreshFn(ctx, connector)
	}
	expiresIn := 3600
	return &domain.RefreshResult{AccessToken: "refreshed-" + connector.ID, ExpiresIn: &expiresIn}, nil
}

func (m *MockProvider) RefreshCalls() int {
	return int(m.refreshCalls.Load())
}

// MockValidatingProvider adds the TokenValidator capability.
type MockValidatingProvider struct {
	*MockProvider
	ValidateFn func(ctx context.Context, accessToken string) (bool, error)

	validateCalls atomic.Int32
}

func NewMockValidatingProvider(providerType domain.ProviderType) *MockValidatingProvider {
	return &MockValidatingProvider{MockProvider: NewMockProvider(providerType)}
}

func (m *MockValidatingProvider) ValidateToken(ctx context.Context, accessToken string) (bool, error) {
	m.validateCalls.Add(1)
	if m.ValidateFn != nil {
		return m.ValidateFn(ctx, accessToken)
	}
	return true, nil
}

func (m *MockValidatingProvider) ValidateCalls() int {
	return int(m.validateCalls.Load())
}

// MockProviderRegistry maps provider types to adapters.
type MockProviderRegistry struct {
	mu        sync.RWMutex
	providers map[domain.ProviderType]driven.AppProvider
}

func NewMockProviderRegistry(providers ...driven.AppProvider) *MockProviderRegistry {
	r := &MockProviderRegistry{providers: make(map[domain.ProviderType]driven.AppProvider)}
	for _, p := range providers {
		r.providers[p.Type()] = p
	}
	return r
}

func (r *MockProviderRegistry) Register(p driven.AppProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Type()] = p
}

func (r *MockProviderRegistry) GetAppProvider(providerType domain.ProviderType) (driven.AppProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[providerType]
	if !ok {
		return nil, domain.ErrUnsupportedProvider
	}
	return p, nil
}

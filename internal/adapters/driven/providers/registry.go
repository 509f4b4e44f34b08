package providers

import (
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-connect/internal/core/domain"
	"github.com/custodia-labs/sercha-connect/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.ProviderRegistry = (*Registry)(nil)

// Registry maps provider types to app providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[domain.ProviderType]driven.AppProvider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[domain.ProviderType]driven.AppProvider)}
}

// Register adds or replaces the provider for its type.
func (r *Registry) Register(p driven.AppProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Type()] = p
}

// GetAppProvider returns the provider for a type, or
// domain.ErrUnsupportedProvider.
func (r *Registry) GetAppProvider(providerType domain.ProviderType) (driven.AppProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[providerType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedProvider, providerType)
	}
	return p, nil
}

// SupportedTypes returns registered provider types in sorted order.
func (r *Registry) SupportedTypes() []domain.ProviderType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]domain.ProviderType, 0, len(r.providers))
	for t := range r.providers {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

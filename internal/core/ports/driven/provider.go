package driven

import (
	"context"

	"github.com/custodia-labs/sercha-connect/internal/core/domain"
)

// AppProvider is the adapter for one OAuth app provider.
type AppProvider interface {
	Type() domain.ProviderType

	// RefreshToken exchanges the connector's refresh token for a new
	// access token.
	RefreshToken(ctx context.Context, connector *domain.Connector) (*domain.RefreshResult, error)
}

// TokenValidator is an optional AppProvider capability. Providers without
// it are only checked against the stored expiry.
type TokenValidator interface {
	// ValidateToken reports whether the plaintext access token is still
	// accepted by the provider.
	ValidateToken(ctx context.Context, accessToken string) (bool, error)
}

// ProviderRegistry resolves app providers by type.
type ProviderRegistry interface {
	// GetAppProvider returns domain.ErrUnsupportedProvider when no adapter
	// is registered.
	GetAppProvider(providerType domain.ProviderType) (AppProvider, error)
}

package providers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/sercha-connect/internal/core/domain"
	"github.com/custodia-labs/sercha-connect/internal/core/ports/driven"
)

// SecretOpener opens sealed refresh tokens.
type SecretOpener interface {
	Open(ctx context.Context, sealed string) (string, error)
}

// Ensure OAuth2Provider implements the interface.
var _ driven.AppProvider = (*OAuth2Provider)(nil)

// OAuth2Provider refreshes access tokens with the standard refresh_token
// grant.
type OAuth2Provider struct {
	providerType domain.ProviderType
	config       *oauth2.Config
	opener       SecretOpener
	httpClient   *http.Client
	now          func() time.Time
}

// NewOAuth2Provider creates a provider for providerType using config.
func NewOAuth2Provider(providerType domain.ProviderType, config *oauth2.Config, opener SecretOpener, httpClient *http.Client) *OAuth2Provider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &OAuth2Provider{
		providerType: providerType,
		config:       config,
		opener:       opener,
		httpClient:   httpClient,
		now:          time.Now,
	}
}

func (p *OAuth2Provider) Type() domain.ProviderType {
	return p.providerType
}

// RefreshToken exchanges the connector's refresh token for a new access
// token. RefreshResult.RefreshToken is set only when the provider rotated it.
func (p *OAuth2Provider) RefreshToken(ctx context.Context, connector *domain.Connector) (*domain.RefreshResult, error) {
	if connector.EncryptedRefreshToken == "" {
		return nil, fmt.Errorf("connector %s has no refresh token", connector.ID)
	}
	refresh, err := p.opener.Open(ctx, connector.EncryptedRefreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: open refresh token: %w", domain.ErrCredential, err)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	token, err := p.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refresh}).Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.ErrorCode != "" {
			return nil, fmt.Errorf("refresh %s token: %s", p.providerType, re.ErrorCode)
		}
		return nil, fmt.Errorf("refresh %s token: %w", p.providerType, err)
	}

	result := &domain.RefreshResult{AccessToken: token.AccessToken}
	if token.RefreshToken != "" && token.RefreshToken != refresh {
		result.RefreshToken = token.RefreshToken
	}
	if !token.Expiry.IsZero() {
		secs := int(math.Round(token.Expiry.Sub(p.now()).Seconds()))
		result.ExpiresIn = &secs
	}
	return result, nil
}

package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/custodia-labs/sercha-connect/internal/core/ports/driven"
)

// Ensure GoogleProvider implements the interfaces.
var (
	_ driven.AppProvider    = (*GoogleProvider)(nil)
	_ driven.TokenValidator = (*GoogleProvider)(nil)
)

// GoogleProvider serves Google Drive and Gmail. Tokens are checked against
// the tokeninfo endpoint.
type GoogleProvider struct {
	*OAuth2Provider
	endpoint string
}

// NewGoogleProvider wraps an OAuth2 provider with tokeninfo validation.
// endpoint is the Google API base URL.
func NewGoogleProvider(base *OAuth2Provider, endpoint string) *GoogleProvider {
	if endpoint == "" {
		endpoint = googleValidationURL
	}
	return &GoogleProvider{OAuth2Provider: base, endpoint: endpoint}
}

// ValidateToken reports whether Google still accepts the access token.
// A 400 or 401 from tokeninfo means the token is invalid; any other error
// is returned.
func (p *GoogleProvider) ValidateToken(ctx context.Context, accessToken string) (bool, error) {
	svc, err := oauth2api.NewService(ctx,
		option.WithHTTPClient(p.httpClient),
		option.WithEndpoint(p.endpoint),
	)
	if err != nil {
		return false, fmt.Errorf("create tokeninfo client: %w", err)
	}

	info, err := svc.Tokeninfo().AccessToken(accessToken).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && (gerr.Code == http.StatusBadRequest || gerr.Code == http.StatusUnauthorized) {
			return false, nil
		}
		return false, fmt.Errorf("tokeninfo: %w", err)
	}
	return info.ExpiresIn > 0, nil
}

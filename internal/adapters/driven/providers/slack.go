package providers

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/custodia-labs/sercha-connect/internal/core/ports/driven"
)

// Ensure SlackProvider implements the interfaces.
var (
	_ driven.AppProvider    = (*SlackProvider)(nil)
	_ driven.TokenValidator = (*SlackProvider)(nil)
)

// Slack error codes that mean the token itself is no good.
var slackInvalidTokenErrors = map[string]bool{
	"invalid_auth":     true,
	"not_authed":       true,
	"token_revoked":    true,
	"token_expired":    true,
	"account_inactive": true,
}

// SlackProvider validates tokens with auth.test.
type SlackProvider struct {
	*OAuth2Provider
	apiURL string
}

// NewSlackProvider wraps an OAuth2 provider with auth.test validation.
// apiURL is the Slack Web API base URL, ending in a slash.
func NewSlackProvider(base *OAuth2Provider, apiURL string) *SlackProvider {
	if apiURL == "" {
		apiURL = slackAPIURL
	}
	return &SlackProvider{OAuth2Provider: base, apiURL: apiURL}
}

func (p *SlackProvider) ValidateToken(ctx context.Context, accessToken string) (bool, error) {
	client := slack.New(accessToken,
		slack.OptionAPIURL(p.apiURL),
		slack.OptionHTTPClient(p.httpClient),
	)

	if _, err := client.AuthTestContext(ctx); err != nil {
		if slackInvalidTokenErrors[err.Error()] {
			return false, nil
		}
		return false, fmt.Errorf("slack auth.test: %w", err)
	}
	return true, nil
}

package providers

import (
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"

	"github.com/custodia-labs/sercha-connect/internal/core/domain"
)

// Config is the OAuth client configuration of one provider, as read from
// the providers file.
type Config struct {
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	Scopes       []string `yaml:"scopes,omitempty"`

	// TokenURL overrides the provider's default token endpoint.
	TokenURL string `yaml:"token_url,omitempty"`

	// ValidationURL overrides the token validation endpoint (Google
	// tokeninfo base URL, Slack API base URL).
	ValidationURL string `yaml:"validation_url,omitempty"`

	// Tenant selects the Microsoft identity tenant. Default "common".
	Tenant string `yaml:"tenant,omitempty"`
}

// Defaults are a provider's built-in endpoints.
type Defaults struct {
	Endpoint      oauth2.Endpoint
	ValidationURL string
}

const (
	googleValidationURL = "https://www.googleapis.com/"
	slackAPIURL         = "https://slack.com/api/"
	notionTokenURL      = "https://api.notion.com/v1/oauth/token"
	slackTokenURL       = "https://slack.com/api/oauth.v2.access"
)

// DefaultsFor returns the built-in endpoints for a provider type.
func DefaultsFor(providerType domain.ProviderType, cfg Config) (Defaults, bool) {
	switch providerType {
	case domain.ProviderTypeGoogleDrive, domain.ProviderTypeGmail:
		return Defaults{Endpoint: google.Endpoint, ValidationURL: googleValidationURL}, true
	case domain.ProviderTypeSlack:
		return Defaults{
			Endpoint: oauth2.Endpoint{
				AuthURL:   "https://slack.com/oauth/v2/authorize",
				TokenURL:  slackTokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
			ValidationURL: slackAPIURL,
		}, true
	case domain.ProviderTypeOutlook:
		tenant := cfg.Tenant
		if tenant == "" {
			tenant = "common"
		}
		return Defaults{Endpoint: microsoft.AzureADEndpoint(tenant)}, true
	case domain.ProviderTypeNotion:
		return Defaults{Endpoint: oauth2.Endpoint{
			AuthURL:   "https://api.notion.com/v1/oauth/authorize",
			TokenURL:  notionTokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		}}, true
	case domain.ProviderTypeGitHub:
		return Defaults{Endpoint: github.Endpoint}, true
	default:
		return Defaults{}, false
	}
}

func (c Config) oauth2Config(defaults Defaults) *oauth2.Config {
	endpoint := defaults.Endpoint
	if c.TokenURL != "" {
		endpoint.TokenURL = c.TokenURL
	}
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       c.Scopes,
	}
}

func (c Config) validationURL(defaults Defaults) string {
	if c.ValidationURL != "" {
		return c.ValidationURL
	}
	return defaults.ValidationURL
}

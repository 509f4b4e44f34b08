package domain

// ProviderType identifies a connector provider
type ProviderType string

const (
	// Google Workspace
	ProviderTypeGoogleDrive ProviderType = "google_drive"
	ProviderTypeGmail       ProviderType = "gmail"

	// Communication
	ProviderTypeSlack   ProviderType = "slack"
	ProviderTypeOutlook ProviderType = "outlook"

	// Documentation
	ProviderTypeNotion ProviderType = "notion"

	// Code repositories
	ProviderTypeGitHub ProviderType = "github"
)

// AppProviders returns the OAuth app providers with built-in adapters
func AppProviders() []ProviderType {
	return []ProviderType{
		ProviderTypeGoogleDrive,
		ProviderTypeGmail,
		ProviderTypeSlack,
		ProviderTypeOutlook,
		ProviderTypeNotion,
		ProviderTypeGitHub,
	}
}

// IsGoogle reports whether the provider authenticates against Google.
func (p ProviderType) IsGoogle() bool {
	return p == ProviderTypeGoogleDrive || p == ProviderTypeGmail
}

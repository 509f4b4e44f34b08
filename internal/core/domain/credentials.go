package domain

// EncryptedSecret is the output of the credential encryption service.
// All fields are base64. Salt is empty for the current scheme, where the
// key is held non-extractable and not derived per secret.
type EncryptedSecret struct {
	Ciphertext string `json:"ciphertext"`
	IV         string `json:"iv"`
	Salt       string `json:"salt"`
}

// EncryptionMetadata is the per-connector IV and salt needed to decrypt
// Connector.EncryptedToken
type EncryptionMetadata struct {
	ConnectorID string `json:"connector_id"`
	IV          string `json:"iv"`
	Salt        string `json:"salt"`

	// NonExtractable marks entries written by the current scheme.
	// Legacy entries carry a salt for password-based key derivation.
	NonExtractable bool `json:"non_extractable"`
}

// StoreKey returns the persistence key.
func (m *EncryptionMetadata) StoreKey() string {
	return m.ConnectorID
}

// RefreshResult is what a provider returns after refreshing an access token
type RefreshResult struct {
	AccessToken string

	// RefreshToken is set when the provider rotated the refresh token
	RefreshToken string

	// ExpiresIn is the lifetime in seconds; nil when the provider gave none
	ExpiresIn *int
}

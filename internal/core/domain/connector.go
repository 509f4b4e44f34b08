package domain

import (
	"fmt"
	"time"
)

// ConnectorCategory groups connectors by how they are attached
type ConnectorCategory string

const (
	ConnectorCategoryApp ConnectorCategory = "app" // OAuth-backed third-party account
	ConnectorCategoryAPI ConnectorCategory = "api" // API key integrations
	ConnectorCategoryMCP ConnectorCategory = "mcp" // MCP servers
)

// Valid reports whether c is a known category.
func (c ConnectorCategory) Valid() bool {
	switch c {
	case ConnectorCategoryApp, ConnectorCategoryAPI, ConnectorCategoryMCP:
		return true
	}
	return false
}

// ConnectorStatus is the connection health of a connector
type ConnectorStatus string

const (
	ConnectorStatusDisconnected ConnectorStatus = "disconnected"
	ConnectorStatusConnecting   ConnectorStatus = "connecting"
	ConnectorStatusConnected    ConnectorStatus = "connected"
	ConnectorStatusExpired      ConnectorStatus = "expired"
	ConnectorStatusError        ConnectorStatus = "error"
)

// Valid reports whether s is a known status.
func (s ConnectorStatus) Valid() bool {
	switch s {
	case ConnectorStatusDisconnected, ConnectorStatusConnecting, ConnectorStatusConnected,
		ConnectorStatusExpired, ConnectorStatusError:
		return true
	}
	return false
}

// CanTransitionTo reports whether a connector may move from s to next.
//
//	any                            -> connected, disconnected, error, itself
//	disconnected, expired, error   -> connecting
//	connected                      -> expired
func (s ConnectorStatus) CanTransitionTo(next ConnectorStatus) bool {
	if !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	switch next {
	case ConnectorStatusConnected, ConnectorStatusDisconnected, ConnectorStatusError:
		return true
	case ConnectorStatusConnecting:
		return s == ConnectorStatusDisconnected || s == ConnectorStatusExpired || s == ConnectorStatusError
	case ConnectorStatusExpired:
		return s == ConnectorStatusConnected
	}
	return false
}

// Connector is a configured link to an external account or service.
// Token fields hold ciphertext only; plaintext never reaches this struct.
type Connector struct {
	ID       string            `json:"id"`
	Provider ProviderType      `json:"provider"`
	Category ConnectorCategory `json:"category"`
	Name     string            `json:"name"`
	Status   ConnectorStatus   `json:"status"`

	// EncryptedToken is base64 AES-GCM ciphertext; its IV and salt live in
	// the encryption metadata store keyed by connector ID.
	EncryptedToken string `json:"encrypted_token,omitempty"`

	// EncryptedRefreshToken is a sealed envelope that carries its own nonce.
	EncryptedRefreshToken string `json:"encrypted_refresh_token,omitempty"`

	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty"`
	ErrorMessage   string     `json:"error_message,omitempty"`

	// AccountID is the provider account identifier (email, workspace)
	AccountID string   `json:"account_id,omitempty"`
	Scopes    []string `json:"scopes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StoreKey returns the persistence key.
func (c *Connector) StoreKey() string {
	return c.ID
}

// Clone returns a deep copy.
func (c *Connector) Clone() *Connector {
	if c == nil {
		return nil
	}
	out := *c
	if c.TokenExpiresAt != nil {
		t := *c.TokenExpiresAt
		out.TokenExpiresAt = &t
	}
	if c.Scopes != nil {
		out.Scopes = append([]string(nil), c.Scopes...)
	}
	return &out
}

// IsExpiredAt reports whether the access token expiry is at or before now.
// A connector without an expiry never expires on its own.
func (c *Connector) IsExpiredAt(now time.Time) bool {
	if c.TokenExpiresAt == nil {
		return false
	}
	return !c.TokenExpiresAt.After(now)
}

// ConnectorInput is the caller-supplied part of a new connector
type ConnectorInput struct {
	Provider              ProviderType      `json:"provider"`
	Category              ConnectorCategory `json:"category"`
	Name                  string            `json:"name"`
	Status                ConnectorStatus   `json:"status,omitempty"`
	EncryptedToken        string            `json:"encrypted_token,omitempty"`
	EncryptedRefreshToken string            `json:"encrypted_refresh_token,omitempty"`
	TokenExpiresAt        *time.Time        `json:"token_expires_at,omitempty"`
	AccountID             string            `json:"account_id,omitempty"`
	Scopes                []string          `json:"scopes,omitempty"`
}

// Validate checks required fields.
func (in ConnectorInput) Validate() error {
	if in.Provider == "" {
		return fmt.Errorf("%w: provider is required", ErrInvalidInput)
	}
	if !in.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidInput, in.Category)
	}
	if in.Status != "" && !in.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, in.Status)
	}
	return nil
}

// ConnectorPatch is a partial update; nil fields are left unchanged.
// An ErrorMessage pointing at "" clears the message.
type ConnectorPatch struct {
	Name                  *string          `json:"name,omitempty"`
	Status                *ConnectorStatus `json:"status,omitempty"`
	EncryptedToken        *string          `json:"encrypted_token,omitempty"`
	EncryptedRefreshToken *string          `json:"encrypted_refresh_token,omitempty"`
	TokenExpiresAt        *time.Time       `json:"token_expires_at,omitempty"`
	ClearTokenExpiry      bool             `json:"clear_token_expiry,omitempty"`
	ErrorMessage          *string          `json:"error_message,omitempty"`
	AccountID             *string          `json:"account_id,omitempty"`
	Scopes                []string         `json:"scopes,omitempty"`
}

// Apply merges the patch over c and returns the result. The ID, creation
// time and update time are left for the caller to pin.
func (p ConnectorPatch) Apply(c *Connector) (*Connector, error) {
	out := c.Clone()
	if p.Status != nil {
		if !c.Status.CanTransitionTo(*p.Status) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.Status, *p.Status)
		}
		out.Status = *p.Status
	}
	if p.Name != nil {
		out.Name = *p.Name
	}
	if p.EncryptedToken != nil {
		out.EncryptedToken = *p.EncryptedToken
	}
	if p.EncryptedRefreshToken != nil {
		out.EncryptedRefreshToken = *p.EncryptedRefreshToken
	}
	switch {
	case p.ClearTokenExpiry:
		out.TokenExpiresAt = nil
	case p.TokenExpiresAt != nil:
		t := *p.TokenExpiresAt
		out.TokenExpiresAt = &t
	}
	if p.ErrorMessage != nil {
		out.ErrorMessage = *p.ErrorMessage
	}
	if p.AccountID != nil {
		out.AccountID = *p.AccountID
	}
	if p.Scopes != nil {
		out.Scopes = append([]string(nil), p.Scopes...)
	}
	return out, nil
}

// StatusPatch builds a patch that sets the status and the error message.
func StatusPatch(status ConnectorStatus, errorMessage string) ConnectorPatch {
	return ConnectorPatch{
		Status:       &status,
		ErrorMessage: &errorMessage,
	}
}

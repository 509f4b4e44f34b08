package mocks

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/sercha-connect/internal/core/domain"
	"github.com/custodia-labs/sercha-connect/internal/core/ports/driven"
)

// Ensure MockAuthAdapter implements AuthAdapter
var _ driven.AuthAdapter = (*MockAuthAdapter)(nil)

// MockAuthAdapter encodes claims as unsigned base64 JSON. Testing only.
type MockAuthAdapter struct {
	// ParseErr, when set, is returned by every ParseToken call
	ParseErr error
}

func NewMockAuthAdapter() *MockAuthAdapter {
	return &MockAuthAdapter{}
}

// Token returns a valid token for subject.
func (m *MockAuthAdapter) Token(subject string) string {
	tok, _ := m.GenerateToken(&domain.TokenClaims{Subject: subject})
	return tok
}

func (m *MockAuthAdapter) GenerateToken(claims *domain.TokenClaims) (string, error) {
	data, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("failed to marshal claims: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func (m *MockAuthAdapter) ParseToken(token string) (*domain.TokenClaims, error) {
	if m.ParseErr != nil {
		return nil, m.ParseErr
	}
	data, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}

	var claims domain.TokenClaims
	if err := json.Unmarshal(data, &claims); err != nil || claims.Subject == "" {
		return nil, domain.ErrTokenInvalid
	}
	return &claims, nil
}

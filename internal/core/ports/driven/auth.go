package driven

import "github.com/custodia-labs/sercha-connect/internal/core/domain"

// AuthAdapter signs and verifies API bearer tokens.
type AuthAdapter interface {
	GenerateToken(claims *domain.TokenClaims) (string, error)
	ParseToken(token string) (*domain.TokenClaims, error)
}

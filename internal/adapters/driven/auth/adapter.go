package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/custodia-labs/sercha-connect/internal/core/domain"
	"github.com/custodia-labs/sercha-connect/internal/core/ports/driven"
)

// Ensure Adapter implements AuthAdapter
var _ driven.AuthAdapter = (*Adapter)(nil)

// Issuer is written to and required in every token.
const Issuer = "sercha-connect"

// Adapter signs and verifies HS256 bearer tokens for the API
type Adapter struct {
	jwtSecret []byte
	now       func() time.Time
}

// NewAdapter creates a new auth adapter with the given JWT secret
func NewAdapter(jwtSecret string) *Adapter {
	return &Adapter{jwtSecret: []byte(jwtSecret), now: time.Now}
}

// IssueToken creates claims for subject valid for ttl and signs them.
func (a *Adapter) IssueToken(subject string, ttl time.Duration) (string, error) {
	now := a.now()
	return a.GenerateToken(&domain.TokenClaims{
		Subject:   subject,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	})
}

// GenerateToken creates a signed JWT from domain claims
func (a *Adapter) GenerateToken(claims *domain.TokenClaims) (string, error) {
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: token subject is required", domain.ErrInvalidInput)
	}

	rc := jwt.RegisteredClaims{
		Issuer:   Issuer,
		Subject:  claims.Subject,
		IssuedAt: jwt.NewNumericDate(time.Unix(claims.IssuedAt, 0)),
	}
	if claims.ExpiresAt != 0 {
		rc.ExpiresAt = jwt.NewNumericDate(time.Unix(claims.ExpiresAt, 0))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, rc)
	return token.SignedString(a.jwtSecret)
}

// ParseToken validates a JWT and extracts domain claims.
// Expired tokens return domain.ErrTokenExpired, anything else that fails
// verification returns domain.ErrTokenInvalid.
func (a *Adapter) ParseToken(tokenString string) (*domain.TokenClaims, error) {
	var rc jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &rc, func(token *jwt.Token) (interface{}, error) {
		return a.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}
	if !token.Valid || rc.Subject == "" {
		return nil, domain.ErrTokenInvalid
	}

	claims := &domain.TokenClaims{Subject: rc.Subject}
	if rc.IssuedAt != nil {
		claims.IssuedAt = rc.IssuedAt.Unix()
	}
	if rc.ExpiresAt != nil {
		claims.ExpiresAt = rc.ExpiresAt.Unix()
	}
	return claims, nil
}

package domain

import "time"

// TokenClaims represents the API bearer token payload
type TokenClaims struct {
	Subject   string `json:"sub"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// IsExpiredAt checks if the claims have expired at the given time
func (c *TokenClaims) IsExpiredAt(now time.Time) bool {
	return c.ExpiresAt != 0 && now.Unix() >= c.ExpiresAt
}

// AuthContext identifies the caller of an API request
type AuthContext struct {
	Subject string `json:"subject"`
}

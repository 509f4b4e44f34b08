package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/custodia-labs/sercha-connect/internal/core/domain"
)

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestNewAdapter(t *testing.T) {
	adapter := NewAdapter("test-secret")
	if string(adapter.jwtSecret) != "test-secret" {
		t.Error("expected jwt secret to be set")
	}
}

func TestGenerateAndParseToken(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	adapter := NewAdapter("test-secret")
	adapter.now = fixedNow(now)

	token, err := adapter.GenerateToken(&domain.TokenClaims{
		Subject:   "desktop-app",
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := adapter.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.Subject != "desktop-app" {
		t.Errorf("subject: got %q", claims.Subject)
	}
	if claims.IssuedAt != now.Unix() {
		t.Errorf("iat: got %d", claims.IssuedAt)
	}
	if claims.ExpiresAt != now.Add(time.Hour).Unix() {
		t.Errorf("exp: got %d", claims.ExpiresAt)
	}
}

func TestIssueToken(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	adapter := NewAdapter("test-secret")
	adapter.now = fixedNow(now)

	token, err := adapter.IssueToken("worker", 24*time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	claims, err := adapter.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.IsExpiredAt(now.Add(23 * time.Hour)) {
		t.Error("token expired too early")
	}
	if !claims.IsExpiredAt(now.Add(24 * time.Hour)) {
		t.Error("token should be expired after its ttl")
	}
}

func TestGenerateToken_RequiresSubject(t *testing.T) {
	_, err := NewAdapter("s").GenerateToken(&domain.TokenClaims{})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestParseToken_Expired(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	adapter := NewAdapter("test-secret")
	adapter.now = fixedNow(now)

	token, _ := adapter.IssueToken("worker", time.Minute)

	adapter.now = fixedNow(now.Add(2 * time.Minute))
	if _, err := adapter.ParseToken(token); !errors.Is(err, domain.ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestParseToken_Invalid(t *testing.T) {
	adapter := NewAdapter("test-secret")
	good, _ := adapter.IssueToken("worker", time.Hour)

	otherSecret, _ := NewAdapter("other-secret").IssueToken("worker", time.Hour)

	noneToken, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Issuer:  Issuer,
		Subject: "worker",
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	wrongIssuer, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:  "someone-else",
		Subject: "worker",
	}).SignedString([]byte("test-secret"))

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-jwt"},
		{"empty", ""},
		{"wrong secret", otherSecret},
		{"alg none", noneToken},
		{"wrong issuer", wrongIssuer},
		{"tampered", good[:len(good)-2] + "xx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := adapter.ParseToken(tt.token); !errors.Is(err, domain.ErrTokenInvalid) {
				t.Errorf("expected ErrTokenInvalid, got %v", err)
			}
		})
	}
}

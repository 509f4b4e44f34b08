package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		msg  string
	}{
		{"ErrNotFound", ErrNotFound, "not found"},
		{"ErrInvalidInput", ErrInvalidInput, "invalid input"},
		{"ErrInvalidTransition", ErrInvalidTransition, "invalid status transition"},
		{"ErrPersistence", ErrPersistence, "persistence failure"},
		{"ErrCredential", ErrCredential, "credential failure"},
		{"ErrProvider", ErrProvider, "provider failure"},
		{"ErrUnsupportedProvider", ErrUnsupportedProvider, "unsupported provider"},
		{"ErrNotInitialized", ErrNotInitialized, "not initialized"},
		{"ErrUnauthorized", ErrUnauthorized, "unauthorized"},
		{"ErrTokenExpired", ErrTokenExpired, "token expired"},
		{"ErrTokenInvalid", ErrTokenInvalid, "token invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.msg {
				t.Errorf("expected %q, got %q", tt.msg, tt.err.Error())
			}
		})
	}
}

func TestPersistenceErrorWrapsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := fmt.Errorf("%w: %w", ErrPersistence, cause)

	if !errors.Is(err, ErrPersistence) {
		t.Error("expected errors.Is(err, ErrPersistence)")
	}
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is(err, cause)")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("persistence failure must not match ErrNotFound")
	}
}

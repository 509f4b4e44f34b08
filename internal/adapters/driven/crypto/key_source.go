package crypto

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// KeySource supplies the 32-byte master key.
type KeySource interface {
	MasterKey(ctx context.Context) ([]byte, error)
}

// StaticKey is a master key supplied through configuration.
type StaticKey []byte

func (k StaticKey) MasterKey(context.Context) ([]byte, error) {
	if len(k) != keySize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidKeySize, len(k))
	}
	return []byte(k), nil
}

// ParseKey decodes a base64 master key.
func ParseKey(encoded string) (StaticKey, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode master key: %w", err)
	}
	if len(key) != keySize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidKeySize, len(key))
	}
	return StaticKey(key), nil
}

// GenerateKey returns a new random master key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate master key: %w", err)
	}
	return key, nil
}

package driven

import (
	"context"

	"github.com/custodia-labs/sercha-connect/internal/core/domain"
)

// CredentialEncryptor encrypts connector tokens at rest.
type CredentialEncryptor interface {
	// Init loads the key material. Must be called before the first Encrypt
	// in a session; repeated calls are no-ops.
	Init(ctx context.Context) error

	// Encrypt returns base64 ciphertext with a fresh IV. The IV and salt are
	// stored separately in the encryption metadata store.
	Encrypt(ctx context.Context, plaintext string) (*domain.EncryptedSecret, error)

	// Decrypt reverses Encrypt. A non-empty salt selects the legacy
	// password-derived key.
	Decrypt(ctx context.Context, ciphertext, iv, salt string) (string, error)

	// Seal produces a self-contained envelope (nonce included). Used for
	// refresh tokens, which have no metadata entry of their own.
	Seal(ctx context.Context, plaintext string) (string, error)

	// Open reverses Seal.
	Open(ctx context.Context, sealed string) (string, error)
}

// EncryptionMetadataStore holds the per-connector IV and salt.
type EncryptionMetadataStore interface {
	// Get returns domain.ErrNotFound when no entry exists.
	Get(ctx context.Context, connectorID string) (*domain.EncryptionMetadata, error)
	Put(ctx context.Context, meta *domain.EncryptionMetadata) error
	Delete(ctx context.Context, connectorID string) error
}

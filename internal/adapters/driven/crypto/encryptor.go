package crypto

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/pbkdf2"

	"github.com/custodia-labs/sercha-connect/internal/core/domain"
	"github.com/custodia-labs/sercha-connect/internal/core/ports/driven"
)

const (
	// sealVersion is the first byte of every sealed envelope.
	sealVersion = 0x01

	nonceSize = 12
	keySize   = 32

	// Legacy secrets were encrypted with a key derived per secret from the
	// master key and a random salt.
	legacyIterations = 100000
)

var (
	ErrInvalidKeySize     = errors.New("encryption key must be 32 bytes")
	ErrInvalidBlobSize    = errors.New("encrypted blob is too small")
	ErrUnsupportedVersion = errors.New("unsupported secret blob version")

	// ErrDecryptionFailed covers a wrong key and corrupted data alike.
	ErrDecryptionFailed = errors.New("failed to decrypt secret")
)

// Verify interface compliance
var _ driven.CredentialEncryptor = (*Encryptor)(nil)

// Encryptor implements CredentialEncryptor with AES-256-GCM.
//
// Access tokens use a detached IV which the caller stores in the
// encryption metadata store. Refresh tokens are sealed into a single
// envelope: version(1) || nonce(12) || ciphertext, base64 encoded.
type Encryptor struct {
	source KeySource

	mu     sync.RWMutex
	master []byte
	gcm    cipher.AEAD
}

// NewEncryptor creates an encryptor that loads its key from source on Init.
func NewEncryptor(source KeySource) *Encryptor {
	return &Encryptor{source: source}
}

// Init loads the master key. Later calls are no-ops once it has succeeded.
func (e *Encryptor) Init(ctx context.Context) error {
	e.mu.RLock()
	ready := e.gcm != nil
	e.mu.RUnlock()
	if ready {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gcm != nil {
		return nil
	}

	key, err := e.source.MasterKey(ctx)
	if err != nil {
		return fmt.Errorf("%w: load master key: %w", domain.ErrCredential, err)
	}
	gcm, err := newGCM(key)
	if err != nil {
		return err
	}
	e.master = key
	e.gcm = gcm
	return nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidKeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return gcm, nil
}

func (e *Encryptor) keys() (cipher.AEAD, []byte, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.gcm == nil {
		return nil, nil, fmt.Errorf("encryptor: %w", domain.ErrNotInitialized)
	}
	return e.gcm, e.master, nil
}

// Encrypt encrypts plaintext under a fresh random IV. Salt is always empty.
func (e *Encryptor) Encrypt(_ context.Context, plaintext string) (*domain.EncryptedSecret, error) {
	gcm, _, err := e.keys()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	return &domain.EncryptedSecret{
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
		IV:         base64.StdEncoding.EncodeToString(nonce),
	}, nil
}

// Decrypt reverses Encrypt. A non-empty salt selects the legacy
// PBKDF2-derived key.
func (e *Encryptor) Decrypt(_ context.Context, ciphertext, iv, salt string) (string, error) {
	gcm, master, err := e.keys()
	if err != nil {
		return "", err
	}

	ct, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: decode ciphertext: %w", ErrDecryptionFailed, err)
	}
	nonce, err := base64.StdEncoding.DecodeString(iv)
	if err != nil {
		return "", fmt.Errorf("%w: decode iv: %w", ErrDecryptionFailed, err)
	}
	if len(nonce) != nonceSize {
		return "", fmt.Errorf("%w: iv is %d bytes", ErrInvalidBlobSize, len(nonce))
	}

	if salt != "" {
		saltBytes, err := base64.StdEncoding.DecodeString(salt)
		if err != nil {
			return "", fmt.Errorf("%w: decode salt: %w", ErrDecryptionFailed, err)
		}
		gcm, err = newGCM(DeriveLegacyKey(master, saltBytes))
		if err != nil {
			return "", err
		}
	}

	plaintext, err := gcm.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}

// DeriveLegacyKey reproduces the per-secret key of the salted scheme.
func DeriveLegacyKey(master, salt []byte) []byte {
	return pbkdf2.Key(master, salt, legacyIterations, keySize, sha256.New)
}

// Seal encrypts plaintext into a self-contained envelope.
func (e *Encryptor) Seal(_ context.Context, plaintext string) (string, error) {
	gcm, _, err := e.keys()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	ciphertext := gcm.Seal(nil, nonce, []byte(plaintext), nil)

	blob := make([]byte, 1+nonceSize+len(ciphertext))
	blob[0] = sealVersion
	copy(blob[1:1+nonceSize], nonce)
	copy(blob[1+nonceSize:], ciphertext)

	return base64.StdEncoding.EncodeToString(blob), nil
}

// Open reverses Seal.
func (e *Encryptor) Open(_ context.Context, sealed string) (string, error) {
	gcm, _, err := e.keys()
	if err != nil {
		return "", err
	}

	blob, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("%w: decode envelope: %w", ErrDecryptionFailed, err)
	}
	if len(blob) < 1+nonceSize+gcm.Overhead() {
		return "", ErrInvalidBlobSize
	}
	if blob[0] != sealVersion {
		return "", fmt.Errorf("%w: got version %d", ErrUnsupportedVersion, blob[0])
	}

	plaintext, err := gcm.Open(nil, blob[1:1+nonceSize], blob[1+nonceSize:], nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}

package mocks

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-connect/internal/core/domain"
)

// MockEncryptor is a reversible fake encryptor. Ciphertext is the plaintext
// with an "enc:" prefix and every call hands out a new IV.
type MockEncryptor struct {
	mu        sync.Mutex
	ivCounter int

	InitCalls  int
	InitErr    error
	EncryptErr error
	DecryptFn  func(ciphertext, iv, salt string) (string, error)
}

func NewMockEncryptor() *MockEncryptor {
	return &MockEncryptor{}
}

func (m *MockEncryptor) Init(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InitCalls++
	return m.InitErr
}

func (m *MockEncryptor) Encrypt(ctx context.Context, plaintext string) (*domain.EncryptedSecret, error) {
	if m.EncryptErr != nil {
		return nil, m.EncryptErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ivCounter++
	return &domain.EncryptedSecret{
		Ciphertext: "enc:" + plaintext,
		IV:         fmt.Sprintf("iv-%d", m.ivCounter),
	}, nil
}

func (m *MockEncryptor) Decrypt(ctx context.Context, ciphertext, iv, salt string) (string, error) {
	if m.DecryptFn != nil {
		return m.DecryptFn(ciphertext, iv, salt)
	}
	if !strings.HasPrefix(ciphertext, "enc:") {
		return "", fmt.Errorf("%w: bad ciphertext", domain.ErrCredential)
	}
	return strings.TrimPrefix(ciphertext, "enc:"), nil
}

func (m *MockEncryptor) Seal(ctx context.Context, plaintext string) (string, error) {
	if m.EncryptErr != nil {
		return "", m.EncryptErr
	}
	return "sealed:" + plaintext, nil
}

func (m *MockEncryptor) Open(ctx context.Context, sealed string) (string, error) {
	if !strings.HasPrefix(sealed, "sealed:") {
		return "", fmt.Errorf("%w: bad envelope", domain.ErrCredential)
	}
	return strings.TrimPrefix(sealed, "sealed:"), nil
}

// MockMetadataStore is an in-memory EncryptionMetadataStore.
type MockMetadataStore struct {
	mu      sync.RWMutex
	entries map[string]*domain.EncryptionMetadata

	GetErr error
	PutErr error
}

func NewMockMetadataStore() *MockMetadataStore {
	return &MockMetadataStore{entries: make(map[string]*domain.EncryptionMetadata)}
}

func (m *MockMetadataStore) Get(ctx context.Context, connectorID string) (*domain.EncryptionMetadata, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	meta, ok := m.entries[connectorID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *meta
	return &cp, nil
}

func (m *MockMetadataStore) Put(ctx context.Context, meta *domain.EncryptionMetadata) error {
	if m.PutErr != nil {
		return m.PutErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *meta
	m.entries[meta.ConnectorID] = &cp
	return nil
}

func (m *MockMetadataStore) Delete(ctx context.Context, connectorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, connectorID)
	return nil
}

func (m *MockMetadataStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

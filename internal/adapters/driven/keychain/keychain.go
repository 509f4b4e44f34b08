// Package keychain keeps the credential master key and per-connector
// encryption metadata in the OS keyring.
package keychain

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/zalando/go-keyring"

	"github.com/custodia-labs/sercha-connect/internal/adapters/driven/crypto"
	"github.com/custodia-labs/sercha-connect/internal/core/domain"
	"github.com/custodia-labs/sercha-connect/internal/core/ports/driven"
)

// DefaultService is the keyring service name entries are filed under.
const DefaultService = "sercha-connect"

const masterKeyUser = "master-key"

// Verify interface compliance
var (
	_ crypto.KeySource               = (*KeySource)(nil)
	_ driven.EncryptionMetadataStore = (*MetadataStore)(nil)
)

// KeySource loads the master key from the keyring, generating and storing
// one on first use.
type KeySource struct {
	service string
	mu      sync.Mutex
}

// NewKeySource creates a key source for service (DefaultService when empty).
func NewKeySource(service string) *KeySource {
	if service == "" {
		service = DefaultService
	}
	return &KeySource{service: service}
}

func (k *KeySource) MasterKey(_ context.Context) ([]byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	encoded, err := keyring.Get(k.service, masterKeyUser)
	if err == nil {
		key, err := crypto.ParseKey(encoded)
		if err != nil {
			return nil, fmt.Errorf("keyring master key: %w", err)
		}
		return key, nil
	}
	if !errors.Is(err, keyring.ErrNotFound) {
		return nil, fmt.Errorf("read keyring: %w", err)
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	if err := keyring.Set(k.service, masterKeyUser, base64.StdEncoding.EncodeToString(key)); err != nil {
		return nil, fmt.Errorf("store master key in keyring: %w", err)
	}
	return key, nil
}

// MetadataStore keeps one keyring entry per connector.
type MetadataStore struct {
	service string
}

// NewMetadataStore creates a metadata store for service.
func NewMetadataStore(service string) *MetadataStore {
	if service == "" {
		service = DefaultService
	}
	return &MetadataStore{service: service}
}

func metadataUser(connectorID string) string {
	return "connector-" + connectorID + "-encryption"
}

func (m *MetadataStore) Get(_ context.Context, connectorID string) (*domain.EncryptionMetadata, error) {
	data, err := keyring.Get(m.service, metadataUser(connectorID))
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read encryption metadata %s: %w", connectorID, err)
	}

	var meta domain.EncryptionMetadata
	if err := json.Unmarshal([]byte(data), &meta); err != nil {
		return nil, fmt.Errorf("decode encryption metadata %s: %w", connectorID, err)
	}
	if meta.ConnectorID == "" {
		meta.ConnectorID = connectorID
	}
	return &meta, nil
}

func (m *MetadataStore) Put(_ context.Context, meta *domain.EncryptionMetadata) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode encryption metadata: %w", err)
	}
	if err := keyring.Set(m.service, metadataUser(meta.ConnectorID), string(data)); err != nil {
		return fmt.Errorf("write encryption metadata %s: %w", meta.ConnectorID, err)
	}
	return nil
}

// Delete removes the entry. A missing entry is not an error.
func (m *MetadataStore) Delete(_ context.Context, connectorID string) error {
	err := keyring.Delete(m.service, metadataUser(connectorID))
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("delete encryption metadata %s: %w", connectorID, err)
	}
	return nil
}

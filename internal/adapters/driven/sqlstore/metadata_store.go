package sqlstore

import (
	"context"

	"github.com/custodia-labs/sercha-connect/internal/core/domain"
	"github.com/custodia-labs/sercha-connect/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.EncryptionMetadataStore = (*MetadataStore)(nil)

// MetadataStore keeps encryption metadata in the encryption_metadata table.
type MetadataStore struct {
	table *Table[*domain.EncryptionMetadata]
}

func (m *MetadataStore) Get(ctx context.Context, connectorID string) (*domain.EncryptionMetadata, error) {
	return m.table.Get(ctx, connectorID)
}

func (m *MetadataStore) Put(ctx context.Context, meta *domain.EncryptionMetadata) error {
	return m.table.Put(ctx, meta)
}

func (m *MetadataStore) Delete(ctx context.Context, connectorID string) error {
	return m.table.Delete(ctx, connectorID)
}

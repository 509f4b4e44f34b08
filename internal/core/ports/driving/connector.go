package driving

import (
	"context"

	"github.com/custodia-labs/sercha-connect/internal/core/domain"
)

// ConnectorService is the API used by handlers, schedulers and the UI to
// manage connectors, their sync state and their credentials.
type ConnectorService interface {
	// Initialize prepares the backend and loads the projection.
	Initialize(ctx context.Context) error

	// RefreshConnectors reloads both collections from persistence.
	RefreshConnectors(ctx context.Context) error

	AddConnector(ctx context.Context, input domain.ConnectorInput) (string, error)

	// UpdateConnector returns domain.ErrNotFound for an unknown id.
	UpdateConnector(ctx context.Context, id string, patch domain.ConnectorPatch) error

	// DeleteConnector removes the connector and its sync state.
	DeleteConnector(ctx context.Context, id string) error

	GetConnector(id string) (*domain.Connector, bool)

	// List accessors return connectors sorted by CreatedAt, newest first.
	GetConnectors() []*domain.Connector
	GetConnectorsByCategory(category domain.ConnectorCategory) []*domain.Connector
	GetConnectorsByStatus(status domain.ConnectorStatus) []*domain.Connector
	GetAppConnectors() []*domain.Connector
	GetAPIConnectors() []*domain.Connector
	GetMCPConnectors() []*domain.Connector

	UpdateSyncState(ctx context.Context, connectorID string, patch domain.SyncStatePatch, opts domain.SyncUpdateOptions) error
	GetSyncState(connectorID string) (*domain.SyncState, bool)

	SetConnectorStatus(ctx context.Context, id string, status domain.ConnectorStatus, errorMessage string) error

	// ValidateConnectorTokens checks every connected app connector. It
	// never fails; problems only change the affected connector's status.
	ValidateConnectorTokens(ctx context.Context)

	// RefreshConnectorToken reports whether the access token was renewed.
	RefreshConnectorToken(ctx context.Context, id string) bool

	// Loading reports whether a mutating operation is in flight.
	Loading() bool
}

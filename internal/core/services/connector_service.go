package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-connect/internal/core/domain"
	"github.com/custodia-labs/sercha-connect/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-connect/internal/core/ports/driving"
)

// Ensure ConnectorService implements the driving port
var _ driving.ConnectorService = (*ConnectorService)(nil)

// ConnectorService wires the registry, sync-state tracker and credential
// manager around one backend and one projection. Construct one per
// process and inject it where needed.
type ConnectorService struct {
	backend     driven.Backend
	projection  *Projection
	registry    *ConnectorRegistry
	tracker     *SyncStateTracker
	credentials *CredentialManager
	notifier    driven.Notifier
	clock       func() time.Time
	logger      *slog.Logger

	mu        sync.Mutex
	stopWatch func()
}

// ConnectorServiceConfig holds dependencies for ConnectorService.
type ConnectorServiceConfig struct {
	Backend   driven.Backend
	Providers driven.ProviderRegistry
	Encryptor driven.CredentialEncryptor
	Metadata  driven.EncryptionMetadataStore
	Notifier  driven.Notifier // Optional
	Logger    *slog.Logger

	Clock       func() time.Time // Optional
	IDGenerator func() string    // Optional

	// ValidationConcurrency caps parallel token validations (0 = unbounded)
	ValidationConcurrency int
}

// NewConnectorService creates a new connector service.
func NewConnectorService(cfg ConnectorServiceConfig) *ConnectorService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := clockOrNow(cfg.Clock)
	newID := idGeneratorOrUUID(cfg.IDGenerator)
	projection := NewProjection()
	snapshots, _ := cfg.Backend.(driven.Snapshotter)

	registry := NewConnectorRegistry(ConnectorRegistryConfig{
		Connectors:  cfg.Backend.Connectors(),
		SyncStates:  cfg.Backend.SyncStates(),
		Snapshots:   snapshots,
		Projection:  projection,
		Notifier:    cfg.Notifier,
		Clock:       clock,
		IDGenerator: newID,
		Logger:      logger.With("component", "connector_registry"),
	})

	return &ConnectorService{
		backend:    cfg.Backend,
		projection: projection,
		registry:   registry,
		tracker: NewSyncStateTracker(SyncStateTrackerConfig{
			Store:       cfg.Backend.SyncStates(),
			Projection:  projection,
			Notifier:    cfg.Notifier,
			Clock:       clock,
			IDGenerator: newID,
			Logger:      logger.With("component", "sync_state_tracker"),
		}),
		credentials: NewCredentialManager(CredentialManagerConfig{
			Registry:    registry,
			Providers:   cfg.Providers,
			Encryptor:   cfg.Encryptor,
			Metadata:    cfg.Metadata,
			Clock:       clock,
			Concurrency: cfg.ValidationConcurrency,
			Logger:      logger.With("component", "credential_manager"),
		}),
		notifier: notifierOrNop(cfg.Notifier),
		clock:    clock,
		logger:   logger,
	}
}

// Initialize prepares the backend, loads the projection and, for backends
// that can change under us, starts re-projecting on every observed change.
// The watch lives until ctx is done or Close is called.
func (s *ConnectorService) Initialize(ctx context.Context) error {
	if err := s.ensureInit(ctx); err != nil {
		return err
	}
	if err := s.registry.Refresh(ctx); err != nil {
		return err
	}

	observable, ok := s.backend.(driven.Observable)
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopWatch != nil {
		return nil
	}
	stop, err := observable.Watch(ctx, s.applySnapshot)
	if err != nil {
		return persistenceError(err)
	}
	s.stopWatch = stop
	s.logger.Info("watching shared connector map")
	return nil
}

// applySnapshot re-derives the projection from the full map contents.
func (s *ConnectorService) applySnapshot(snap driven.Snapshot) {
	s.projection.Replace(Project(snap))
}

// ensureInit runs the backend's idempotent Init and surfaces failures the
// same way any other persistence failure is surfaced.
func (s *ConnectorService) ensureInit(ctx context.Context) error {
	done := s.projection.beginLoading()
	defer done()

	if err := s.backend.Init(ctx); err != nil {
		err = persistenceError(err)
		s.logger.Error("failed to initialize persistence", "error", err)
		s.notifier.Notify(ctx, domain.Notification{
			Kind:        domain.NotificationError,
			Title:       TitleLoadFailed,
			Description: err.Error(),
			CreatedAt:   s.clock().UTC(),
		})
		return err
	}
	return nil
}

// Close stops watching the backend.
func (s *ConnectorService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopWatch != nil {
		s.stopWatch()
		s.stopWatch = nil
	}
}

func (s *ConnectorService) RefreshConnectors(ctx context.Context) error {
	if err := s.ensureInit(ctx); err != nil {
		return err
	}
	return s.registry.Refresh(ctx)
}

func (s *ConnectorService) AddConnector(ctx context.Context, input domain.ConnectorInput) (string, error) {
	if err := s.ensureInit(ctx); err != nil {
		return "", err
	}
	return s.registry.Add(ctx, input)
}

func (s *ConnectorService) UpdateConnector(ctx context.Context, id string, patch domain.ConnectorPatch) error {
	if err := s.ensureInit(ctx); err != nil {
		return err
	}
	return s.registry.Update(ctx, id, patch)
}

func (s *ConnectorService) DeleteConnector(ctx context.Context, id string) error {
	if err := s.ensureInit(ctx); err != nil {
		return err
	}
	if err := s.registry.Delete(ctx, id); err != nil {
		return err
	}
	s.tracker.Forget(id)
	s.credentials.ForgetConnector(ctx, id)
	return nil
}

func (s *ConnectorService) GetConnector(id string) (*domain.Connector, bool) {
	return s.registry.Get(id)
}

func (s *ConnectorService) GetConnectors() []*domain.Connector {
	return s.registry.List()
}

func (s *ConnectorService) GetConnectorsByCategory(category domain.ConnectorCategory) []*domain.Connector {
	return s.registry.ByCategory(category)
}

func (s *ConnectorService) GetConnectorsByStatus(status domain.ConnectorStatus) []*domain.Connector {
	return s.registry.ByStatus(status)
}

func (s *ConnectorService) GetAppConnectors() []*domain.Connector {
	return s.registry.ByCategory(domain.ConnectorCategoryApp)
}

func (s *ConnectorService) GetAPIConnectors() []*domain.Connector {
	return s.registry.ByCategory(domain.ConnectorCategoryAPI)
}

func (s *ConnectorService) GetMCPConnectors() []*domain.Connector {
	return s.registry.ByCategory(domain.ConnectorCategoryMCP)
}

func (s *ConnectorService) UpdateSyncState(ctx context.Context, connectorID string, patch domain.SyncStatePatch, opts domain.SyncUpdateOptions) error {
	if opts.Durability == domain.PersistDurable {
		if err := s.ensureInit(ctx); err != nil {
			return err
		}
	}
	return s.tracker.Update(ctx, connectorID, patch, opts)
}

func (s *ConnectorService) GetSyncState(connectorID string) (*domain.SyncState, bool) {
	return s.tracker.Get(connectorID)
}

func (s *ConnectorService) SetConnectorStatus(ctx context.Context, id string, status domain.ConnectorStatus, errorMessage string) error {
	if err := s.ensureInit(ctx); err != nil {
		return err
	}
	return s.registry.SetStatus(ctx, id, status, errorMessage)
}

func (s *ConnectorService) ValidateConnectorTokens(ctx context.Context) {
	if err := s.backend.Init(ctx); err != nil {
		s.logger.Error("skipping token validation, persistence unavailable", "error", err)
		return
	}
	s.credentials.ValidateConnectorTokens(ctx)
}

func (s *ConnectorService) RefreshConnectorToken(ctx context.Context, id string) bool {
	if err := s.backend.Init(ctx); err != nil {
		s.logger.Error("skipping token refresh, persistence unavailable", "connector_id", id, "error", err)
		return false
	}
	return s.credentials.RefreshConnectorToken(ctx, id)
}

func (s *ConnectorService) Loading() bool {
	return s.projection.Loading()
}

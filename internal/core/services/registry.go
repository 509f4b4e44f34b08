package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/custodia-labs/sercha-connect/internal/core/domain"
	"github.com/custodia-labs/sercha-connect/internal/core/ports/driven"
)

// ConnectorRegistry owns connector records. Writes go to persistence first
// and then to the shared projection; reads come from the projection only.
type ConnectorRegistry struct {
	connectors driven.Collection[*domain.Connector]
	syncStates driven.Collection[*domain.SyncState]
	snapshots  driven.Snapshotter
	projection *Projection
	notifier   driven.Notifier
	clock      func() time.Time
	newID      func() string
	logger     *slog.Logger
}

// ConnectorRegistryConfig holds dependencies for ConnectorRegistry.
type ConnectorRegistryConfig struct {
	Connectors  driven.Collection[*domain.Connector]
	SyncStates  driven.Collection[*domain.SyncState]
	Snapshots   driven.Snapshotter // Optional, used by Refresh when set
	Projection  *Projection
	Notifier    driven.Notifier  // Optional
	Clock       func() time.Time // Optional, defaults to time.Now
	IDGenerator func() string    // Optional, defaults to random UUIDs
	Logger      *slog.Logger
}

// NewConnectorRegistry creates a new connector registry.
func NewConnectorRegistry(cfg ConnectorRegistryConfig) *ConnectorRegistry {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	projection := cfg.Projection
	if projection == nil {
		projection = NewProjection()
	}

	return &ConnectorRegistry{
		connectors: cfg.Connectors,
		syncStates: cfg.SyncStates,
		snapshots:  cfg.Snapshots,
		projection: projection,
		notifier:   notifierOrNop(cfg.Notifier),
		clock:      clockOrNow(cfg.Clock),
		newID:      idGeneratorOrUUID(cfg.IDGenerator),
		logger:     logger,
	}
}

// Add creates a connector with a generated ID and returns the ID.
func (r *ConnectorRegistry) Add(ctx context.Context, input domain.ConnectorInput) (string, error) {
	done := r.projection.beginLoading()
	defer done()

	if err := input.Validate(); err != nil {
		return "", r.fail(ctx, true, TitleAddFailed, "", err)
	}

	status := input.Status
	if status == "" {
		status = domain.ConnectorStatusDisconnected
	}

	now := r.clock().UTC()
	connector := &domain.Connector{
		ID:                    r.newID(),
		Provider:              input.Provider,
		Category:              input.Category,
		Name:                  input.Name,
		Status:                status,
		EncryptedToken:        input.EncryptedToken,
		EncryptedRefreshToken: input.EncryptedRefreshToken,
		TokenExpiresAt:        input.TokenExpiresAt,
		AccountID:             input.AccountID,
		Scopes:                input.Scopes,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	if err := r.connectors.Put(ctx, connector); err != nil {
		return "", r.fail(ctx, true, TitleAddFailed, connector.ID, persistenceError(err))
	}
	r.projection.putConnector(connector)

	r.logger.Info("connector added",
		"connector_id", connector.ID,
		"provider", connector.Provider,
		"category", connector.Category,
	)
	return connector.ID, nil
}

// Update merges patch over the persisted connector.
// Returns domain.ErrNotFound if the ID is not in persistence.
func (r *ConnectorRegistry) Update(ctx context.Context, id string, patch domain.ConnectorPatch) error {
	return r.update(ctx, id, patch, true)
}

// UpdateSilently is Update for background work: failures are logged but
// never reach the notifier.
func (r *ConnectorRegistry) UpdateSilently(ctx context.Context, id string, patch domain.ConnectorPatch) error {
	return r.update(ctx, id, patch, false)
}

// SetStatus changes the status and replaces the error message.
func (r *ConnectorRegistry) SetStatus(ctx context.Context, id string, status domain.ConnectorStatus, errorMessage string) error {
	return r.update(ctx, id, domain.StatusPatch(status, errorMessage), true)
}

func (r *ConnectorRegistry) update(ctx context.Context, id string, patch domain.ConnectorPatch, loud bool) error {
	done := r.projection.beginLoading()
	defer done()

	existing, err := r.connectors.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return r.fail(ctx, loud, TitleUpdateFailed, id, fmt.Errorf("connector %s: %w", id, domain.ErrNotFound))
		}
		return r.fail(ctx, loud, TitleUpdateFailed, id, persistenceError(err))
	}

	next, err := patch.Apply(existing)
	if err != nil {
		return r.fail(ctx, loud, TitleUpdateFailed, id, err)
	}
	next.ID = existing.ID
	next.CreatedAt = existing.CreatedAt
	next.UpdatedAt = nextUpdatedAt(r.clock, existing.UpdatedAt)

	if err := r.connectors.Put(ctx, next); err != nil {
		return r.fail(ctx, loud, TitleUpdateFailed, id, persistenceError(err))
	}
	r.projection.putConnector(next)

	r.logger.Debug("connector updated", "connector_id", id, "status", next.Status)
	return nil
}

// Delete removes the connector and then its sync state. The two writes are
// independent; a sync state left behind by a failed second write is
// removed by the next Refresh.
func (r *ConnectorRegistry) Delete(ctx context.Context, id string) error {
	done := r.projection.beginLoading()
	defer done()

	if err := r.connectors.Delete(ctx, id); err != nil {
		return r.fail(ctx, true, TitleDeleteFailed, id, persistenceError(err))
	}

	if state, ok := r.projection.SyncState(id); ok {
		if err := r.syncStates.Delete(ctx, state.ID); err != nil {
			r.logger.Warn("failed to delete sync state, leaving it for the next refresh",
				"connector_id", id,
				"sync_state_id", state.ID,
				"error", err,
			)
		}
	}

	r.projection.removeConnector(id)
	r.logger.Info("connector deleted", "connector_id", id)
	return nil
}

// Refresh reloads connectors and sync states from persistence and replaces
// the projection. Sync states with no connector are deleted best-effort.
func (r *ConnectorRegistry) Refresh(ctx context.Context) error {
	done := r.projection.beginLoading()
	defer done()

	snap, err := r.load(ctx)
	if err != nil {
		return r.fail(ctx, true, TitleLoadFailed, "", persistenceError(err))
	}

	projected := Project(snap)
	r.projection.Replace(projected)

	for _, orphan := range orphanedSyncStates(snap, projected) {
		if !r.sweepable(ctx, orphan, projected) {
			r.logger.Debug("keeping sync state, connector appeared after the snapshot",
				"sync_state_id", orphan.ID,
				"connector_id", orphan.ConnectorID,
			)
			continue
		}
		if err := r.syncStates.Delete(ctx, orphan.ID); err != nil {
			r.logger.Warn("failed to sweep orphaned sync state",
				"sync_state_id", orphan.ID,
				"connector_id", orphan.ConnectorID,
				"error", err,
			)
			continue
		}
		r.logger.Info("swept orphaned sync state",
			"sync_state_id", orphan.ID,
			"connector_id", orphan.ConnectorID,
		)
	}

	r.logger.Debug("connectors refreshed",
		"connectors", len(projected.Connectors),
		"sync_states", len(projected.SyncStates),
	)
	return nil
}

// load reads both collections. Without a Snapshotter, sync states are read
// before connectors: a sync state is only written for a connector that
// already exists, so every sync state read here finds its connector in the
// second read unless the connector was deleted in between.
func (r *ConnectorRegistry) load(ctx context.Context) (driven.Snapshot, error) {
	if r.snapshots != nil {
		return r.snapshots.Snapshot(ctx)
	}

	states, err := r.syncStates.GetAll(ctx)
	if err != nil {
		return driven.Snapshot{}, err
	}
	conns, err := r.connectors.GetAll(ctx)
	if err != nil {
		return driven.Snapshot{}, err
	}
	return driven.Snapshot{Connectors: conns, SyncStates: states}, nil
}

// sweepable reports whether an orphaned sync state may be deleted. A losing
// duplicate always may. One whose connector was missing from the snapshot
// may only if the connector is still missing from persistence.
func (r *ConnectorRegistry) sweepable(ctx context.Context, orphan *domain.SyncState, projected *ProjectionState) bool {
	for _, c := range projected.Connectors {
		if c.ID == orphan.ConnectorID {
			return true
		}
	}
	_, err := r.connectors.Get(ctx, orphan.ConnectorID)
	return errors.Is(err, domain.ErrNotFound)
}

// Get returns a copy of the connector from the projection.
func (r *ConnectorRegistry) Get(id string) (*domain.Connector, bool) {
	return r.projection.Connector(id)
}

// List returns all connectors, newest first.
func (r *ConnectorRegistry) List() []*domain.Connector {
	return r.projection.Connectors(nil)
}

// ByCategory returns connectors in one category, newest first.
func (r *ConnectorRegistry) ByCategory(category domain.ConnectorCategory) []*domain.Connector {
	return r.projection.Connectors(func(c *domain.Connector) bool {
		return c.Category == category
	})
}

// ByStatus returns connectors with one status, newest first.
func (r *ConnectorRegistry) ByStatus(status domain.ConnectorStatus) []*domain.Connector {
	return r.projection.Connectors(func(c *domain.Connector) bool {
		return c.Status == status
	})
}

// fail logs err, notifies the user when loud, and returns err unchanged.
func (r *ConnectorRegistry) fail(ctx context.Context, loud bool, title, connectorID string, err error) error {
	r.logger.Error(title, "connector_id", connectorID, "error", err)
	if loud {
		r.notifier.Notify(ctx, domain.Notification{
			Kind:        domain.NotificationError,
			Title:       title,
			Description: err.Error(),
			ConnectorID: connectorID,
			CreatedAt:   r.clock().UTC(),
		})
	}
	return err
}

func persistenceError(err error) error {
	return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
}

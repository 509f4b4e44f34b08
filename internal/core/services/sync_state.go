package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-connect/internal/core/domain"
	"github.com/custodia-labs/sercha-connect/internal/core/ports/driven"
)

// SyncStateTracker applies sync-state patches per connector and notifies
// on status edges: a repeated write of the same status is silent.
type SyncStateTracker struct {
	store      driven.Collection[*domain.SyncState]
	projection *Projection
	notifier   driven.Notifier
	clock      func() time.Time
	newID      func() string
	logger     *slog.Logger

	// Updates for the same connector are serialized so that the previous
	// status seen by one call is the merged status of the call before it.
	locks sync.Map // connector ID -> *sync.Mutex
}

// SyncStateTrackerConfig holds dependencies for SyncStateTracker.
type SyncStateTrackerConfig struct {
	Store       driven.Collection[*domain.SyncState]
	Projection  *Projection
	Notifier    driven.Notifier
	Clock       func() time.Time
	IDGenerator func() string
	Logger      *slog.Logger
}

// NewSyncStateTracker creates a new sync state tracker.
func NewSyncStateTracker(cfg SyncStateTrackerConfig) *SyncStateTracker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	projection := cfg.Projection
	if projection == nil {
		projection = NewProjection()
	}

	return &SyncStateTracker{
		store:      cfg.Store,
		projection: projection,
		notifier:   notifierOrNop(cfg.Notifier),
		clock:      clockOrNow(cfg.Clock),
		newID:      idGeneratorOrUUID(cfg.IDGenerator),
		logger:     logger,
	}
}

// Update merges patch into the connector's sync state, creating it with
// defaults on first use. Returns domain.ErrNotFound if the connector is not
// in the projection.
//
// With PersistMemoryOnly the merged state is visible through Get at once
// but never written; the next reload from persistence discards it.
func (t *SyncStateTracker) Update(ctx context.Context, connectorID string, patch domain.SyncStatePatch, opts domain.SyncUpdateOptions) error {
	if connectorID == "" {
		return fmt.Errorf("%w: connector id is required", domain.ErrInvalidInput)
	}
	if err := patch.Validate(); err != nil {
		return err
	}

	mu := t.lockFor(connectorID)
	mu.Lock()
	defer mu.Unlock()

	if _, ok := t.projection.Connector(connectorID); !ok {
		return fmt.Errorf("connector %s: %w", connectorID, domain.ErrNotFound)
	}

	loud := opts.Notification == domain.NotifyLoud

	prev, exists := t.projection.SyncState(connectorID)
	var merged *domain.SyncState
	if exists {
		merged = patch.Apply(prev)
		merged.ID = prev.ID
		merged.ConnectorID = connectorID
	} else {
		merged = patch.Apply(domain.NewSyncState(t.newID(), connectorID))
	}

	if opts.Durability == domain.PersistDurable {
		if err := t.store.Put(ctx, merged); err != nil {
			err = persistenceError(err)
			t.logger.Error("failed to persist sync state", "connector_id", connectorID, "error", err)
			if loud {
				t.notify(ctx, domain.NotificationError, TitleSyncSaveError, err.Error(), connectorID)
			}
			return err
		}
	}

	if !t.projection.putSyncState(merged) {
		// Deleted while we were writing; Refresh sweeps the durable copy.
		return fmt.Errorf("connector %s: %w", connectorID, domain.ErrNotFound)
	}

	if !loud || patch.Status == nil {
		return nil
	}

	previous := domain.SyncStatusIdle
	if exists {
		previous = prev.Status
	}
	t.notifyEdge(ctx, connectorID, previous, patch, merged)
	return nil
}

// notifyEdge emits at most one notification for the previous -> new edge.
func (t *SyncStateTracker) notifyEdge(ctx context.Context, connectorID string, previous domain.SyncStatus, patch domain.SyncStatePatch, merged *domain.SyncState) {
	next := *patch.Status

	switch {
	case previous != domain.SyncStatusSyncing && next == domain.SyncStatusSyncing:
		t.notify(ctx, domain.NotificationInfo, TitleSyncStarted,
			fmt.Sprintf("Syncing %s", t.label(connectorID)), connectorID)

	case previous == domain.SyncStatusSyncing && next == domain.SyncStatusIdle:
		items := merged.ItemsSynced
		if patch.ItemsSynced != nil {
			items = *patch.ItemsSynced
		}
		t.notify(ctx, domain.NotificationSuccess, TitleSyncCompleted,
			fmt.Sprintf("Synced %d items from %s", items, t.label(connectorID)), connectorID)

	case previous == domain.SyncStatusSyncing && next == domain.SyncStatusError:
		msg := "Unknown error"
		if patch.ErrorMessage != nil && *patch.ErrorMessage != "" {
			msg = *patch.ErrorMessage
		}
		t.notify(ctx, domain.NotificationError, TitleSyncFailed, msg, connectorID)
	}
}

func (t *SyncStateTracker) notify(ctx context.Context, kind domain.NotificationKind, title, description, connectorID string) {
	t.notifier.Notify(ctx, domain.Notification{
		Kind:        kind,
		Title:       title,
		Description: description,
		ConnectorID: connectorID,
		CreatedAt:   t.clock().UTC(),
	})
}

// label names the connector for notification text.
func (t *SyncStateTracker) label(connectorID string) string {
	if c, ok := t.projection.Connector(connectorID); ok && c.Name != "" {
		return c.Name
	}
	return connectorID
}

func (t *SyncStateTracker) lockFor(connectorID string) *sync.Mutex {
	mu, _ := t.locks.LoadOrStore(connectorID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Forget drops the per-connector lock of a deleted connector.
func (t *SyncStateTracker) Forget(connectorID string) {
	t.locks.Delete(connectorID)
}

// Get returns a copy of the connector's sync state.
func (t *SyncStateTracker) Get(connectorID string) (*domain.SyncState, bool) {
	return t.projection.SyncState(connectorID)
}

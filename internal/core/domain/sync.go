package domain

import (
	"fmt"
	"time"
)

// SyncStatus represents the current state of a connector sync
type SyncStatus string

const (
	SyncStatusIdle    SyncStatus = "idle"
	SyncStatusSyncing SyncStatus = "syncing"
	SyncStatusError   SyncStatus = "error"
)

// Valid reports whether s is a known sync status.
func (s SyncStatus) Valid() bool {
	return s == SyncStatusIdle || s == SyncStatusSyncing || s == SyncStatusError
}

// SyncType distinguishes full resyncs from cursor-based ones
type SyncType string

const (
	SyncTypeFull        SyncType = "full"
	SyncTypeIncremental SyncType = "incremental"
)

// SyncState tracks synchronization progress for one connector.
// There is at most one live SyncState per ConnectorID.
type SyncState struct {
	ID           string     `json:"id"`
	ConnectorID  string     `json:"connector_id"`
	Cursor       *string    `json:"cursor,omitempty"` // Continuation token for incremental sync
	LastSyncAt   *time.Time `json:"last_sync_at,omitempty"`
	ItemsSynced  int        `json:"items_synced"`
	SyncType     SyncType   `json:"sync_type"`
	Status       SyncStatus `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// StoreKey returns the persistence key.
func (s *SyncState) StoreKey() string {
	return s.ID
}

// Clone returns a deep copy.
func (s *SyncState) Clone() *SyncState {
	if s == nil {
		return nil
	}
	out := *s
	if s.Cursor != nil {
		c := *s.Cursor
		out.Cursor = &c
	}
	if s.LastSyncAt != nil {
		t := *s.LastSyncAt
		out.LastSyncAt = &t
	}
	return &out
}

// NewSyncState returns the defaults applied before the first patch.
func NewSyncState(id, connectorID string) *SyncState {
	return &SyncState{
		ID:          id,
		ConnectorID: connectorID,
		ItemsSynced: 0,
		SyncType:    SyncTypeFull,
		Status:      SyncStatusIdle,
	}
}

// SyncStatePatch is a partial sync-state update; nil fields are unchanged.
type SyncStatePatch struct {
	Status       *SyncStatus `json:"status,omitempty"`
	Cursor       *string     `json:"cursor,omitempty"`
	ClearCursor  bool        `json:"clear_cursor,omitempty"`
	LastSyncAt   *time.Time  `json:"last_sync_at,omitempty"`
	ItemsSynced  *int        `json:"items_synced,omitempty"`
	SyncType     *SyncType   `json:"sync_type,omitempty"`
	ErrorMessage *string     `json:"error_message,omitempty"`
}

// Validate rejects values outside the model.
func (p SyncStatePatch) Validate() error {
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("%w: unknown sync status %q", ErrInvalidInput, *p.Status)
	}
	if p.SyncType != nil && *p.SyncType != SyncTypeFull && *p.SyncType != SyncTypeIncremental {
		return fmt.Errorf("%w: unknown sync type %q", ErrInvalidInput, *p.SyncType)
	}
	if p.ItemsSynced != nil && *p.ItemsSynced < 0 {
		return fmt.Errorf("%w: items synced must be >= 0", ErrInvalidInput)
	}
	return nil
}

// Apply layers the patch over s and returns the merged copy.
// ConnectorID and ID are never changed by a patch.
func (p SyncStatePatch) Apply(s *SyncState) *SyncState {
	out := s.Clone()
	if p.Status != nil {
		out.Status = *p.Status
	}
	switch {
	case p.ClearCursor:
		out.Cursor = nil
	case p.Cursor != nil:
		c := *p.Cursor
		out.Cursor = &c
	}
	if p.LastSyncAt != nil {
		t := *p.LastSyncAt
		out.LastSyncAt = &t
	}
	if p.ItemsSynced != nil {
		out.ItemsSynced = *p.ItemsSynced
	}
	if p.SyncType != nil {
		out.SyncType = *p.SyncType
	}
	if p.ErrorMessage != nil {
		out.ErrorMessage = *p.ErrorMessage
	}
	return out
}

// NotificationPolicy controls whether a sync-state update may notify the user
type NotificationPolicy int

const (
	NotifyLoud NotificationPolicy = iota
	NotifySilent
)

// DurabilityPolicy controls whether a sync-state update reaches persistence
type DurabilityPolicy int

const (
	// PersistDurable writes through to the backing store.
	PersistDurable DurabilityPolicy = iota

	// PersistMemoryOnly updates the in-memory projection only. Used for
	// per-batch progress ticks during long syncs; a later Refresh drops it.
	PersistMemoryOnly
)

// SyncUpdateOptions configures UpdateSyncState. The zero value notifies
// and persists.
type SyncUpdateOptions struct {
	Notification NotificationPolicy
	Durability   DurabilityPolicy
}

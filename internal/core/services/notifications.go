package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-connect/internal/core/domain"
	"github.com/custodia-labs/sercha-connect/internal/core/ports/driven"
)

// Notification titles
const (
	TitleSyncStarted   = "Sync started"
	TitleSyncCompleted = "Sync completed"
	TitleSyncFailed    = "Sync failed"

	TitleAddFailed     = "Failed to add connector"
	TitleUpdateFailed  = "Failed to update connector"
	TitleDeleteFailed  = "Failed to delete connector"
	TitleLoadFailed    = "Failed to load connectors"
	TitleSyncSaveError = "Failed to save sync state"
)

// ExpiredTokenMessage is stored on connectors whose token could not be
// refreshed during validation.
const ExpiredTokenMessage = "Token expired and could not be refreshed. Please reconnect."

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, domain.Notification) {}

func notifierOrNop(n driven.Notifier) driven.Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}

func clockOrNow(clock func() time.Time) func() time.Time {
	if clock == nil {
		return time.Now
	}
	return clock
}

func idGeneratorOrUUID(gen func() string) func() string {
	if gen == nil {
		return uuid.NewString
	}
	return gen
}

// nextUpdatedAt returns a timestamp strictly after prev.
func nextUpdatedAt(clock func() time.Time, prev time.Time) time.Time {
	now := clock().UTC()
	if !now.After(prev) {
		now = prev.Add(time.Nanosecond)
	}
	return now
}

package driven

import (
	"context"

	"github.com/custodia-labs/sercha-connect/internal/core/domain"
)

// Notifier delivers user-facing notifications. Delivery is fire-and-forget:
// implementations log their own failures and never block the caller on a
// slow sink.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification)
}

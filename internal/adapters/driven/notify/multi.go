package notify

import (
	"context"

	"github.com/custodia-labs/sercha-connect/internal/core/domain"
	"github.com/custodia-labs/sercha-connect/internal/core/ports/driven"
)

var _ driven.Notifier = Multi(nil)

// Multi fans a notification out to every sink in order.
type Multi []driven.Notifier

func (m Multi) Notify(ctx context.Context, note domain.Notification) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, note)
		}
	}
}

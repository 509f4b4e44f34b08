package notify

import (
	"context"
	"log/slog"

	"github.com/posthog/posthog-go"

	"github.com/custodia-labs/sercha-connect/internal/core/domain"
	"github.com/custodia-labs/sercha-connect/internal/core/ports/driven"
)

var _ driven.Notifier = (*PosthogNotifier)(nil)

// PosthogEvent is the event name every notification is captured under.
const PosthogEvent = "Connector notification"

// Enqueuer is the part of posthog.Client this package uses.
type Enqueuer interface {
	Enqueue(posthog.Message) error
}

// PosthogNotifier captures notifications as PostHog events.
type PosthogNotifier struct {
	client     Enqueuer
	distinctID string
	logger     *slog.Logger
}

func NewPosthogNotifier(client Enqueuer, distinctID string, logger *slog.Logger) *PosthogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &PosthogNotifier{client: client, distinctID: distinctID, logger: logger}
}

func (n *PosthogNotifier) Notify(_ context.Context, note domain.Notification) {
	err := n.client.Enqueue(posthog.Capture{
		DistinctId: n.distinctID,
		Event:      PosthogEvent,
		Timestamp:  note.CreatedAt,
		Properties: posthog.NewProperties().
			Set("kind", string(note.Kind)).
			Set("title", note.Title).
			Set("connector_id", note.ConnectorID),
	})
	if err != nil {
		n.logger.Warn("failed to enqueue posthog event", "title", note.Title, "error", err)
	}
}

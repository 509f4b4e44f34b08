// Package notify delivers connector notifications to log, Slack and
// PostHog sinks.
package notify

import (
	"context"
	"log/slog"

	"github.com/custodia-labs/sercha-connect/internal/core/domain"
	"github.com/custodia-labs/sercha-connect/internal/core/ports/driven"
)

var _ driven.Notifier = (*LogNotifier)(nil)

// LogNotifier writes notifications to a structured logger. Error
// notifications are logged at warn level.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, note domain.Notification) {
	level := slog.LevelInfo
	if note.Kind == domain.NotificationError {
		level = slog.LevelWarn
	}
	n.logger.Log(ctx, level, note.Title,
		"kind", note.Kind,
		"description", note.Description,
		"connector_id", note.ConnectorID,
	)
}

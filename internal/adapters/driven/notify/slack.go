package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/slack-go/slack"

	"github.com/custodia-labs/sercha-connect/internal/core/domain"
	"github.com/custodia-labs/sercha-connect/internal/core/ports/driven"
)

var _ driven.Notifier = (*SlackNotifier)(nil)

const slackPostTimeout = 10 * time.Second

var slackColors = map[domain.NotificationKind]string{
	domain.NotificationInfo:    "#439FE0",
	domain.NotificationSuccess: "good",
	domain.NotificationError:   "danger",
}

// SlackNotifier posts notifications to a Slack incoming webhook. Posts run
// in the background; Close waits for those in flight.
type SlackNotifier struct {
	webhookURL string
	logger     *slog.Logger
	wg         sync.WaitGroup
}

func NewSlackNotifier(webhookURL string, logger *slog.Logger) *SlackNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlackNotifier{webhookURL: webhookURL, logger: logger}
}

func (n *SlackNotifier) Notify(ctx context.Context, note domain.Notification) {
	msg := webhookMessage(note)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		// Detached from ctx: the caller's request may end before the post does.
		postCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), slackPostTimeout)
		defer cancel()

		if err := slack.PostWebhookContext(postCtx, n.webhookURL, msg); err != nil {
			n.logger.Warn("failed to post slack notification", "title", note.Title, "error", err)
		}
	}()
}

// Close waits for pending posts.
func (n *SlackNotifier) Close() {
	n.wg.Wait()
}

func webhookMessage(note domain.Notification) *slack.WebhookMessage {
	attachment := slack.Attachment{
		Color:    slackColors[note.Kind],
		Title:    note.Title,
		Text:     note.Description,
		Fallback: note.Title + ": " + note.Description,
		Ts:       slackTimestamp(note.CreatedAt),
	}
	if note.ConnectorID != "" {
		attachment.Fields = []slack.AttachmentField{
			{Title: "Connector", Value: note.ConnectorID, Short: true},
		}
	}
	return &slack.WebhookMessage{Attachments: []slack.Attachment{attachment}}
}

func slackTimestamp(t time.Time) json.Number {
	if t.IsZero() {
		return ""
	}
	return json.Number(strconv.FormatInt(t.Unix(), 10))
}

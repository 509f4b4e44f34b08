package domain

import "time"

// NotificationKind is the severity shown to the user
type NotificationKind string

const (
	NotificationInfo    NotificationKind = "info"
	NotificationSuccess NotificationKind = "success"
	NotificationError   NotificationKind = "error"
)

// Notification is a user-facing message emitted on state transitions and
// failed operations
type Notification struct {
	Kind        NotificationKind `json:"kind"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	ConnectorID string           `json:"connector_id,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

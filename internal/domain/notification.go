package domain

import "time"

// NotificationType classifies a notification for the dashboard bell.
type NotificationType string

// Notification types.
const (
	NotificationTypeInfo    NotificationType = "info"
	NotificationTypeWarning NotificationType = "warning"
	NotificationTypeError   NotificationType = "error"
)

// Notification is a persisted message shown to a subscriber.
type Notification struct {
	ID           string           `json:"id"`
	SubscriberID string           `json:"subscriber_id"`
	Title        string           `json:"title"`
	Message      string           `json:"message"`
	Type         NotificationType `json:"type"`
	Read         bool             `json:"read"`
	CreatedAt    time.Time        `json:"created_at"`
}

// Package notifications manages the persisted notification feed shown to
// subscribers in the dashboard.
package notifications

import (
	"context"
	"time"

	"github.com/voipdesk/planwatch/internal/domain"
)

// Repository defines the interface for notification data access.
type Repository interface {
	// Create persists a notification. Returns false without error when an
	// equal notification (same subscriber, same title, same calendar day)
	// already exists.
	Create(ctx context.Context, n *domain.Notification) (created bool, err error)

	// ExistsSince reports whether the subscriber already has a
	// notification with the given title created at or after since.
	ExistsSince(ctx context.Context, subscriberID, title string, since time.Time) (bool, error)

	ListForSubscriber(ctx context.Context, subscriberID string, limit int) ([]domain.Notification, error)
	CountUnread(ctx context.Context, subscriberID string) (int, error)
	MarkRead(ctx context.Context, subscriberID, id string) error
	MarkAllRead(ctx context.Context, subscriberID string) (int64, error)
}

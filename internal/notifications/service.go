package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/voipdesk/planwatch/internal/domain"
)

const defaultFeedLimit = 50

// Service provides notification feed business logic.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new notifications service.
func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// Feed is a subscriber's notification list with its unread count.
type Feed struct {
	Notifications []domain.Notification `json:"notifications"`
	UnreadCount   int                   `json:"unread_count"`
}

// GetFeed returns the subscriber's notifications, newest first, plus the
// unread count. limit <= 0 uses the default.
func (s *Service) GetFeed(ctx context.Context, subscriberID string, limit int) (*Feed, error) {
	if limit <= 0 {
		limit = defaultFeedLimit
	}

	items, err := s.repo.ListForSubscriber(ctx, subscriberID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	unread, err := s.repo.CountUnread(ctx, subscriberID)
	if err != nil {
		return nil, fmt.Errorf("count unread: %w", err)
	}

	return &Feed{Notifications: items, UnreadCount: unread}, nil
}

// MarkRead marks a single notification as read.
func (s *Service) MarkRead(ctx context.Context, subscriberID, id string) error {
	return s.repo.MarkRead(ctx, subscriberID, id)
}

// MarkAllRead marks all of the subscriber's notifications as read.
func (s *Service) MarkAllRead(ctx context.Context, subscriberID string) (int64, error) {
	return s.repo.MarkAllRead(ctx, subscriberID)
}

// CreateTest persists an ad hoc notification, used to verify the feed
// wiring end to end.
func (s *Service) CreateTest(ctx context.Context, subscriberID string, nType domain.NotificationType, title, message string) (*domain.Notification, error) {
	n := &domain.Notification{
		ID:           uuid.NewString(),
		SubscriberID: subscriberID,
		Title:        title,
		Message:      message,
		Type:         nType,
		Read:         false,
		CreatedAt:    s.now(),
	}

	created, err := s.repo.Create(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("create test notification: %w", err)
	}
	if !created {
		slog.Info("test notification already exists today, skipped",
			"subscriber_id", subscriberID,
			"title", title,
		)
		return nil, ErrDuplicateNotification
	}

	return n, nil
}

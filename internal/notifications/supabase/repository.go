// Package supabase provides a Supabase REST implementation of the
// notifications repository.
package supabase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	supa "github.com/nedpals/supabase-go"
	"github.com/voipdesk/planwatch/internal/domain"
	"github.com/voipdesk/planwatch/internal/notifications"
)

// Repository implements notifications.Repository over the Supabase REST API.
type Repository struct {
	client *supa.Client
	table  string
}

// NewRepository creates a repository backed by the given Supabase client.
func NewRepository(client *supa.Client) *Repository {
	return &Repository{client: client, table: "notifications"}
}

type notificationRow struct {
	ID           string    `json:"id"`
	SubscriberID string    `json:"subscriber_id"`
	Title        string    `json:"title"`
	Message      string    `json:"message"`
	Type         string    `json:"type"`
	Read         bool      `json:"read"`
	CreatedAt    time.Time `json:"created_at"`
}

func (row notificationRow) toDomain() domain.Notification {
	return domain.Notification{
		ID:           row.ID,
		SubscriberID: row.SubscriberID,
		Title:        row.Title,
		Message:      row.Message,
		Type:         domain.NotificationType(row.Type),
		Read:         row.Read,
		CreatedAt:    row.CreatedAt,
	}
}

// Create persists a notification. The unique (subscriber, title, day)
// index in the database rejects same-day duplicates; that rejection is
// reported as created=false rather than an error.
func (r *Repository) Create(ctx context.Context, n *domain.Notification) (bool, error) {
	row := notificationRow{
		ID:           n.ID,
		SubscriberID: n.SubscriberID,
		Title:        n.Title,
		Message:      n.Message,
		Type:         string(n.Type),
		Read:         n.Read,
		CreatedAt:    n.CreatedAt,
	}

	var inserted []notificationRow
	err := r.client.DB.From(r.table).Insert(row).ExecuteWithContext(ctx, &inserted)
	if err != nil {
		if isDuplicateKey(err) {
			return false, nil
		}
		return false, fmt.Errorf("create notification: %w", err)
	}
	return true, nil
}

// ExistsSince reports whether the subscriber already has a notification
// with the given title created at or after since.
func (r *Repository) ExistsSince(ctx context.Context, subscriberID, title string, since time.Time) (bool, error) {
	var rows []struct {
		ID string `json:"id"`
	}
	err := r.client.DB.From(r.table).
		Select("id").
		Eq("subscriber_id", subscriberID).
		Eq("title", title).
		Gte("created_at", since.UTC().Format(time.RFC3339)).
		ExecuteWithContext(ctx, &rows)
	if err != nil {
		return false, fmt.Errorf("check notification exists: %w", err)
	}
	return len(rows) > 0, nil
}

// ListForSubscriber returns the subscriber's notifications, newest first.
func (r *Repository) ListForSubscriber(ctx context.Context, subscriberID string, limit int) ([]domain.Notification, error) {
	var rows []notificationRow
	err := r.client.DB.From(r.table).
		Select("id", "subscriber_id", "title", "message", "type", "read", "created_at").
		Eq("subscriber_id", subscriberID).
		ExecuteWithContext(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	result := make([]domain.Notification, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}

	// PostgREST ordering is not part of the builder surface we use, so
	// sort and trim here. Feeds are small, this stays cheap.
	sortByCreatedAtDesc(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// CountUnread returns the subscriber's unread notification count.
func (r *Repository) CountUnread(ctx context.Context, subscriberID string) (int, error) {
	var rows []struct {
		ID string `json:"id"`
	}
	err := r.client.DB.From(r.table).
		Select("id").
		Eq("subscriber_id", subscriberID).
		Eq("read", "false").
		ExecuteWithContext(ctx, &rows)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return len(rows), nil
}

// MarkRead marks a single notification as read.
func (r *Repository) MarkRead(ctx context.Context, subscriberID, id string) error {
	var updated []notificationRow
	err := r.client.DB.From(r.table).
		Update(map[string]interface{}{"read": true}).
		Eq("id", id).
		Eq("subscriber_id", subscriberID).
		ExecuteWithContext(ctx, &updated)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if len(updated) == 0 {
		return notifications.ErrNotificationNotFound
	}
	return nil
}

// MarkAllRead marks all of the subscriber's notifications as read and
// returns how many were updated.
func (r *Repository) MarkAllRead(ctx context.Context, subscriberID string) (int64, error) {
	var updated []notificationRow
	err := r.client.DB.From(r.table).
		Update(map[string]interface{}{"read": true}).
		Eq("subscriber_id", subscriberID).
		Eq("read", "false").
		ExecuteWithContext(ctx, &updated)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return int64(len(updated)), nil
}

func isDuplicateKey(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "23505")
}

func sortByCreatedAtDesc(items []domain.Notification) {
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}

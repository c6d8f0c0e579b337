// Package postgres provides the PostgreSQL implementation of the
// notifications repository.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/voipdesk/planwatch/internal/domain"
	"github.com/voipdesk/planwatch/internal/notifications"
)

// Repository implements notifications.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create persists a notification. The unique index on
// (subscriber_id, title, day) makes the insert a no-op when the same
// notification was already written today, so concurrent sweep runs cannot
// produce duplicates.
func (r *Repository) Create(ctx context.Context, n *domain.Notification) (bool, error) {
	query := `
		INSERT INTO notifications (id, subscriber_id, title, message, type, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (subscriber_id, title, ((created_at AT TIME ZONE 'UTC')::date)) DO NOTHING
	`
	result, err := r.db.Exec(ctx, query,
		n.ID,
		n.SubscriberID,
		n.Title,
		n.Message,
		n.Type,
		n.Read,
		n.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("create notification: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// ExistsSince reports whether the subscriber already has a notification
// with the given title created at or after since.
func (r *Repository) ExistsSince(ctx context.Context, subscriberID, title string, since time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM notifications
			WHERE subscriber_id = $1 AND title = $2 AND created_at >= $3
		)
	`
	var exists bool
	if err := r.db.QueryRow(ctx, query, subscriberID, title, since).Scan(&exists); err != nil {
		return false, fmt.Errorf("check notification exists: %w", err)
	}
	return exists, nil
}

// ListForSubscriber returns the subscriber's notifications, newest first.
func (r *Repository) ListForSubscriber(ctx context.Context, subscriberID string, limit int) ([]domain.Notification, error) {
	query := `
		SELECT id, subscriber_id, title, message, type, read, created_at
		FROM notifications
		WHERE subscriber_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, subscriberID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Notification, 0)
	for rows.Next() {
		var n domain.Notification
		err := rows.Scan(
			&n.ID,
			&n.SubscriberID,
			&n.Title,
			&n.Message,
			&n.Type,
			&n.Read,
			&n.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		result = append(result, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}

	return result, nil
}

// CountUnread returns the subscriber's unread notification count.
func (r *Repository) CountUnread(ctx context.Context, subscriberID string) (int, error) {
	query := `SELECT count(*) FROM notifications WHERE subscriber_id = $1 AND read = false`
	var count int
	if err := r.db.QueryRow(ctx, query, subscriberID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}

// MarkRead marks a single notification as read.
func (r *Repository) MarkRead(ctx context.Context, subscriberID, id string) error {
	query := `UPDATE notifications SET read = true WHERE id = $1 AND subscriber_id = $2`
	result, err := r.db.Exec(ctx, query, id, subscriberID)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if result.RowsAffected() == 0 {
		return notifications.ErrNotificationNotFound
	}
	return nil
}

// MarkAllRead marks all of the subscriber's notifications as read and
// returns how many were updated.
func (r *Repository) MarkAllRead(ctx context.Context, subscriberID string) (int64, error) {
	query := `UPDATE notifications SET read = true WHERE subscriber_id = $1 AND read = false`
	result, err := r.db.Exec(ctx, query, subscriberID)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return result.RowsAffected(), nil
}

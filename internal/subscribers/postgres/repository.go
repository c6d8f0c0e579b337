// Package postgres provides the PostgreSQL implementation of the
// subscribers repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/voipdesk/planwatch/internal/domain"
	"github.com/voipdesk/planwatch/internal/subscribers"
)

// Repository implements subscribers.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// ListActive returns all subscribers that are not soft-deleted.
func (r *Repository) ListActive(ctx context.Context) ([]domain.Subscriber, error) {
	query := `
		SELECT id, name, plan, plan_validity_days, enrolled_at
		FROM subscribers
		WHERE deleted_at IS NULL
		ORDER BY enrolled_at
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Subscriber, 0)
	for rows.Next() {
		var sub domain.Subscriber
		err := rows.Scan(
			&sub.ID,
			&sub.Name,
			&sub.Plan,
			&sub.PlanValidityDays,
			&sub.EnrolledAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		result = append(result, sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscribers: %w", err)
	}

	return result, nil
}

// GetByID retrieves a non-deleted subscriber by ID.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Subscriber, error) {
	query := `
		SELECT id, name, plan, plan_validity_days, enrolled_at
		FROM subscribers
		WHERE id = $1 AND deleted_at IS NULL
	`
	var sub domain.Subscriber
	err := r.db.QueryRow(ctx, query, id).Scan(
		&sub.ID,
		&sub.Name,
		&sub.Plan,
		&sub.PlanValidityDays,
		&sub.EnrolledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, subscribers.ErrSubscriberNotFound
		}
		return nil, fmt.Errorf("get subscriber: %w", err)
	}
	return &sub, nil
}

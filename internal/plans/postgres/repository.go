// Package postgres provides the PostgreSQL implementation of the plan
// catalog repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/voipdesk/planwatch/internal/domain"
	"github.com/voipdesk/planwatch/internal/plans"
)

// Repository implements plans.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// GetByName retrieves a plan by name, case-insensitively.
func (r *Repository) GetByName(ctx context.Context, name string) (*domain.Plan, error) {
	query := `
		SELECT id, name, validity_days, created_at
		FROM plans
		WHERE lower(name) = lower(btrim($1))
	`
	var plan domain.Plan
	err := r.db.QueryRow(ctx, query, name).Scan(
		&plan.ID,
		&plan.Name,
		&plan.ValidityDays,
		&plan.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, plans.ErrPlanNotFound
		}
		return nil, fmt.Errorf("get plan: %w", err)
	}
	return &plan, nil
}

// List retrieves all catalog plans ordered by name.
func (r *Repository) List(ctx context.Context) ([]domain.Plan, error) {
	query := `
		SELECT id, name, validity_days, created_at
		FROM plans
		ORDER BY name
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Plan, 0)
	for rows.Next() {
		var plan domain.Plan
		if err := rows.Scan(&plan.ID, &plan.Name, &plan.ValidityDays, &plan.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		result = append(result, plan)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plans: %w", err)
	}

	return result, nil
}

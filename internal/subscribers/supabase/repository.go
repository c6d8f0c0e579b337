// Package supabase provides a Supabase REST implementation of the
// subscribers repository, for deployments where the subscriber store is
// only reachable through the Supabase API.
package supabase

import (
	"context"
	"fmt"
	"time"

	supa "github.com/nedpals/supabase-go"
	"github.com/voipdesk/planwatch/internal/domain"
	"github.com/voipdesk/planwatch/internal/subscribers"
)

// Repository implements subscribers.Repository over the Supabase REST API.
type Repository struct {
	client *supa.Client
	table  string
}

// NewRepository creates a repository backed by the given Supabase client.
func NewRepository(client *supa.Client) *Repository {
	return &Repository{client: client, table: "subscribers"}
}

type subscriberRow struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Plan             string     `json:"plan"`
	PlanValidityDays *int       `json:"plan_validity_days"`
	EnrolledAt       *time.Time `json:"enrolled_at"`
}

func (row subscriberRow) toDomain() domain.Subscriber {
	return domain.Subscriber{
		ID:               row.ID,
		Name:             row.Name,
		Plan:             row.Plan,
		PlanValidityDays: row.PlanValidityDays,
		EnrolledAt:       row.EnrolledAt,
	}
}

// ListActive returns all subscribers that are not soft-deleted.
func (r *Repository) ListActive(ctx context.Context) ([]domain.Subscriber, error) {
	var rows []subscriberRow
	err := r.client.DB.From(r.table).
		Select("id", "name", "plan", "plan_validity_days", "enrolled_at").
		Is("deleted_at", "null").
		ExecuteWithContext(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}

	result := make([]domain.Subscriber, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}

// GetByID retrieves a non-deleted subscriber by ID.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Subscriber, error) {
	var rows []subscriberRow
	err := r.client.DB.From(r.table).
		Select("id", "name", "plan", "plan_validity_days", "enrolled_at").
		Eq("id", id).
		Is("deleted_at", "null").
		ExecuteWithContext(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("get subscriber: %w", err)
	}
	if len(rows) == 0 {
		return nil, subscribers.ErrSubscriberNotFound
	}

	sub := rows[0].toDomain()
	return &sub, nil
}

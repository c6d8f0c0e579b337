package plans

import (
	"context"
	"errors"

	"github.com/voipdesk/planwatch/internal/domain"
)

// ErrPlanNotFound is returned when a plan name has no catalog entry.
var ErrPlanNotFound = errors.New("plan not found")

// Repository defines the interface for the plan catalog.
type Repository interface {
	GetByName(ctx context.Context, name string) (*domain.Plan, error)
	List(ctx context.Context) ([]domain.Plan, error)
}

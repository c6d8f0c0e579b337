// Package subscribers provides read-only access to the subscriber store.
package subscribers

import (
	"context"
	"errors"

	"github.com/voipdesk/planwatch/internal/domain"
)

// ErrSubscriberNotFound is returned when a subscriber does not exist or is
// soft-deleted.
var ErrSubscriberNotFound = errors.New("subscriber not found")

// Repository defines the interface for subscriber data access. The store
// is owned by the platform backend; this service never writes to it.
type Repository interface {
	// ListActive returns all subscribers that are not soft-deleted.
	ListActive(ctx context.Context) ([]domain.Subscriber, error)
	GetByID(ctx context.Context, id string) (*domain.Subscriber, error)
}

package quote

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fletes-app/service-quote/internal/common/domain"
)

// Repository defines the persistence contract for quote aggregates. Creating and deleting
// quotes happens together with the slot they hold, see agenda.Repository.
type Repository interface {
	// FindByID retrieves a quote by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Quote, error)

	// List returns the quotes in view, newest first.
	List(ctx context.Context, view View, today string) ([]*Quote, error)

	// Update persists a status change made from status from. When the stored quote is no
	// longer in from it writes nothing and returns NewStatusChangedError.
	Update(ctx context.Context, q *Quote, from Status) error

	// RealizeBefore moves confirmed quotes whose appointment is before today to realized.
	RealizeBefore(ctx context.Context, today string, at time.Time) (int64, error)

	// PurgeBefore deletes sent and rejected quotes whose appointment is before today.
	// Their slots are left untouched; bookings go with the quote.
	PurgeBefore(ctx context.Context, today string) (int64, error)
}

// NewStatusChangedError reports a status write that lost a race with another one.
func NewStatusChangedError(id uuid.UUID, from Status) error {
	return domain.NewConflictError(fmt.Sprintf("quote %s is no longer %s", id, from))
}

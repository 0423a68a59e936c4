package agenda

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fletes-app/service-quote/internal/domain/quote"
)

// Repository defines persistence for the calendar and the operations that must change a
// quote, its booking and its day's free slots together.
type Repository interface {
	// FindDay retrieves a day by date.
	FindDay(ctx context.Context, date string) (*Day, error)

	// ListDays returns days between from and to inclusive, ordered by date.
	ListDays(ctx context.Context, from, to string, enabledOnly bool) ([]*Day, error)

	// SaveDay creates or replaces a day. Slots held by active bookings are dropped from the
	// free set before writing, and returned as blocked, so a save cannot hand out a slot a
	// concurrent reservation already took.
	SaveDay(ctx context.Context, day *Day) (blocked []string, err error)

	// ActiveSlots returns the slots on date held by reserved or confirmed bookings.
	ActiveSlots(ctx context.Context, date string) ([]string, error)

	// Reserve atomically takes the quote's slot from its day, then stores the quote and
	// booking. When the day is unknown, disabled or the slot is already gone it returns
	// domain.ErrSlotUnavailable and writes nothing.
	Reserve(ctx context.Context, q *quote.Quote, b *Booking) error

	// Confirm stores the quote's confirmed status and marks its booking confirmed,
	// creating the booking if it went missing. The stored quote must still be sent,
	// otherwise nothing is written and quote.NewStatusChangedError is returned.
	Confirm(ctx context.Context, q *quote.Quote, at time.Time) error

	// Release deletes the quote and its bookings and adds its slot back to the day with a
	// set union. It returns a not-found error when the quote no longer exists.
	Release(ctx context.Context, quoteID uuid.UUID, slot quote.Slot) error
}

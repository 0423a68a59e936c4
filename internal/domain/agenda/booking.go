package agenda

import (
	"time"

	"github.com/google/uuid"
)

// BookingStatus is the state of a slot hold.
type BookingStatus string

const (
	BookingReserved  BookingStatus = "reserved"
	BookingConfirmed BookingStatus = "confirmed"
)

// Booking binds one (date, slot) to the quote holding it.
type Booking struct {
	ID          uuid.UUID
	QuoteID     uuid.UUID
	Date        string
	Slot        string
	Status      BookingStatus
	CreatedAt   time.Time
	ConfirmedAt *time.Time
}

// NewBooking creates a reserved booking.
func NewBooking(quoteID uuid.UUID, date, slot string) *Booking {
	return &Booking{
		ID:        uuid.New(),
		QuoteID:   quoteID,
		Date:      date,
		Slot:      slot,
		Status:    BookingReserved,
		CreatedAt: time.Now().UTC(),
	}
}

// Active reports whether the booking still occupies its slot.
func (b *Booking) Active() bool {
	return b.Status == BookingReserved || b.Status == BookingConfirmed
}

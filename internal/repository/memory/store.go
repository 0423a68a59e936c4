// Package memory is an in-process store for development and tests. One mutex guards every
// collection, so each operation is atomic.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fletes-app/service-quote/internal/common/domain"
	"github.com/fletes-app/service-quote/internal/domain/agenda"
	"github.com/fletes-app/service-quote/internal/domain/quote"
)

// Store implements quote.Repository and agenda.Repository.
type Store struct {
	mu       sync.Mutex
	days     map[string]*agenda.Day
	quotes   map[uuid.UUID]*quote.Quote
	bookings map[uuid.UUID]*agenda.Booking
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		days:     make(map[string]*agenda.Day),
		quotes:   make(map[uuid.UUID]*quote.Quote),
		bookings: make(map[uuid.UUID]*agenda.Booking),
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// --- quote.Repository ---

func (s *Store) FindByID(_ context.Context, id uuid.UUID) (*quote.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.quotes[id]
	if !ok {
		return nil, domain.NewNotFoundError("Quote", id.String())
	}
	return cloneQuote(q), nil
}

func (s *Store) List(_ context.Context, view quote.View, today string) ([]*quote.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*quote.Quote{}
	for _, q := range s.quotes {
		if q.Matches(view, today) {
			out = append(out, cloneQuote(q))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt().After(out[j].CreatedAt())
	})
	return out, nil
}

func (s *Store) Update(_ context.Context, q *quote.Quote, from quote.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkStatusLocked(q.ID(), from); err != nil {
		return err
	}
	s.quotes[q.ID()] = cloneQuote(q)
	return nil
}

func (s *Store) RealizeBefore(_ context.Context, today string, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, q := range s.quotes {
		if q.Status() != quote.StatusConfirmed || !q.DueBefore(today) {
			continue
		}
		if err := q.Realize(at); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (s *Store) PurgeBefore(_ context.Context, today string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, q := range s.quotes {
		if !q.Status().Purgeable() || !q.DueBefore(today) {
			continue
		}
		delete(s.quotes, id)
		s.dropBookingsLocked(func(b *agenda.Booking) bool { return b.QuoteID == id })
		n++
	}
	return n, nil
}

// --- agenda.Repository ---

func (s *Store) FindDay(_ context.Context, date string) (*agenda.Day, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.days[date]
	if !ok {
		return nil, domain.NewNotFoundError("Day", date)
	}
	return cloneDay(d), nil
}

func (s *Store) ListDays(_ context.Context, from, to string, enabledOnly bool) ([]*agenda.Day, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*agenda.Day{}
	for date, d := range s.days {
		if date < from || date > to || (enabledOnly && !d.Enabled()) {
			continue
		}
		out = append(out, cloneDay(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date() < out[j].Date() })
	return out, nil
}

func (s *Store) SaveDay(_ context.Context, day *agenda.Day) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	blocked := day.Exclude(s.activeSlotsLocked(day.Date()))
	s.days[day.Date()] = cloneDay(day)
	return blocked, nil
}

func (s *Store) ActiveSlots(_ context.Context, date string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.activeSlotsLocked(date), nil
}

func (s *Store) Reserve(_ context.Context, q *quote.Quote, b *agenda.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.days[b.Date]
	if !ok {
		return domain.ErrSlotUnavailable
	}
	if err := d.Take(b.Slot); err != nil {
		return err
	}
	s.quotes[q.ID()] = cloneQuote(q)
	booking := *b
	s.bookings[b.ID] = &booking
	return nil
}

func (s *Store) Confirm(_ context.Context, q *quote.Quote, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkStatusLocked(q.ID(), quote.StatusSent); err != nil {
		return err
	}
	s.quotes[q.ID()] = cloneQuote(q)

	found := false
	for _, b := range s.bookings {
		if b.QuoteID == q.ID() {
			b.Status = agenda.BookingConfirmed
			b.ConfirmedAt = &at
			found = true
		}
	}
	if slot, ok := q.Slot(); ok && !found {
		b := agenda.NewBooking(q.ID(), slot.Date, slot.Time)
		b.Status = agenda.BookingConfirmed
		b.ConfirmedAt = &at
		s.bookings[b.ID] = b
	}
	return nil
}

func (s *Store) Release(_ context.Context, quoteID uuid.UUID, slot quote.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.quotes[quoteID]; !ok {
		return domain.NewNotFoundError("Quote", quoteID.String())
	}
	delete(s.quotes, quoteID)
	s.dropBookingsLocked(func(b *agenda.Booking) bool {
		return b.QuoteID == quoteID || (b.Date == slot.Date && b.Slot == slot.Time)
	})

	if slot.Date == "" || slot.Time == "" {
		return nil
	}
	d, ok := s.days[slot.Date]
	if !ok {
		d = agenda.ReconstructDay(slot.Date, false, nil, time.Now().UTC())
		s.days[slot.Date] = d
	}
	d.Put(slot.Time)
	return nil
}

// checkStatusLocked fails unless the stored quote is still in from.
func (s *Store) checkStatusLocked(id uuid.UUID, from quote.Status) error {
	stored, ok := s.quotes[id]
	if !ok {
		return domain.NewNotFoundError("Quote", id.String())
	}
	if stored.Status() != from {
		return quote.NewStatusChangedError(id, from)
	}
	return nil
}

func (s *Store) activeSlotsLocked(date string) []string {
	slots := []string{}
	for _, b := range s.bookings {
		if b.Date == date && b.Active() && !slices.Contains(slots, b.Slot) {
			slots = append(slots, b.Slot)
		}
	}
	slices.Sort(slots)
	return slots
}

func (s *Store) dropBookingsLocked(match func(*agenda.Booking) bool) {
	for id, b := range s.bookings {
		if match(b) {
			delete(s.bookings, id)
		}
	}
}

func cloneQuote(q *quote.Quote) *quote.Quote {
	return quote.ReconstructQuote(
		q.ID(), q.Number(), q.Request(), q.Estimate(), q.Status(),
		q.AcceptedTermsAt(), q.ConfirmedAt(), q.RealizedAt(), q.CreatedAt(), q.UpdatedAt(),
	)
}

func cloneDay(d *agenda.Day) *agenda.Day {
	return agenda.ReconstructDay(d.Date(), d.Enabled(), d.Slots(), d.UpdatedAt())
}

package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fletes-app/service-quote/internal/common/domain"
	"github.com/fletes-app/service-quote/internal/domain/agenda"
	"github.com/fletes-app/service-quote/internal/domain/quote"
)

func sentQuote(t *testing.T, date, slot string) (*quote.Quote, *agenda.Booking) {
	t.Helper()
	q, err := quote.NewQuote(quote.Request{
		CustomerName: "Ana",
		Phone:        "351000000",
		CargoType:    "mudanza",
		Origin:       "A",
		Destination:  "B",
		SlotDate:     date,
		SlotTime:     slot,
	}, quote.Estimate{})
	require.NoError(t, err)
	require.NoError(t, q.Send())
	return q, agenda.NewBooking(q.ID(), date, slot)
}

func seedDay(t *testing.T, s *Store, date string, enabled bool, slots ...string) {
	t.Helper()
	d, err := agenda.NewDay(date, enabled, slots)
	require.NoError(t, err)
	_, err = s.SaveDay(context.Background(), d)
	require.NoError(t, err)
}

func TestReserve_ConcurrentSingleWinner(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedDay(t, s, "2030-05-10", true, "09:00", "11:00")

	const n = 32
	quotes := make([]*quote.Quote, n)
	bookings := make([]*agenda.Booking, n)
	for i := range n {
		quotes[i], bookings[i] = sentQuote(t, "2030-05-10", "09:00")
	}

	var wins, conflicts atomic.Int32
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Reserve(ctx, quotes[i], bookings[i])
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, domain.ErrSlotUnavailable):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(n-1), conflicts.Load())

	day, err := s.FindDay(ctx, "2030-05-10")
	require.NoError(t, err)
	assert.Equal(t, []string{"11:00"}, day.Slots())

	booked, err := s.ActiveSlots(ctx, "2030-05-10")
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00"}, booked)
}

func TestReserve_DisabledOrUnknownDay(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedDay(t, s, "2030-05-10", false, "09:00")

	q, b := sentQuote(t, "2030-05-10", "09:00")
	assert.ErrorIs(t, s.Reserve(ctx, q, b), domain.ErrSlotUnavailable)

	q, b = sentQuote(t, "2030-05-11", "09:00")
	assert.ErrorIs(t, s.Reserve(ctx, q, b), domain.ErrSlotUnavailable)

	_, err := s.FindByID(ctx, q.ID())
	assert.True(t, domain.IsNotFound(err))
}

func TestRelease_SetUnionAndIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedDay(t, s, "2030-05-10", true, "09:00", "11:00")

	q, b := sentQuote(t, "2030-05-10", "09:00")
	require.NoError(t, s.Reserve(ctx, q, b))

	slot, _ := q.Slot()
	require.NoError(t, s.Release(ctx, q.ID(), slot))

	day, err := s.FindDay(ctx, "2030-05-10")
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "11:00"}, day.Slots())

	err = s.Release(ctx, q.ID(), slot)
	assert.True(t, domain.IsNotFound(err))

	day, err = s.FindDay(ctx, "2030-05-10")
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "11:00"}, day.Slots())

	booked, err := s.ActiveSlots(ctx, "2030-05-10")
	require.NoError(t, err)
	assert.Empty(t, booked)
}

func TestSaveDay_FiltersBookedSlots(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedDay(t, s, "2030-05-10", true, "09:00", "11:00")

	q, b := sentQuote(t, "2030-05-10", "09:00")
	require.NoError(t, s.Reserve(ctx, q, b))

	d, err := agenda.NewDay("2030-05-10", true, []string{"09:00", "11:00", "15:00"})
	require.NoError(t, err)
	blocked, err := s.SaveDay(ctx, d)
	require.NoError(t, err)

	assert.Equal(t, []string{"09:00"}, blocked)
	day, err := s.FindDay(ctx, "2030-05-10")
	require.NoError(t, err)
	assert.Equal(t, []string{"11:00", "15:00"}, day.Slots())
}

func TestConfirm_RecreatesMissingBooking(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedDay(t, s, "2030-05-10", true, "09:00")

	q, b := sentQuote(t, "2030-05-10", "09:00")
	require.NoError(t, s.Reserve(ctx, q, b))
	s.dropBookingsLocked(func(*agenda.Booking) bool { return true })

	_, err := q.Confirm()
	require.NoError(t, err)
	require.NoError(t, s.Confirm(ctx, q, time.Now()))

	booked, err := s.ActiveSlots(ctx, "2030-05-10")
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00"}, booked)

	stored, err := s.FindByID(ctx, q.ID())
	require.NoError(t, err)
	assert.Equal(t, quote.StatusConfirmed, stored.Status())
}

func TestStatusWrites_RequirePriorStatus(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedDay(t, s, "2030-05-10", true, "09:00")

	q, b := sentQuote(t, "2030-05-10", "09:00")
	require.NoError(t, s.Reserve(ctx, q, b))

	rejected := cloneQuote(q)
	_, err := rejected.Reject()
	require.NoError(t, err)
	require.NoError(t, s.Update(ctx, rejected, quote.StatusSent))

	confirmed := cloneQuote(q)
	_, err = confirmed.Confirm()
	require.NoError(t, err)
	err = s.Confirm(ctx, confirmed, time.Now())
	assert.Equal(t, domain.CodeConflict, domain.CodeOf(err))

	err = s.Update(ctx, rejected, quote.StatusSent)
	assert.Equal(t, domain.CodeConflict, domain.CodeOf(err))

	stored, err := s.FindByID(ctx, q.ID())
	require.NoError(t, err)
	assert.Equal(t, quote.StatusRejected, stored.Status())
	assert.Nil(t, stored.ConfirmedAt())
	for _, bk := range s.bookings {
		assert.Equal(t, agenda.BookingReserved, bk.Status)
	}
}

func TestRealizeAndPurge(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedDay(t, s, "2030-05-10", true, "09:00", "11:00", "13:00")

	confirmed, b1 := sentQuote(t, "2030-05-10", "09:00")
	require.NoError(t, s.Reserve(ctx, confirmed, b1))
	_, err := confirmed.Confirm()
	require.NoError(t, err)
	require.NoError(t, s.Confirm(ctx, confirmed, time.Now()))

	sent, b2 := sentQuote(t, "2030-05-10", "11:00")
	require.NoError(t, s.Reserve(ctx, sent, b2))

	rejected, b3 := sentQuote(t, "2030-05-10", "13:00")
	require.NoError(t, s.Reserve(ctx, rejected, b3))
	_, err = rejected.Reject()
	require.NoError(t, err)
	require.NoError(t, s.Update(ctx, rejected, quote.StatusSent))

	realized, err := s.RealizeBefore(ctx, "2030-05-11", time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), realized)

	purged, err := s.PurgeBefore(ctx, "2030-05-11")
	require.NoError(t, err)
	assert.Equal(t, int64(2), purged)

	all, err := s.List(ctx, quote.ViewAll, "2030-05-11")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, quote.StatusRealized, all[0].Status())

	day, err := s.FindDay(ctx, "2030-05-10")
	require.NoError(t, err)
	assert.Empty(t, day.Slots())
}

func TestList_NewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedDay(t, s, "2030-05-10", true, "09:00", "11:00")

	first, b1 := sentQuote(t, "2030-05-10", "09:00")
	require.NoError(t, s.Reserve(ctx, first, b1))
	time.Sleep(2 * time.Millisecond)
	second, b2 := sentQuote(t, "2030-05-10", "11:00")
	require.NoError(t, s.Reserve(ctx, second, b2))

	list, err := s.List(ctx, quote.ViewPending, "2030-05-01")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID(), list[0].ID())
	assert.Equal(t, first.ID(), list[1].ID())
}

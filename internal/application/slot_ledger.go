package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fletes-app/service-quote/internal/common/domain"
	"github.com/fletes-app/service-quote/internal/domain/agenda"
	"github.com/fletes-app/service-quote/internal/domain/quote"
	"github.com/fletes-app/service-quote/internal/events"
)

// SlotLedger moves quotes through their lifecycle while keeping every appointment slot
// held by at most one quote.
type SlotLedger struct {
	quotes   quote.Repository
	agenda   agenda.Repository
	calendar *agenda.Calendar
	emitter  *EventEmitter
	logger   *zap.Logger
}

// NewSlotLedger creates a new SlotLedger.
func NewSlotLedger(
	quotes quote.Repository,
	agendaRepo agenda.Repository,
	calendar *agenda.Calendar,
	emitter *EventEmitter,
	logger *zap.Logger,
) *SlotLedger {
	return &SlotLedger{
		quotes:   quotes,
		agenda:   agendaRepo,
		calendar: calendar,
		emitter:  emitter,
		logger:   logger,
	}
}

// Reserve sends a preview quote by taking its slot. It returns domain.ErrSlotUnavailable
// when someone else already holds the slot or the day is not open.
func (l *SlotLedger) Reserve(ctx context.Context, q *quote.Quote) error {
	if err := q.Send(); err != nil {
		return err
	}
	slot, _ := q.Slot()
	if err := l.agenda.Reserve(ctx, q, agenda.NewBooking(q.ID(), slot.Date, slot.Time)); err != nil {
		return err
	}

	l.logger.Info("slot reserved",
		zap.String("quote_id", q.ID().String()),
		zap.String("date", slot.Date),
		zap.String("slot", slot.Time),
	)
	l.emitter.emit(events.QuoteSent, q)
	return nil
}

// Confirm confirms a sent quote. Confirming twice is a no-op.
func (l *SlotLedger) Confirm(ctx context.Context, id uuid.UUID) (*QuoteDTO, error) {
	q, err := l.quotes.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	changed, err := q.Confirm()
	if err != nil {
		return nil, err
	}
	if changed {
		if err := l.agenda.Confirm(ctx, q, *q.ConfirmedAt()); err != nil {
			return l.settled(ctx, id, quote.StatusConfirmed, err)
		}
		l.logger.Info("quote confirmed", zap.String("quote_id", q.ID().String()))
		l.emitter.emit(events.QuoteConfirmed, q)
	}

	dto := toQuoteDTO(q)
	return &dto, nil
}

// Reject rejects a sent quote. The slot stays taken until the quote is deleted.
func (l *SlotLedger) Reject(ctx context.Context, id uuid.UUID) (*QuoteDTO, error) {
	q, err := l.quotes.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	changed, err := q.Reject()
	if err != nil {
		return nil, err
	}
	if changed {
		if err := l.quotes.Update(ctx, q, quote.StatusSent); err != nil {
			return l.settled(ctx, id, quote.StatusRejected, err)
		}
		l.logger.Info("quote rejected", zap.String("quote_id", q.ID().String()))
		l.emitter.emit(events.QuoteRejected, q)
	}

	dto := toQuoteDTO(q)
	return &dto, nil
}

// settled resolves a status write that lost a race. When the winner moved the quote to the
// same target the call is a no-op, otherwise the conflict is returned.
func (l *SlotLedger) settled(ctx context.Context, id uuid.UUID, target quote.Status, err error) (*QuoteDTO, error) {
	if domain.CodeOf(err) != domain.CodeConflict {
		return nil, err
	}
	q, findErr := l.quotes.FindByID(ctx, id)
	if findErr != nil || q.Status() != target {
		l.logger.Info("quote status changed concurrently",
			zap.String("quote_id", id.String()),
			zap.String("target", string(target)),
		)
		return nil, err
	}
	dto := toQuoteDTO(q)
	return &dto, nil
}

// Delete removes a rejected quote and gives its slot back to the day.
func (l *SlotLedger) Delete(ctx context.Context, id uuid.UUID) error {
	q, err := l.quotes.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := q.CheckDeletable(); err != nil {
		return err
	}
	slot, _ := q.Slot()
	if err := l.agenda.Release(ctx, q.ID(), slot); err != nil {
		return err
	}

	l.logger.Info("quote deleted, slot released",
		zap.String("quote_id", q.ID().String()),
		zap.String("date", slot.Date),
		zap.String("slot", slot.Time),
	)
	l.emitter.emit(events.QuoteDeleted, q)
	return nil
}

// Sweep realizes confirmed quotes whose day has passed, then purges the sent and rejected
// ones left behind. Purged quotes keep their slots out of the calendar.
func (l *SlotLedger) Sweep(ctx context.Context) (SweepResult, error) {
	today := l.calendar.Today()

	realized, err := l.quotes.RealizeBefore(ctx, today, l.calendar.Now())
	if err != nil {
		return SweepResult{}, fmt.Errorf("failed to realize quotes: %w", err)
	}
	purged, err := l.quotes.PurgeBefore(ctx, today)
	if err != nil {
		return SweepResult{Realized: realized}, fmt.Errorf("failed to purge quotes: %w", err)
	}

	if realized > 0 || purged > 0 {
		l.logger.Info("quotes swept",
			zap.String("today", today),
			zap.Int64("realized", realized),
			zap.Int64("purged", purged),
		)
	}
	return SweepResult{Realized: realized, Purged: purged}, nil
}

// List sweeps and then returns the quotes in view, newest first.
func (l *SlotLedger) List(ctx context.Context, view quote.View) ([]QuoteDTO, error) {
	if _, err := l.Sweep(ctx); err != nil {
		l.logger.Warn("sweep before listing failed", zap.Error(err))
	}

	quotes, err := l.quotes.List(ctx, view, l.calendar.Today())
	if err != nil {
		return nil, err
	}
	return toQuoteDTOs(quotes), nil
}

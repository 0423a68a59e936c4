package application

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fletes-app/service-quote/internal/domain/quote"
	"github.com/fletes-app/service-quote/internal/events"
)

// EventPublisher publishes one quote event. Implementations log their own failures.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, evt events.QuoteEvent)
}

// EventEmitter publishes quote events on background goroutines so a slow broker or
// notifier never delays a request.
type EventEmitter struct {
	publisher EventPublisher
	timeout   time.Duration
	logger    *zap.Logger
	wg        sync.WaitGroup
}

// NewEventEmitter creates a new EventEmitter. A nil publisher drops every event.
func NewEventEmitter(publisher EventPublisher, timeout time.Duration, logger *zap.Logger) *EventEmitter {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &EventEmitter{publisher: publisher, timeout: timeout, logger: logger}
}

func (e *EventEmitter) emit(eventType string, q *quote.Quote) {
	if e == nil || e.publisher == nil {
		return
	}
	evt := events.QuoteEvent{
		QuoteID:    q.ID(),
		Number:     q.Number(),
		Status:     string(q.Status()),
		SlotDate:   q.Request().SlotDate,
		SlotTime:   q.Request().SlotTime,
		Total:      q.Estimate().Breakdown.Total,
		OccurredAt: time.Now().UTC(),
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
		defer cancel()
		e.publisher.Publish(ctx, eventType, evt)
	}()
	e.logger.Debug("quote event emitted", zap.String("type", eventType), zap.String("quote_id", evt.QuoteID.String()))
}

// Wait blocks until every event emitted so far has been handed off.
func (e *EventEmitter) Wait() {
	if e == nil {
		return
	}
	e.wg.Wait()
}

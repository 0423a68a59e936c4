package events

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fletes-app/service-quote/internal/common/domain"
	"github.com/fletes-app/service-quote/internal/domain/quote"
	"github.com/fletes-app/service-quote/internal/notify"
)

// QuoteFinder loads the quote an event refers to.
type QuoteFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*quote.Quote, error)
}

// Sender delivers a text to the professional.
type Sender interface {
	Send(ctx context.Context, text string) notify.Result
}

// NotificationHandler turns quote events into WhatsApp messages.
type NotificationHandler struct {
	quotes   QuoteFinder
	sender   Sender
	locality string
	logger   *zap.Logger
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(quotes QuoteFinder, sender Sender, locality string, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{quotes: quotes, sender: sender, locality: locality, logger: logger}
}

// Handle sends the message for eventType. Events without a message are ignored, and so are
// quotes deleted before the event arrived.
func (h *NotificationHandler) Handle(ctx context.Context, eventType string, evt QuoteEvent) error {
	var format func(*quote.Quote) string
	switch eventType {
	case QuoteSent:
		format = func(q *quote.Quote) string { return notify.FormatQuoteSent(q, h.locality) }
	case QuoteConfirmed:
		format = notify.FormatQuoteConfirmed
	default:
		h.logger.Debug("ignoring quote event without notification",
			zap.String("type", eventType),
		)
		return nil
	}

	q, err := h.quotes.FindByID(ctx, evt.QuoteID)
	if err != nil {
		if domain.IsNotFound(err) {
			h.logger.Info("quote gone before notification",
				zap.String("quote_id", evt.QuoteID.String()),
				zap.String("type", eventType),
			)
			return nil
		}
		return err
	}

	res := h.sender.Send(ctx, format(q))
	h.logger.Info("quote notification processed",
		zap.String("quote_id", evt.QuoteID.String()),
		zap.String("type", eventType),
		zap.Bool("ok", res.OK),
	)
	return nil
}

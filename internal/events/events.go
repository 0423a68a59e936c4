// Package events carries quote lifecycle events to the notification path, either through
// Kafka or in process.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fletes-app/service-quote/internal/common/kafka"
)

// Event types published on the quote topic.
const (
	QuoteSent      = "quote.sent"
	QuoteConfirmed = "quote.confirmed"
	QuoteRejected  = "quote.rejected"
	QuoteDeleted   = "quote.deleted"
)

const source = "service-quote"

// QuoteEvent is the payload of every quote event.
type QuoteEvent struct {
	QuoteID    uuid.UUID `json:"quote_id"`
	Number     string    `json:"number"`
	Status     string    `json:"status"`
	SlotDate   string    `json:"fecha_turno,omitempty"`
	SlotTime   string    `json:"hora_turno,omitempty"`
	Total      float64   `json:"monto_estimado"`
	OccurredAt time.Time `json:"occurred_at"`
}

// KafkaPublisher publishes quote events as CloudEvents.
type KafkaPublisher struct {
	producer *kafka.Producer
	topic    string
	logger   *zap.Logger
}

// NewKafkaPublisher creates a new KafkaPublisher.
func NewKafkaPublisher(producer *kafka.Producer, topic string, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic, logger: logger}
}

// Publish sends one event. Failures are logged.
func (p *KafkaPublisher) Publish(ctx context.Context, eventType string, evt QuoteEvent) {
	cloudEvent, err := kafka.NewCloudEvent(source, eventType, evt)
	if err != nil {
		p.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}

	if err := p.producer.PublishEvent(ctx, p.topic, cloudEvent); err != nil {
		p.logger.Error("failed to publish event",
			zap.String("topic", p.topic),
			zap.String("event_type", eventType),
			zap.String("quote_id", evt.QuoteID.String()),
			zap.Error(err),
		)
	}
}

// DirectPublisher hands events straight to the notification handler. It is used when no
// Kafka brokers are configured.
type DirectPublisher struct {
	handler *NotificationHandler
	logger  *zap.Logger
}

// NewDirectPublisher creates a new DirectPublisher.
func NewDirectPublisher(handler *NotificationHandler, logger *zap.Logger) *DirectPublisher {
	return &DirectPublisher{handler: handler, logger: logger}
}

// Publish runs the handler inline. Failures are logged.
func (p *DirectPublisher) Publish(ctx context.Context, eventType string, evt QuoteEvent) {
	if err := p.handler.Handle(ctx, eventType, evt); err != nil {
		p.logger.Error("failed to handle event",
			zap.String("event_type", eventType),
			zap.String("quote_id", evt.QuoteID.String()),
			zap.Error(err),
		)
	}
}

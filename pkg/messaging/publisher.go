package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/medflow/medflow-attendance/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrChannelClosed is returned while the broker connection is down
var ErrChannelClosed = errors.New("rabbitmq channel closed")

// Publisher sends attendance events to one topic exchange, routed by event type
type Publisher struct {
	rmq      *RabbitMQ
	exchange string
	source   string
	logger   *logger.Logger
}

// NewPublisher declares exchange and returns a publisher stamping events
// with source
func NewPublisher(rmq *RabbitMQ, exchange, source string, log *logger.Logger) (*Publisher, error) {
	if err := rmq.DeclareExchange(exchange); err != nil {
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	return &Publisher{rmq: rmq, exchange: exchange, source: source, logger: log}, nil
}

// Publish wraps data in an Event and sends it. Data that is already JSON
// (json.RawMessage) is embedded as is, which is how queued notifications
// are replayed.
func (p *Publisher) Publish(ctx context.Context, eventType string, data interface{}) error {
	event, err := NewEvent(eventType, p.source, CorrelationID(ctx), data)
	if err != nil {
		return fmt.Errorf("failed to create %s event: %w", eventType, err)
	}

	msg, err := toPublishing(event)
	if err != nil {
		return err
	}

	// resolved per call so a reconnect is picked up
	ch := p.rmq.Channel()
	if ch == nil || ch.IsClosed() {
		return ErrChannelClosed
	}

	if err := ch.PublishWithContext(ctx, p.exchange, eventType, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", eventType, err)
	}

	p.logger.Debug().
		Str("exchange", p.exchange).
		Str("event_type", eventType).
		Str("event_id", event.ID).
		Str("correlation_id", event.CorrelationID).
		Int("bytes", len(msg.Body)).
		Msg("event published")
	return nil
}

// toPublishing turns an envelope into a persistent AMQP message. The event
// type and source travel as headers too, so bindings and the dead-letter
// queue can be inspected without decoding the body.
func toPublishing(event *Event) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal %s event: %w", event.Type, err)
	}
	return amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     event.ID,
		CorrelationId: event.CorrelationID,
		Timestamp:     event.Timestamp,
		Type:          event.Type,
		AppId:         event.Source,
		Headers: amqp.Table{
			"x-event-type": event.Type,
			"x-source":     event.Source,
		},
		Body: body,
	}, nil
}

type correlationKey struct{}

// WithCorrelationID stores the correlation ID that outgoing events carry
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, correlationKey{}, correlationID)
}

// CorrelationID returns the correlation ID stored in ctx, or ""
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

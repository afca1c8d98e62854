package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/medflow/medflow-attendance/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
)

// maxDeliveryAttempts is how often a failing event is handled before it is
// dead-lettered
const maxDeliveryAttempts = 3

// MessageHandler handles one decoded event
type MessageHandler func(ctx context.Context, event *Event) error

type binding struct {
	exchange   string
	routingKey string
}

// Consumer reads one durable queue and routes events to handlers by type
type Consumer struct {
	rmq       *RabbitMQ
	queueName string
	logger    *logger.Logger

	mu       sync.RWMutex
	handlers map[string]MessageHandler
	bindings []binding

	// failures per event ID. A requeued delivery carries no x-death
	// header, so redeliveries are counted here.
	failMu   sync.Mutex
	failures map[string]int
}

// NewConsumer declares queueName and returns a consumer for it
func NewConsumer(rmq *RabbitMQ, queueName string, log *logger.Logger) (*Consumer, error) {
	if _, err := rmq.DeclareQueue(queueName); err != nil {
		return nil, fmt.Errorf("failed to declare queue %s: %w", queueName, err)
	}
	return newConsumer(rmq, queueName, log), nil
}

func newConsumer(rmq *RabbitMQ, queueName string, log *logger.Logger) *Consumer {
	return &Consumer{
		rmq:       rmq,
		queueName: queueName,
		logger:    log,
		handlers:  make(map[string]MessageHandler),
		failures:  make(map[string]int),
	}
}

// Subscribe binds the queue to exchange for routingKeyPattern. Bindings are
// remembered so Restart can restore them on a fresh channel.
func (c *Consumer) Subscribe(exchange, routingKeyPattern string) error {
	if err := c.bind(binding{exchange: exchange, routingKey: routingKeyPattern}); err != nil {
		return err
	}

	c.mu.Lock()
	c.bindings = append(c.bindings, binding{exchange: exchange, routingKey: routingKeyPattern})
	c.mu.Unlock()

	c.logger.Info().
		Str("queue", c.queueName).
		Str("exchange", exchange).
		Str("routing_key", routingKeyPattern).
		Msg("queue bound")
	return nil
}

func (c *Consumer) bind(b binding) error {
	if err := c.rmq.DeclareExchange(b.exchange); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", b.exchange, err)
	}
	if err := c.rmq.BindQueue(c.queueName, b.exchange, b.routingKey); err != nil {
		return fmt.Errorf("failed to bind %s to %s: %w", c.queueName, b.exchange, err)
	}
	return nil
}

// RegisterHandler sets the handler for eventType, replacing any previous one
func (c *Consumer) RegisterHandler(eventType string, handler MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[eventType] = handler
}

// Start consumes the queue in a background goroutine until ctx is done or
// the delivery channel closes
func (c *Consumer) Start(ctx context.Context) error {
	deliveries, err := c.rmq.Channel().Consume(c.queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume %s: %w", c.queueName, err)
	}

	c.logger.Info().Str("queue", c.queueName).Msg("consumer started")

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.logger.Info().Str("queue", c.queueName).Msg("consumer stopped")
				return
			case msg, ok := <-deliveries:
				if !ok {
					c.logger.Warn().Str("queue", c.queueName).Msg("delivery channel closed")
					return
				}
				c.settle(msg, c.dispatch(ctx, msg.Body, deathCount(msg)))
			}
		}
	}()
	return nil
}

// Restart redeclares the queue and its bindings and consumes again. Called
// after a broker reconnect.
func (c *Consumer) Restart(ctx context.Context) error {
	if _, err := c.rmq.DeclareQueue(c.queueName); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", c.queueName, err)
	}

	c.mu.RLock()
	bindings := append([]binding(nil), c.bindings...)
	c.mu.RUnlock()

	for _, b := range bindings {
		if err := c.bind(b); err != nil {
			return err
		}
	}
	return c.Start(ctx)
}

type deliveryOutcome int

const (
	outcomeAck deliveryOutcome = iota
	outcomeRequeue
	outcomeDeadLetter
)

func (c *Consumer) settle(msg amqp.Delivery, outcome deliveryOutcome) {
	var err error
	switch outcome {
	case outcomeAck:
		err = msg.Ack(false)
	case outcomeRequeue:
		err = msg.Nack(false, true)
	case outcomeDeadLetter:
		err = msg.Reject(false)
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("queue", c.queueName).Msg("failed to settle delivery")
	}
}

// dispatch decodes the envelope and runs its handler. Events nobody handles
// are acknowledged; undecodable bodies are dead-lettered straight away.
// deaths is the number of earlier dead-letterings reported by the broker.
func (c *Consumer) dispatch(ctx context.Context, body []byte, deaths int) deliveryOutcome {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		c.logger.Error().Err(err).Str("queue", c.queueName).Msg("undecodable event")
		return outcomeDeadLetter
	}

	c.mu.RLock()
	handler, ok := c.handlers[event.Type]
	c.mu.RUnlock()
	if !ok {
		c.logger.Debug().Str("event_type", event.Type).Msg("no handler for event type")
		return outcomeAck
	}

	log := c.logger.WithCorrelationID(event.CorrelationID)
	log.Debug().Str("event_type", event.Type).Str("event_id", event.ID).Msg("processing event")

	err := handler(WithCorrelationID(ctx, event.CorrelationID), &event)
	if err == nil {
		c.forget(event.ID)
		return outcomeAck
	}

	attempts := c.recordFailure(event.ID) + deaths
	log.Error().
		Err(err).
		Str("event_type", event.Type).
		Str("event_id", event.ID).
		Int("attempt", attempts).
		Msg("event handler failed")

	if attempts >= maxDeliveryAttempts {
		c.forget(event.ID)
		log.Warn().Str("event_id", event.ID).Msg("giving up on event, dead-lettering")
		return outcomeDeadLetter
	}
	return outcomeRequeue
}

func (c *Consumer) recordFailure(eventID string) int {
	c.failMu.Lock()
	defer c.failMu.Unlock()
	c.failures[eventID]++
	return c.failures[eventID]
}

func (c *Consumer) forget(eventID string) {
	c.failMu.Lock()
	delete(c.failures, eventID)
	c.failMu.Unlock()
}

// deathCount sums the x-death counts the broker attached to msg
func deathCount(msg amqp.Delivery) int {
	deaths, ok := msg.Headers["x-death"].([]interface{})
	if !ok {
		return 0
	}

	total := 0
	for _, death := range deaths {
		if d, ok := death.(amqp.Table); ok {
			if count, ok := d["count"].(int64); ok {
				total += int(count)
			}
		}
	}
	return total
}

package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/medflow/medflow-attendance/pkg/config"
	"github.com/medflow/medflow-attendance/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	deadLetterExchange = "dlx.events"
	heartbeat          = 10 * time.Second
)

var errShutdown = errors.New("rabbitmq connection is shut down")

// RabbitMQ owns one broker connection and the channel shared by the
// publisher and the consumers. The channel is replaced on reconnect.
type RabbitMQ struct {
	cfg    *config.RabbitMQConfig
	name   string
	logger *logger.Logger

	mu         sync.RWMutex
	conn       *amqp.Connection
	channel    *amqp.Channel
	reconnects int
	shutdown   bool
}

// New dials the broker. name shows up as the connection name in the
// management UI.
func New(cfg *config.RabbitMQConfig, name string, log *logger.Logger) (*RabbitMQ, error) {
	r := &RabbitMQ{cfg: cfg, name: name, logger: log}

	conn, ch, err := r.dial()
	if err != nil {
		return nil, err
	}
	r.conn, r.channel = conn, ch

	log.Info().Str("connection_name", name).Msg("connected to RabbitMQ")
	return r, nil
}

func (r *RabbitMQ) dial() (*amqp.Connection, *amqp.Channel, error) {
	props := amqp.NewConnectionProperties()
	props.SetClientConnectionName(r.name)

	conn, err := amqp.DialConfig(r.cfg.URL, amqp.Config{Heartbeat: heartbeat, Properties: props})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.Qos(r.cfg.PrefetchCount, 0, false); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to set prefetch to %d: %w", r.cfg.PrefetchCount, err)
	}
	return conn, ch, nil
}

// Channel returns the current channel. It may be closed while a reconnect
// is in progress.
func (r *RabbitMQ) Channel() *amqp.Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.channel
}

// Close shuts the connection down for good; Watch stops reconnecting
func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.shutdown = true
	if r.channel != nil {
		if err := r.channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			r.logger.Warn().Err(err).Msg("failed to close channel")
		}
	}
	if r.conn != nil && !r.conn.IsClosed() {
		if err := r.conn.Close(); err != nil {
			return fmt.Errorf("failed to close RabbitMQ connection: %w", err)
		}
	}

	r.logger.Info().Msg("RabbitMQ connection closed")
	return nil
}

// Health reports the connection state for the health endpoint
func (r *RabbitMQ) Health() map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status := map[string]interface{}{
		"status":     "up",
		"reconnects": r.reconnects,
	}
	if r.conn == nil || r.conn.IsClosed() {
		status["status"] = "down"
		status["error"] = "connection closed"
	}
	return status
}

// DeclareExchange declares a durable topic exchange
func (r *RabbitMQ) DeclareExchange(name string) error {
	return r.Channel().ExchangeDeclare(name, amqp.ExchangeTopic, true, false, false, false, nil)
}

// DeclareQueue declares a durable queue whose rejected messages go to the
// dead letter exchange
func (r *RabbitMQ) DeclareQueue(name string) (amqp.Queue, error) {
	return r.Channel().QueueDeclare(name, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange": deadLetterExchange,
	})
}

// DeclareDeadLetterQueue declares the dead letter exchange plus
// dlq.<serviceName>, bound to every routing key
func (r *RabbitMQ) DeclareDeadLetterQueue(serviceName string) error {
	if err := r.DeclareExchange(deadLetterExchange); err != nil {
		return fmt.Errorf("failed to declare %s: %w", deadLetterExchange, err)
	}

	queue := "dlq." + serviceName
	if _, err := r.Channel().QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare %s: %w", queue, err)
	}
	return r.BindQueue(queue, deadLetterExchange, "#")
}

// BindQueue binds queueName to exchange for routingKey
func (r *RabbitMQ) BindQueue(queueName, exchange, routingKey string) error {
	return r.Channel().QueueBind(queueName, routingKey, exchange, false, nil)
}

// Watch redials whenever the broker drops the connection and then calls
// onReconnect, so consumers can resubscribe. The publisher needs nothing:
// it resolves the channel per publish. Watch ends with ctx, on Close, or
// once MaxRetries redials in a row have failed.
func (r *RabbitMQ) Watch(ctx context.Context, onReconnect func()) {
	go func() {
		for {
			r.mu.RLock()
			closed := r.conn.NotifyClose(make(chan *amqp.Error, 1))
			r.mu.RUnlock()

			select {
			case <-ctx.Done():
				return
			case reason := <-closed:
				if r.isShutdown() {
					return
				}
				r.logger.Warn().Interface("reason", reason).Msg("RabbitMQ connection lost")

				if err := r.Reconnect(ctx); err != nil {
					r.logger.Error().Err(err).Msg("giving up on RabbitMQ")
					return
				}
				if onReconnect != nil {
					onReconnect()
				}
			}
		}
	}()
}

// Reconnect redials up to MaxRetries times, ReconnectDelay apart
func (r *RabbitMQ) Reconnect(ctx context.Context) error {
	for attempt := 1; attempt <= r.cfg.MaxRetries; attempt++ {
		if r.isShutdown() {
			return errShutdown
		}

		conn, ch, err := r.dial()
		if err == nil {
			r.mu.Lock()
			r.conn, r.channel = conn, ch
			r.reconnects++
			r.mu.Unlock()

			r.logger.Info().Int("attempt", attempt).Msg("reconnected to RabbitMQ")
			return nil
		}
		r.logger.Warn().Err(err).Int("attempt", attempt).Msg("RabbitMQ reconnect failed")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.cfg.ReconnectDelay):
		}
	}
	return fmt.Errorf("failed to reconnect to RabbitMQ after %d attempts", r.cfg.MaxRetries)
}

func (r *RabbitMQ) isShutdown() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.shutdown
}

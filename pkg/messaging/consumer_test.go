package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/medflow/medflow-attendance/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodedEvent(t *testing.T, eventType string, data interface{}) []byte {
	t.Helper()
	event, err := NewEvent(eventType, "staff-service", "corr-42", data)
	require.NoError(t, err)
	body, err := json.Marshal(event)
	require.NoError(t, err)
	return body
}

func TestConsumerDispatch(t *testing.T) {
	clockIn := TimeClockInEvent{TimeEntryID: "entry-1", EmployeeID: "emp-1"}

	t.Run("acks handled events and propagates correlation id", func(t *testing.T) {
		c := newConsumer(nil, "attendance-service.staff", logger.NewNop())

		var got TimeClockInEvent
		var correlation string
		c.RegisterHandler(EventTimeClockIn, func(ctx context.Context, e *Event) error {
			correlation = CorrelationID(ctx)
			return e.UnmarshalData(&got)
		})

		outcome := c.dispatch(context.Background(), encodedEvent(t, EventTimeClockIn, clockIn), 0)

		assert.Equal(t, outcomeAck, outcome)
		assert.Equal(t, clockIn, got)
		assert.Equal(t, "corr-42", correlation)
	})

	t.Run("acks events without handler", func(t *testing.T) {
		c := newConsumer(nil, "attendance-service.staff", logger.NewNop())
		outcome := c.dispatch(context.Background(), encodedEvent(t, EventEmployeeCreated, EmployeeCreatedEvent{}), 0)
		assert.Equal(t, outcomeAck, outcome)
	})

	t.Run("dead-letters malformed bodies", func(t *testing.T) {
		c := newConsumer(nil, "attendance-service.staff", logger.NewNop())
		outcome := c.dispatch(context.Background(), []byte("{not json"), 0)
		assert.Equal(t, outcomeDeadLetter, outcome)
	})

	t.Run("dead-letters after repeated failures", func(t *testing.T) {
		c := newConsumer(nil, "attendance-service.staff", logger.NewNop())
		c.RegisterHandler(EventTimeClockIn, func(context.Context, *Event) error {
			return errors.New("database unavailable")
		})
		body := encodedEvent(t, EventTimeClockIn, clockIn)

		for i := 1; i < maxDeliveryAttempts; i++ {
			assert.Equal(t, outcomeRequeue, c.dispatch(context.Background(), body, 0), "attempt %d", i)
		}
		assert.Equal(t, outcomeDeadLetter, c.dispatch(context.Background(), body, 0))
		assert.Empty(t, c.failures, "dead-lettered events are forgotten")
	})

	t.Run("counts broker dead-letterings", func(t *testing.T) {
		c := newConsumer(nil, "attendance-service.staff", logger.NewNop())
		c.RegisterHandler(EventTimeClockIn, func(context.Context, *Event) error {
			return errors.New("database unavailable")
		})
		body := encodedEvent(t, EventTimeClockIn, clockIn)

		assert.Equal(t, outcomeDeadLetter, c.dispatch(context.Background(), body, maxDeliveryAttempts-1))
	})

	t.Run("success clears earlier failures", func(t *testing.T) {
		c := newConsumer(nil, "attendance-service.staff", logger.NewNop())
		fail := true
		c.RegisterHandler(EventTimeClockIn, func(context.Context, *Event) error {
			if fail {
				return errors.New("database unavailable")
			}
			return nil
		})
		body := encodedEvent(t, EventTimeClockIn, clockIn)

		assert.Equal(t, outcomeRequeue, c.dispatch(context.Background(), body, 0))
		fail = false
		assert.Equal(t, outcomeAck, c.dispatch(context.Background(), body, 0))
		assert.Empty(t, c.failures)
	})
}

func TestDeathCount(t *testing.T) {
	assert.Equal(t, 0, deathCount(amqp.Delivery{}))

	msg := amqp.Delivery{Headers: amqp.Table{
		"x-death": []interface{}{
			amqp.Table{"count": int64(2), "queue": "attendance-service.staff-events"},
			amqp.Table{"count": int64(1), "queue": "dlq.attendance-service"},
		},
	}}
	assert.Equal(t, 3, deathCount(msg))
}

package events

import (
	"context"

	"github.com/google/uuid"
	"github.com/medflow/medflow-attendance/internal/attendance/domain"
	"github.com/medflow/medflow-attendance/pkg/errors"
	"github.com/medflow/medflow-attendance/pkg/logger"
	"github.com/medflow/medflow-attendance/pkg/messaging"
)

// Publisher publishes one event
type Publisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

var eventTypes = map[string]string{
	domain.NotifyRequestCreated: messaging.EventAdjustmentRequestCreated,
	domain.NotifyApproved:       messaging.EventAdjustmentRequestApproved,
	domain.NotifyRejected:       messaging.EventAdjustmentRequestRejected,
}

// NotificationDispatcher turns workflow notifications into
// attendance.adjustment.* events. Notifications the broker refuses are
// parked in the outbox and retried later.
type NotificationDispatcher struct {
	publisher Publisher
	outbox    *Outbox
	logger    *logger.Logger
}

// NewNotificationDispatcher creates a dispatcher. outbox may be nil, in
// which case publish failures are returned to the caller.
func NewNotificationDispatcher(publisher Publisher, outbox *Outbox, log *logger.Logger) *NotificationDispatcher {
	return &NotificationDispatcher{
		publisher: publisher,
		outbox:    outbox,
		logger:    log,
	}
}

// Notify publishes a notification of kind about employeeID's request. It
// only fails when the notification could neither be published nor queued.
func (d *NotificationDispatcher) Notify(ctx context.Context, kind, employeeID string, payload domain.NotificationPayload) error {
	eventType, ok := eventTypes[kind]
	if !ok {
		return errors.BadRequest("unknown notification kind: " + kind)
	}

	event := messaging.AdjustmentNotificationEvent{
		NotificationID: uuid.New().String(),
		Kind:           kind,
		Audience:       domain.AudienceOf(kind),
		EmployeeID:     employeeID,
		EmployeeName:   payload.EmployeeName,
		RequestID:      payload.RequestID,
		TimeEntryID:    payload.TimeEntryID,
		Reason:         payload.Reason,
		ReviewedBy:     payload.ReviewedBy,
		ReviewNotes:    payload.ReviewNotes,
		RequestedIn:    payload.RequestedIn.UTC(),
		RequestedOut:   payload.RequestedOut,
	}

	err := d.publisher.Publish(ctx, eventType, event)
	if err == nil {
		return nil
	}

	if d.outbox == nil {
		return errors.Dependency("notification dispatcher", err)
	}

	entry, outboxErr := d.outbox.Put(eventType, event, err)
	if outboxErr != nil {
		d.logger.Error().
			Err(outboxErr).
			Str("event_type", eventType).
			Str("request_id", payload.RequestID).
			Msg("failed to queue notification in outbox")
		return errors.Dependency("notification dispatcher", err)
	}

	d.logger.Warn().
		Err(err).
		Str("event_type", eventType).
		Str("request_id", payload.RequestID).
		Str("outbox_id", entry.ID).
		Msg("notification queued for retry")
	return nil
}

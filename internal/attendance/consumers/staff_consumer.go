package consumers

import (
	"context"
	"time"

	"github.com/medflow/medflow-attendance/internal/attendance/domain"
	"github.com/medflow/medflow-attendance/pkg/errors"
	"github.com/medflow/medflow-attendance/pkg/logger"
	"github.com/medflow/medflow-attendance/pkg/messaging"
)

const (
	serviceName      = "attendance-service"
	staffEventsQueue = serviceName + ".staff-events"
)

// ClockEventWriter records time entries mirrored from the staff service
type ClockEventWriter interface {
	RecordClockIn(ctx context.Context, event domain.ClockEvent) error
	RecordClockOut(ctx context.Context, id string, clockOut time.Time) error
}

// RosterWriter maintains the local employee roster
type RosterWriter interface {
	GetEmployees(ctx context.Context) ([]domain.Employee, error)
	Upsert(ctx context.Context, employee domain.Employee) error
	Deactivate(ctx context.Context, employeeID string) error
}

// LeaveWriter maintains the local copy of employee absences
type LeaveWriter interface {
	Upsert(ctx context.Context, leave domain.Leave) error
	SetStatus(ctx context.Context, absenceID, status string) error
	Delete(ctx context.Context, absenceID string) error
}

// StaffEventConsumer consumes staff events
type StaffEventConsumer struct {
	consumer *messaging.Consumer
	*staffEventHandlers
}

// NewStaffEventConsumer creates a new staff event consumer
func NewStaffEventConsumer(
	rmq *messaging.RabbitMQ,
	events ClockEventWriter,
	roster RosterWriter,
	leaves LeaveWriter,
	log *logger.Logger,
) (*StaffEventConsumer, error) {
	// Rejected staff events are parked in dlq.attendance-service
	if err := rmq.DeclareDeadLetterQueue(serviceName); err != nil {
		return nil, err
	}

	consumer, err := messaging.NewConsumer(rmq, staffEventsQueue, log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangeStaffEvents, "staff.#"); err != nil {
		return nil, err
	}

	c := &StaffEventConsumer{
		consumer:           consumer,
		staffEventHandlers: newStaffEventHandlers(events, roster, leaves, log),
	}
	c.register(consumer)

	return c, nil
}

// Start starts consuming messages
func (c *StaffEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

// Restart rebinds the queue after a broker reconnect
func (c *StaffEventConsumer) Restart(ctx context.Context) error {
	return c.consumer.Restart(ctx)
}

type staffEventHandlers struct {
	events ClockEventWriter
	roster RosterWriter
	leaves LeaveWriter
	logger *logger.Logger
}

func newStaffEventHandlers(events ClockEventWriter, roster RosterWriter, leaves LeaveWriter, log *logger.Logger) *staffEventHandlers {
	return &staffEventHandlers{
		events: events,
		roster: roster,
		leaves: leaves,
		logger: log,
	}
}

func (h *staffEventHandlers) register(consumer *messaging.Consumer) {
	for eventType, handler := range h.handlers() {
		consumer.RegisterHandler(eventType, handler)
	}
}

func (h *staffEventHandlers) handlers() map[string]messaging.MessageHandler {
	return map[string]messaging.MessageHandler{
		messaging.EventEmployeeCreated: h.handleEmployeeCreated,
		messaging.EventEmployeeUpdated: h.handleEmployeeUpdated,
		messaging.EventEmployeeDeleted: h.handleEmployeeDeleted,
		messaging.EventAbsenceCreated:  h.handleAbsenceCreated,
		messaging.EventAbsenceApproved: h.handleAbsenceApproved,
		messaging.EventAbsenceRejected: h.handleAbsenceRejected,
		messaging.EventAbsenceDeleted:  h.handleAbsenceDeleted,
		messaging.EventTimeClockIn:     h.handleClockIn,
		messaging.EventTimeClockOut:    h.handleClockOut,
	}
}

func (h *staffEventHandlers) handleEmployeeCreated(ctx context.Context, event *messaging.Event) error {
	var data messaging.EmployeeCreatedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	h.logger.Info().
		Str("employee_id", data.EmployeeID).
		Str("name", data.Name).
		Msg("received employee created event")

	return h.roster.Upsert(ctx, domain.Employee{ID: data.EmployeeID, Name: data.Name})
}

func (h *staffEventHandlers) handleEmployeeUpdated(ctx context.Context, event *messaging.Event) error {
	var data messaging.EmployeeUpdatedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	h.logger.Info().
		Str("employee_id", data.EmployeeID).
		Msg("received employee updated event")

	name, ok := changedString(data.Fields, "name")
	if !ok {
		return nil // nothing the roster tracks
	}
	return h.roster.Upsert(ctx, domain.Employee{ID: data.EmployeeID, Name: name})
}

func (h *staffEventHandlers) handleEmployeeDeleted(ctx context.Context, event *messaging.Event) error {
	var data messaging.EmployeeDeletedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	h.logger.Info().
		Str("employee_id", data.EmployeeID).
		Msg("received employee deleted event")

	return h.roster.Deactivate(ctx, data.EmployeeID)
}

func (h *staffEventHandlers) handleAbsenceCreated(ctx context.Context, event *messaging.Event) error {
	var data messaging.AbsenceCreatedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	h.logger.Info().
		Str("absence_id", data.AbsenceID).
		Str("employee_id", data.EmployeeID).
		Str("status", data.Status).
		Msg("received absence created event")

	status := data.Status
	if status == "" {
		status = domain.LeavePending
	}
	return h.leaves.Upsert(ctx, domain.Leave{
		AbsenceID:   data.AbsenceID,
		EmployeeID:  data.EmployeeID,
		AbsenceType: data.AbsenceType,
		StartDate:   data.StartDate,
		EndDate:     data.EndDate,
		Status:      status,
	})
}

func (h *staffEventHandlers) handleAbsenceApproved(ctx context.Context, event *messaging.Event) error {
	var data messaging.AbsenceApprovedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	h.logger.Info().
		Str("absence_id", data.AbsenceID).
		Str("reviewer_id", data.ReviewerID).
		Msg("received absence approved event")

	return h.leaves.SetStatus(ctx, data.AbsenceID, domain.LeaveApproved)
}

func (h *staffEventHandlers) handleAbsenceRejected(ctx context.Context, event *messaging.Event) error {
	var data messaging.AbsenceRejectedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	h.logger.Info().
		Str("absence_id", data.AbsenceID).
		Str("reviewer_id", data.ReviewerID).
		Msg("received absence rejected event")

	return h.leaves.SetStatus(ctx, data.AbsenceID, domain.LeaveRejected)
}

func (h *staffEventHandlers) handleAbsenceDeleted(ctx context.Context, event *messaging.Event) error {
	var data messaging.AbsenceDeletedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	h.logger.Info().
		Str("absence_id", data.AbsenceID).
		Msg("received absence deleted event")

	return h.leaves.Delete(ctx, data.AbsenceID)
}

func (h *staffEventHandlers) handleClockIn(ctx context.Context, event *messaging.Event) error {
	var data messaging.TimeClockInEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	h.logger.Info().
		Str("time_entry_id", data.TimeEntryID).
		Str("employee_id", data.EmployeeID).
		Bool("is_manual", data.IsManual).
		Msg("received clock in event")

	if data.TimeEntryID == "" || data.EmployeeID == "" {
		return errors.BadRequest("clock in event without time entry or employee")
	}

	return h.events.RecordClockIn(ctx, domain.ClockEvent{
		ID:           data.TimeEntryID,
		EmployeeID:   data.EmployeeID,
		EmployeeName: h.employeeName(ctx, data.EmployeeID),
		ClockIn:      data.ClockIn,
		Latitude:     data.Latitude,
		Longitude:    data.Longitude,
		Status:       domain.ClockEventActive,
	})
}

func (h *staffEventHandlers) handleClockOut(ctx context.Context, event *messaging.Event) error {
	var data messaging.TimeClockOutEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	h.logger.Info().
		Str("time_entry_id", data.TimeEntryID).
		Str("employee_id", data.EmployeeID).
		Int("total_work_minutes", data.TotalWorkMinutes).
		Msg("received clock out event")

	err := h.events.RecordClockOut(ctx, data.TimeEntryID, data.ClockOut)
	if errors.Is(err, errors.ErrNotFound) {
		// Clock-in was never mirrored; rebuild the whole entry.
		h.logger.Warn().
			Str("time_entry_id", data.TimeEntryID).
			Msg("clock out for unknown time entry, recording full entry")

		if err := h.events.RecordClockIn(ctx, domain.ClockEvent{
			ID:           data.TimeEntryID,
			EmployeeID:   data.EmployeeID,
			EmployeeName: h.employeeName(ctx, data.EmployeeID),
			ClockIn:      data.ClockIn,
			Status:       domain.ClockEventActive,
		}); err != nil {
			return err
		}
		return h.events.RecordClockOut(ctx, data.TimeEntryID, data.ClockOut)
	}
	return err
}

// employeeName resolves a display name from the roster. A missing name is
// not fatal for a clock event.
func (h *staffEventHandlers) employeeName(ctx context.Context, employeeID string) string {
	employees, err := h.roster.GetEmployees(ctx)
	if err != nil {
		h.logger.Warn().Err(err).Str("employee_id", employeeID).Msg("failed to resolve employee name")
		return ""
	}
	for _, e := range employees {
		if e.ID == employeeID {
			return e.Name
		}
	}
	return ""
}

// changedString reads a field from an update event. Fields arrive either as
// plain values or as {"from": ..., "to": ...} pairs.
func changedString(fields map[string]any, key string) (string, bool) {
	switch v := fields[key].(type) {
	case string:
		return v, true
	case map[string]any:
		to, ok := v["to"].(string)
		return to, ok
	default:
		return "", false
	}
}

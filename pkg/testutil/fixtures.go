package testutil

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/medflow/medflow-attendance/internal/attendance/domain"
)

// FixtureFactory creates test fixtures with sensible defaults
type FixtureFactory struct {
	sequence int
	// Day is the calendar day clock events default to (09:00 UTC)
	Day time.Time
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory() *FixtureFactory {
	return &FixtureFactory{
		Day: time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC),
	}
}

// nextSeq returns the next sequence number for unique values
func (f *FixtureFactory) nextSeq() int {
	f.sequence++
	return f.sequence
}

// Employee creates a roster employee fixture with defaults
func (f *FixtureFactory) Employee(opts ...func(*domain.Employee)) domain.Employee {
	seq := f.nextSeq()

	emp := domain.Employee{
		ID:   fmt.Sprintf("emp-%04d", seq),
		Name: fmt.Sprintf("Employee%d Test", seq),
	}

	for _, opt := range opts {
		opt(&emp)
	}

	return emp
}

// WithEmployeeName sets the employee's display name
func WithEmployeeName(name string) func(*domain.Employee) {
	return func(e *domain.Employee) {
		e.Name = name
	}
}

// ClockEvent creates a completed 09:00-17:00 shift on the factory day
func (f *FixtureFactory) ClockEvent(emp domain.Employee, opts ...func(*domain.ClockEvent)) domain.ClockEvent {
	in := f.Day.Add(9 * time.Hour)
	out := f.Day.Add(17 * time.Hour)

	event := domain.ClockEvent{
		ID:           uuid.New().String(),
		EmployeeID:   emp.ID,
		EmployeeName: emp.Name,
		ClockIn:      in,
		ClockOut:     &out,
		Status:       domain.ClockEventCompleted,
		CreatedAt:    in,
		UpdatedAt:    out,
	}

	for _, opt := range opts {
		opt(&event)
	}

	return event
}

// WithClockIn sets the clock-in to hh:mm on the event's day
func WithClockIn(hour, minute int) func(*domain.ClockEvent) {
	return func(e *domain.ClockEvent) {
		day := time.Date(e.ClockIn.Year(), e.ClockIn.Month(), e.ClockIn.Day(), 0, 0, 0, 0, e.ClockIn.Location())
		e.ClockIn = day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
	}
}

// WithoutClockOut leaves the shift open
func WithoutClockOut() func(*domain.ClockEvent) {
	return func(e *domain.ClockEvent) {
		e.ClockOut = nil
		e.Status = domain.ClockEventActive
	}
}

// OnDay moves the event to another calendar day keeping its times of day
func OnDay(day time.Time) func(*domain.ClockEvent) {
	return func(e *domain.ClockEvent) {
		shift := day.Sub(time.Date(e.ClockIn.Year(), e.ClockIn.Month(), e.ClockIn.Day(), 0, 0, 0, 0, day.Location()))
		e.ClockIn = e.ClockIn.Add(shift)
		if e.ClockOut != nil {
			out := e.ClockOut.Add(shift)
			e.ClockOut = &out
		}
	}
}

// AdjustmentRequest creates a pending request moving the event's
// clock-in 30 minutes earlier
func (f *FixtureFactory) AdjustmentRequest(event domain.ClockEvent, opts ...func(*domain.AdjustmentRequest)) domain.AdjustmentRequest {
	now := event.ClockIn.Add(10 * time.Hour)

	req := domain.AdjustmentRequest{
		ID:               uuid.New().String(),
		TimeEntryID:      event.ID,
		EmployeeID:       event.EmployeeID,
		EmployeeName:     event.EmployeeName,
		OriginalClockIn:  event.ClockIn,
		OriginalClockOut: event.ClockOut,
		RequestedClockIn: event.ClockIn.Add(-30 * time.Minute),
		Reason:           domain.ReasonForgotClockIn,
		Status:           domain.AdjustmentPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	for _, opt := range opts {
		opt(&req)
	}

	return req
}

// WithReason sets the adjustment reason and free text
func WithReason(reason, text string) func(*domain.AdjustmentRequest) {
	return func(r *domain.AdjustmentRequest) {
		r.Reason = reason
		r.ReasonText = text
	}
}

// Leave creates an approved vacation covering the factory day
func (f *FixtureFactory) Leave(emp domain.Employee, opts ...func(*domain.Leave)) domain.Leave {
	seq := f.nextSeq()

	leave := domain.Leave{
		AbsenceID:   fmt.Sprintf("abs-%04d", seq),
		EmployeeID:  emp.ID,
		AbsenceType: "vacation",
		StartDate:   f.Day,
		EndDate:     f.Day,
		Status:      domain.LeaveApproved,
	}

	for _, opt := range opts {
		opt(&leave)
	}

	return leave
}

// WithLeaveStatus sets the leave status
func WithLeaveStatus(status string) func(*domain.Leave) {
	return func(l *domain.Leave) {
		l.Status = status
	}
}

// DefaultSettings returns Monday-Friday settings expecting 09:00 with a
// 15 minute late and 120 minute absent threshold
func DefaultSettings() domain.Settings {
	return domain.Settings{
		ExpectedClockInTime:    "09:00",
		LateThresholdMinutes:   15,
		AbsentThresholdMinutes: 120,
		WorkDays:               []int{1, 2, 3, 4, 5},
	}
}

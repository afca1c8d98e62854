package service

import (
	"context"
	"time"

	"github.com/medflow/medflow-attendance/internal/attendance/domain"
)

// ClockEventStore reads and updates recorded shifts
type ClockEventStore interface {
	// GetEventsForDate returns the events whose clock-in falls on the
	// calendar day of date in the organisational timezone.
	GetEventsForDate(ctx context.Context, date time.Time) ([]domain.ClockEvent, error)
	GetEvent(ctx context.Context, id string) (*domain.ClockEvent, error)
	UpdateEvent(ctx context.Context, id string, update domain.ClockEventUpdate) error
}

// RosterProvider lists the employees evaluated for attendance
type RosterProvider interface {
	GetEmployees(ctx context.Context) ([]domain.Employee, error)
}

// LeaveProvider lists approved leaves overlapping [from, to]
type LeaveProvider interface {
	GetLeaves(ctx context.Context, from, to time.Time) ([]domain.Leave, error)
}

// AdjustmentRequestStore persists adjustment requests. UpdateStatus only
// succeeds while the stored request is still pending.
type AdjustmentRequestStore interface {
	Create(ctx context.Context, req *domain.AdjustmentRequest) error
	GetByID(ctx context.Context, id string) (*domain.AdjustmentRequest, error)
	UpdateStatus(ctx context.Context, req *domain.AdjustmentRequest) error
	List(ctx context.Context, filter domain.AdjustmentFilter) ([]*domain.AdjustmentRequest, int64, error)
}

// SettingsStore persists the organisation's attendance settings. Get
// returns nil without error when nothing has been stored yet.
type SettingsStore interface {
	Get(ctx context.Context) (*domain.Settings, error)
	Save(ctx context.Context, settings domain.Settings) error
}

// NotificationDispatcher delivers workflow notifications
type NotificationDispatcher interface {
	Notify(ctx context.Context, kind, employeeID string, payload domain.NotificationPayload) error
}

// EventPublisher publishes integration events
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// Transactor runs fn atomically. Stores called with the context passed to
// fn take part in the same unit of work.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Clock supplies the current time
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock
type ClockFunc func() time.Time

// Now implements Clock
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock is the wall clock
var SystemClock Clock = ClockFunc(time.Now)

package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/medflow/medflow-attendance/internal/attendance/domain"
	"github.com/medflow/medflow-attendance/pkg/database"
	"github.com/medflow/medflow-attendance/pkg/errors"
)

const clockEventColumns = `
	id, employee_id, employee_name, clock_in, clock_out, latitude, longitude,
	status, adjustment_request_id, created_at, updated_at`

// ClockEventRepository handles clock event persistence. Timestamps are
// returned in the organisational timezone.
type ClockEventRepository struct {
	db  *database.DB
	loc *time.Location
}

// NewClockEventRepository creates a new clock event repository
func NewClockEventRepository(db *database.DB, loc *time.Location) *ClockEventRepository {
	if loc == nil {
		loc = time.UTC
	}
	return &ClockEventRepository{db: db, loc: loc}
}

// GetEventsForDate returns the events clocked in on the calendar day of date
func (r *ClockEventRepository) GetEventsForDate(ctx context.Context, date time.Time) ([]domain.ClockEvent, error) {
	from := domain.StartOfDay(date.In(r.loc))
	to := from.AddDate(0, 0, 1)

	query := `SELECT` + clockEventColumns + `
		FROM clock_events
		WHERE clock_in >= $1 AND clock_in < $2
		ORDER BY clock_in ASC
	`

	var events []domain.ClockEvent
	if err := r.db.Executor(ctx).SelectContext(ctx, &events, query, from, to); err != nil {
		return nil, errors.Dependency("clock event store", err)
	}

	for i := range events {
		events[i] = events[i].In(r.loc)
	}
	return events, nil
}

// GetEvent gets a clock event by ID
func (r *ClockEventRepository) GetEvent(ctx context.Context, id string) (*domain.ClockEvent, error) {
	return r.get(ctx, id, false)
}

func (r *ClockEventRepository) get(ctx context.Context, id string, forUpdate bool) (*domain.ClockEvent, error) {
	query := `SELECT` + clockEventColumns + ` FROM clock_events WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var event domain.ClockEvent
	err := r.db.Executor(ctx).GetContext(ctx, &event, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("time entry")
	}
	if err != nil {
		return nil, errors.Dependency("clock event store", err)
	}

	event = event.In(r.loc)
	return &event, nil
}

// UpdateEvent overwrites the fields set in update. The row is locked for
// the duration of the surrounding transaction, if any.
func (r *ClockEventRepository) UpdateEvent(ctx context.Context, id string, update domain.ClockEventUpdate) error {
	current, err := r.get(ctx, id, true)
	if err != nil {
		return err
	}

	next, err := update.Apply(*current)
	if err != nil {
		return err
	}

	query := `
		UPDATE clock_events SET
			clock_in = $2, clock_out = $3, status = $4, adjustment_request_id = $5, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		id, next.ClockIn.UTC(), utcPtr(next.ClockOut), next.Status, next.AdjustmentRequestID,
	)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return errors.Dependency("clock event store", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("time entry")
	}
	return nil
}

// RecordClockIn stores a new active event. Redelivered events are ignored.
func (r *ClockEventRepository) RecordClockIn(ctx context.Context, event domain.ClockEvent) error {
	query := `
		INSERT INTO clock_events (
			id, employee_id, employee_name, clock_in, latitude, longitude, status
		) VALUES ($1, $2, $3, $4, $5, $6, 'active')
		ON CONFLICT (id) DO NOTHING
	`
	_, err := r.db.Executor(ctx).ExecContext(ctx, query,
		event.ID, event.EmployeeID, event.EmployeeName, event.ClockIn.UTC(), event.Latitude, event.Longitude,
	)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return errors.Dependency("clock event store", err)
	}
	return nil
}

// RecordClockOut sets the clock-out of an event that has none yet. An
// adjusted event keeps its status; a clock-out already set, by the device
// or by an approved correction, is never overwritten.
func (r *ClockEventRepository) RecordClockOut(ctx context.Context, id string, clockOut time.Time) error {
	query := `
		UPDATE clock_events
		SET clock_out = $2,
			status = CASE WHEN status = 'adjusted' THEN 'adjusted' ELSE 'completed' END,
			updated_at = NOW()
		WHERE id = $1 AND clock_out IS NULL
	`
	result, err := r.db.Executor(ctx).ExecContext(ctx, query, id, clockOut.UTC())
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return errors.Dependency("clock event store", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		var exists bool
		if err := r.db.Executor(ctx).GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM clock_events WHERE id = $1)`, id); err != nil {
			return errors.Dependency("clock event store", err)
		}
		if !exists {
			return errors.NotFound("time entry")
		}
	}
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

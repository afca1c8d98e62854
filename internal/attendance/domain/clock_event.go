package domain

import (
	"time"

	"github.com/medflow/medflow-attendance/pkg/errors"
)

// Clock event statuses
const (
	ClockEventActive    = "active"
	ClockEventCompleted = "completed"
	ClockEventAdjusted  = "adjusted"
)

// ClockEvent is one shift's clock-in/clock-out pair. Timestamps are always
// expressed in the organisational timezone once they leave the store.
type ClockEvent struct {
	ID                  string     `db:"id" json:"id"`
	EmployeeID          string     `db:"employee_id" json:"employee_id"`
	EmployeeName        string     `db:"employee_name" json:"employee_name"`
	ClockIn             time.Time  `db:"clock_in" json:"clock_in"`
	ClockOut            *time.Time `db:"clock_out" json:"clock_out,omitempty"`
	Latitude            *float64   `db:"latitude" json:"latitude,omitempty"`
	Longitude           *float64   `db:"longitude" json:"longitude,omitempty"`
	Status              string     `db:"status" json:"status"`
	AdjustmentRequestID *string    `db:"adjustment_request_id" json:"adjustment_request_id,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

// HasLocation reports whether a geolocation was captured at clock-in
func (e *ClockEvent) HasLocation() bool {
	return e.Latitude != nil && e.Longitude != nil
}

// In returns a copy of the event with its timestamps converted to loc
func (e ClockEvent) In(loc *time.Location) ClockEvent {
	e.ClockIn = e.ClockIn.In(loc)
	if e.ClockOut != nil {
		out := e.ClockOut.In(loc)
		e.ClockOut = &out
	}
	return e
}

// ClockEventUpdate holds the fields an update may overwrite. Nil fields are
// left untouched.
type ClockEventUpdate struct {
	ClockIn             *time.Time
	ClockOut            *time.Time
	Status              *string
	AdjustmentRequestID *string
}

// Apply returns the event with the update merged in, enforcing that
// clock-out never precedes clock-in.
func (u ClockEventUpdate) Apply(e ClockEvent) (ClockEvent, error) {
	if u.ClockIn != nil {
		e.ClockIn = *u.ClockIn
	}
	if u.ClockOut != nil {
		out := *u.ClockOut
		e.ClockOut = &out
	}
	if u.Status != nil {
		e.Status = *u.Status
	}
	if u.AdjustmentRequestID != nil {
		id := *u.AdjustmentRequestID
		e.AdjustmentRequestID = &id
	}

	switch e.Status {
	case ClockEventActive, ClockEventCompleted, ClockEventAdjusted:
	default:
		return e, errors.Validation(map[string]string{"status": "must be one of: active completed adjusted"})
	}
	if e.ClockOut != nil && e.ClockOut.Before(e.ClockIn) {
		return e, errors.Validation(map[string]string{"clock_out": "must not be before clock_in"})
	}
	return e, nil
}

package messaging

import (
	"crypto/rand"
	"encoding/json"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Routing keys. Staff keys are consumed from ExchangeStaffEvents, attendance
// keys are published to ExchangeAttendanceEvents.
const (
	EventEmployeeCreated = "staff.employee.created"
	EventEmployeeUpdated = "staff.employee.updated"
	EventEmployeeDeleted = "staff.employee.deleted"

	EventAbsenceCreated  = "staff.absence.created"
	EventAbsenceApproved = "staff.absence.approved"
	EventAbsenceRejected = "staff.absence.rejected"
	EventAbsenceDeleted  = "staff.absence.deleted"

	EventTimeClockIn  = "staff.time.clock_in"
	EventTimeClockOut = "staff.time.clock_out"

	EventAdjustmentRequestCreated  = "attendance.adjustment.request_created"
	EventAdjustmentRequestApproved = "attendance.adjustment.approved"
	EventAdjustmentRequestRejected = "attendance.adjustment.rejected"
	EventAbsenceDetected           = "attendance.absence.detected"
)

const (
	ExchangeStaffEvents      = "staff.events"
	ExchangeAttendanceEvents = "attendance.events"
)

// Event is the envelope every message on both exchanges carries
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent wraps data in an envelope with a fresh ULID and a UTC timestamp
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Event{
		ID:            GenerateEventID(now),
		Type:          eventType,
		Source:        source,
		Timestamp:     now,
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData decodes the payload into v
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// Payloads published by staff-service. Field names must follow its wire
// format.

// EmployeeCreatedEvent adds an employee to the roster
type EmployeeCreatedEvent struct {
	EmployeeID string  `json:"employee_id"`
	UserID     *string `json:"user_id,omitempty"`
	Name       string  `json:"name"`
}

// EmployeeUpdatedEvent carries only the changed fields
type EmployeeUpdatedEvent struct {
	EmployeeID string         `json:"employee_id"`
	Fields     map[string]any `json:"fields"`
}

// EmployeeDeletedEvent deactivates a roster entry
type EmployeeDeletedEvent struct {
	EmployeeID string `json:"employee_id"`
}

// AbsenceCreatedEvent records a leave, usually still pending
type AbsenceCreatedEvent struct {
	AbsenceID   string    `json:"absence_id"`
	EmployeeID  string    `json:"employee_id"`
	AbsenceType string    `json:"absence_type"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	Status      string    `json:"status"`
}

type AbsenceApprovedEvent struct {
	AbsenceID  string `json:"absence_id"`
	ReviewerID string `json:"reviewer_id"`
}

type AbsenceRejectedEvent struct {
	AbsenceID  string `json:"absence_id"`
	ReviewerID string `json:"reviewer_id"`
	Reason     string `json:"reason"`
}

type AbsenceDeletedEvent struct {
	AbsenceID string `json:"absence_id"`
}

// TimeClockInEvent opens a clock event
type TimeClockInEvent struct {
	TimeEntryID string    `json:"time_entry_id"`
	EmployeeID  string    `json:"employee_id"`
	ClockIn     time.Time `json:"clock_in"`
	IsManual    bool      `json:"is_manual"`
	Latitude    *float64  `json:"latitude,omitempty"`
	Longitude   *float64  `json:"longitude,omitempty"`
}

// TimeClockOutEvent closes a clock event. ClockIn is repeated so a missed
// clock-in can be reconstructed.
type TimeClockOutEvent struct {
	TimeEntryID       string    `json:"time_entry_id"`
	EmployeeID        string    `json:"employee_id"`
	ClockIn           time.Time `json:"clock_in"`
	ClockOut          time.Time `json:"clock_out"`
	TotalWorkMinutes  int       `json:"total_work_minutes"`
	TotalBreakMinutes int       `json:"total_break_minutes"`
	IsManual          bool      `json:"is_manual"`
}

// Payloads published by this service

// AdjustmentNotificationEvent carries a workflow notification. Audience is
// "hr" for new requests and "employee" for review outcomes.
type AdjustmentNotificationEvent struct {
	NotificationID string     `json:"notification_id"`
	Kind           string     `json:"kind"`
	Audience       string     `json:"audience"`
	EmployeeID     string     `json:"employee_id"`
	EmployeeName   string     `json:"employee_name"`
	RequestID      string     `json:"request_id"`
	TimeEntryID    string     `json:"time_entry_id"`
	Reason         string     `json:"reason,omitempty"`
	ReviewedBy     *string    `json:"reviewed_by,omitempty"`
	ReviewNotes    *string    `json:"review_notes,omitempty"`
	RequestedIn    time.Time  `json:"requested_clock_in"`
	RequestedOut   *time.Time `json:"requested_clock_out,omitempty"`
}

// AbsenceDetectedEvent is published once per employee and day when the
// absence sweep finds an employee past the absent threshold.
type AbsenceDetectedEvent struct {
	EmployeeID   string `json:"employee_id"`
	EmployeeName string `json:"employee_name"`
	Date         string `json:"date"`
	ExpectedTime string `json:"expected_time"`
	Reason       string `json:"reason"`
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// GenerateEventID returns a lexicographically sortable ULID for t
func GenerateEventID(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

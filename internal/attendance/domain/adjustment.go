package domain

import (
	"strings"
	"time"

	"github.com/medflow/medflow-attendance/pkg/errors"
)

// Adjustment request statuses
const (
	AdjustmentPending  = "pending"
	AdjustmentApproved = "approved"
	AdjustmentRejected = "rejected"
)

// Adjustment reasons
const (
	ReasonForgotClockIn  = "forgot_clock_in"
	ReasonForgotClockOut = "forgot_clock_out"
	ReasonSystemError    = "system_error"
	ReasonWrongTime      = "wrong_time"
	ReasonOther          = "other"
)

// AdjustmentReasons lists the accepted reasons
var AdjustmentReasons = []string{
	ReasonForgotClockIn,
	ReasonForgotClockOut,
	ReasonSystemError,
	ReasonWrongTime,
	ReasonOther,
}

// IsValidReason reports whether reason is one of AdjustmentReasons
func IsValidReason(reason string) bool {
	for _, r := range AdjustmentReasons {
		if r == reason {
			return true
		}
	}
	return false
}

// AdjustmentRequest is an employee's proposal to change a clock event's
// recorded times. Review fields are set if and only if the request is no
// longer pending, and a terminal request never changes again.
type AdjustmentRequest struct {
	ID                string     `db:"id" json:"id"`
	TimeEntryID       string     `db:"time_entry_id" json:"time_entry_id"`
	EmployeeID        string     `db:"employee_id" json:"employee_id"`
	EmployeeName      string     `db:"employee_name" json:"employee_name"`
	OriginalClockIn   time.Time  `db:"original_clock_in" json:"original_clock_in"`
	OriginalClockOut  *time.Time `db:"original_clock_out" json:"original_clock_out,omitempty"`
	RequestedClockIn  time.Time  `db:"requested_clock_in" json:"requested_clock_in"`
	RequestedClockOut *time.Time `db:"requested_clock_out" json:"requested_clock_out,omitempty"`
	Reason            string     `db:"reason" json:"reason"`
	ReasonText        string     `db:"reason_text" json:"reason_text"`
	Notes             *string    `db:"notes" json:"notes,omitempty"`
	Status            string     `db:"status" json:"status"`
	ReviewedBy        *string    `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt        *time.Time `db:"reviewed_at" json:"reviewed_at,omitempty"`
	ReviewNotes       *string    `db:"review_notes" json:"review_notes,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// IsTerminal reports whether the request has been reviewed
func (r *AdjustmentRequest) IsTerminal() bool {
	return r.Status == AdjustmentApproved || r.Status == AdjustmentRejected
}

// EffectiveClockOut is the clock-out the event will carry after approval:
// the requested value when given, otherwise the original one.
func (r *AdjustmentRequest) EffectiveClockOut() *time.Time {
	if r.RequestedClockOut != nil {
		return r.RequestedClockOut
	}
	return r.OriginalClockOut
}

// Review moves a pending request to a terminal status and records the
// review metadata. Any other transition is an InvalidStateTransition.
func (r *AdjustmentRequest) Review(to, reviewedBy string, notes *string, at time.Time) error {
	if r.Status != AdjustmentPending || (to != AdjustmentApproved && to != AdjustmentRejected) {
		return errors.InvalidStateTransition("adjustment request", r.Status, to)
	}

	n := ""
	if notes != nil {
		n = *notes
	}
	reviewer := reviewedBy
	reviewedAt := at

	r.Status = to
	r.ReviewedBy = &reviewer
	r.ReviewedAt = &reviewedAt
	r.ReviewNotes = &n
	r.UpdatedAt = at
	return nil
}

// SubmitInput carries an employee's correction
type SubmitInput struct {
	EmployeeID        string
	TimeEntryID       string
	RequestedClockIn  time.Time
	RequestedClockOut *time.Time
	Reason            string
	ReasonText        string
	Notes             *string
}

// NewAdjustmentRequest validates a correction against the event it targets
// and snapshots the event's current times.
func NewAdjustmentRequest(id string, event ClockEvent, in SubmitInput, now time.Time) (*AdjustmentRequest, error) {
	details := make(map[string]string)

	if in.EmployeeID != event.EmployeeID {
		return nil, errors.Forbidden("time entry belongs to another employee")
	}
	if !IsValidReason(in.Reason) {
		details["reason"] = "must be one of: " + strings.Join(AdjustmentReasons, " ")
	}
	reasonText := strings.TrimSpace(in.ReasonText)
	if in.Reason == ReasonOther && reasonText == "" {
		details["reason_text"] = "is required when reason is other"
	}
	if in.RequestedClockIn.IsZero() {
		details["requested_clock_in"] = "this field is required"
	}

	effectiveOut := event.ClockOut
	if in.RequestedClockOut != nil {
		effectiveOut = in.RequestedClockOut
	}
	if effectiveOut != nil && !in.RequestedClockIn.IsZero() && effectiveOut.Before(in.RequestedClockIn) {
		details["requested_clock_out"] = "must not be before requested_clock_in"
	}

	changed := !in.RequestedClockIn.Equal(event.ClockIn) ||
		(in.RequestedClockOut != nil && (event.ClockOut == nil || !in.RequestedClockOut.Equal(*event.ClockOut)))
	if !changed && len(details) == 0 {
		details["requested_clock_in"] = "requested times must differ from the recorded times"
	}

	if len(details) > 0 {
		return nil, errors.Validation(details)
	}

	req := &AdjustmentRequest{
		ID:                id,
		TimeEntryID:       event.ID,
		EmployeeID:        event.EmployeeID,
		EmployeeName:      event.EmployeeName,
		OriginalClockIn:   event.ClockIn,
		OriginalClockOut:  copyTime(event.ClockOut),
		RequestedClockIn:  in.RequestedClockIn,
		RequestedClockOut: copyTime(in.RequestedClockOut),
		Reason:            in.Reason,
		ReasonText:        reasonText,
		Notes:             in.Notes,
		Status:            AdjustmentPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	return req, nil
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// AdjustmentFilter narrows a request listing
type AdjustmentFilter struct {
	Status     string
	EmployeeID string
	Limit      int
	Offset     int
}

package domain

import "time"

// Notification kinds emitted by the adjustment workflow
const (
	NotifyRequestCreated = "request_created"
	NotifyApproved       = "approved"
	NotifyRejected       = "rejected"
)

// Notification audiences
const (
	AudienceHR       = "hr"
	AudienceEmployee = "employee"
)

// NotificationPayload describes the request a notification is about
type NotificationPayload struct {
	RequestID    string     `json:"request_id"`
	TimeEntryID  string     `json:"time_entry_id"`
	EmployeeName string     `json:"employee_name"`
	Reason       string     `json:"reason,omitempty"`
	RequestedIn  time.Time  `json:"requested_clock_in"`
	RequestedOut *time.Time `json:"requested_clock_out,omitempty"`
	ReviewedBy   *string    `json:"reviewed_by,omitempty"`
	ReviewNotes  *string    `json:"review_notes,omitempty"`
}

// PayloadFor builds the notification payload of a request
func PayloadFor(r *AdjustmentRequest) NotificationPayload {
	return NotificationPayload{
		RequestID:    r.ID,
		TimeEntryID:  r.TimeEntryID,
		EmployeeName: r.EmployeeName,
		Reason:       r.Reason,
		RequestedIn:  r.RequestedClockIn,
		RequestedOut: r.RequestedClockOut,
		ReviewedBy:   r.ReviewedBy,
		ReviewNotes:  r.ReviewNotes,
	}
}

// AudienceOf returns who a notification kind is addressed to
func AudienceOf(kind string) string {
	if kind == NotifyRequestCreated {
		return AudienceHR
	}
	return AudienceEmployee
}

package domain

import "time"

// Employee is a roster entry evaluated for attendance
type Employee struct {
	ID   string `db:"employee_id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Leave absence statuses
const (
	LeavePending  = "pending"
	LeaveApproved = "approved"
	LeaveRejected = "rejected"
)

// Leave is an approved or requested absence mirrored from the staff service.
// StartDate and EndDate are inclusive calendar dates.
type Leave struct {
	AbsenceID   string    `db:"absence_id" json:"absence_id"`
	EmployeeID  string    `db:"employee_id" json:"employee_id"`
	AbsenceType string    `db:"absence_type" json:"absence_type"`
	StartDate   time.Time `db:"start_date" json:"start_date"`
	EndDate     time.Time `db:"end_date" json:"end_date"`
	Status      string    `db:"status" json:"status"`
}

// Covers reports whether the leave is approved and spans the calendar day
// given as YYYY-MM-DD.
func (l *Leave) Covers(day string) bool {
	if l.Status != LeaveApproved {
		return false
	}
	return FormatDate(l.StartDate) <= day && day <= FormatDate(l.EndDate)
}

package domain

import "github.com/shopspring/decimal"

// Attendance statuses
const (
	StatusPresent = "present"
	StatusLate    = "late"
	StatusAbsent  = "absent"
	StatusOnLeave = "on_leave"
)

// Punctuality of a single clock-in
const (
	PunctualityOnTime   = "on_time"
	PunctualityLate     = "late"
	PunctualityVeryLate = "very_late"
)

// ReasonNoClockIn is reported for employees marked absent
const ReasonNoClockIn = "No clock-in recorded"

// Classification is the outcome of classifying one clock-in time
type Classification struct {
	Punctuality string `json:"punctuality"`
	MinutesLate int    `json:"minutes_late"`
	// Status is the per-employee status the punctuality maps to
	Status string `json:"status"`
}

// AttendanceStatus is the derived status of one employee on one date.
// It is computed per query and never stored.
type AttendanceStatus struct {
	EmployeeID   string  `json:"employee_id"`
	EmployeeName string  `json:"employee_name"`
	Status       string  `json:"status"`
	ClockInTime  *string `json:"clock_in_time,omitempty"`
	ExpectedTime string  `json:"expected_time"`
	MinutesLate  *int    `json:"minutes_late,omitempty"`
	Reason       *string `json:"reason,omitempty"`
	Date         string  `json:"date"`
}

// Stats aggregates a day's statuses
type Stats struct {
	Total          int     `json:"total"`
	Present        int     `json:"present"`
	Late           int     `json:"late"`
	Absent         int     `json:"absent"`
	OnLeave        int     `json:"on_leave"`
	AttendanceRate float64 `json:"attendance_rate"`
}

// DayReport is one day of a weekly report
type DayReport struct {
	Date  string `json:"date"`
	Stats Stats  `json:"stats"`
}

var hundred = decimal.NewFromInt(100)

// ComputeStats counts statuses and derives the attendance rate as
// (present + late) / total * 100, rounded to two decimals. The rate is 0
// for an empty day.
func ComputeStats(statuses []AttendanceStatus) Stats {
	stats := Stats{Total: len(statuses)}
	for _, s := range statuses {
		switch s.Status {
		case StatusPresent:
			stats.Present++
		case StatusLate:
			stats.Late++
		case StatusAbsent:
			stats.Absent++
		case StatusOnLeave:
			stats.OnLeave++
		}
	}

	if stats.Total == 0 {
		return stats
	}

	attended := decimal.NewFromInt(int64(stats.Present + stats.Late))
	rate := attended.Mul(hundred).Div(decimal.NewFromInt(int64(stats.Total))).Round(2)
	stats.AttendanceRate = rate.InexactFloat64()
	return stats
}

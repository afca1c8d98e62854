package domain

import (
	"fmt"
	"strconv"
	"time"

	"github.com/medflow/medflow-attendance/pkg/errors"
)

// DateLayout is the wire format of calendar dates
const DateLayout = "2006-01-02"

// ParseClock converts an "HH:MM" wall clock time to minutes since midnight.
// Anything else, including "9:00" or "24:00", is a validation error.
func ParseClock(field, value string) (int, error) {
	invalid := errors.Validation(map[string]string{field: "must be a time in HH:MM format"})

	if len(value) != 5 || value[2] != ':' {
		return 0, invalid
	}
	for _, i := range []int{0, 1, 3, 4} {
		if value[i] < '0' || value[i] > '9' {
			return 0, invalid
		}
	}
	hours, _ := strconv.Atoi(value[:2])
	minutes, _ := strconv.Atoi(value[3:])
	if hours > 23 || minutes > 59 {
		return 0, invalid
	}
	return hours*60 + minutes, nil
}

// FormatClock renders minutes since midnight as "HH:MM"
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// MinutesOfDay returns the minutes since local midnight of t
func MinutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// ClockOf formats t as "HH:MM" in its own location
func ClockOf(t time.Time) string {
	return t.Format("15:04")
}

// ParseDate parses a YYYY-MM-DD date as midnight in loc
func ParseDate(field, value string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, value, loc)
	if err != nil {
		return time.Time{}, errors.Validation(map[string]string{field: "must be a date in YYYY-MM-DD format"})
	}
	return d, nil
}

// FormatDate formats the calendar day of t
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// StartOfDay truncates t to midnight in its own location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/medflow/medflow-attendance/pkg/errors"
)

// Settings parameterises the status engine
type Settings struct {
	ExpectedClockInTime    string    `json:"expected_clock_in_time"`
	LateThresholdMinutes   int       `json:"late_threshold_minutes"`
	AbsentThresholdMinutes int       `json:"absent_threshold_minutes"`
	WorkDays               []int     `json:"work_days"`
	TrackWeekends          bool      `json:"track_weekends"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// Validate rejects malformed clock times, inconsistent thresholds and
// unknown weekdays. All problems are reported together.
func (s Settings) Validate() error {
	details := make(map[string]string)

	if _, err := ParseClock("expected_clock_in_time", s.ExpectedClockInTime); err != nil {
		details["expected_clock_in_time"] = "must be a time in HH:MM format"
	}
	if s.LateThresholdMinutes < 0 {
		details["late_threshold_minutes"] = "must not be negative"
	}
	if s.AbsentThresholdMinutes <= s.LateThresholdMinutes {
		details["absent_threshold_minutes"] = "must be greater than late_threshold_minutes"
	}
	for _, d := range s.WorkDays {
		if d < 0 || d > 6 {
			details["work_days"] = fmt.Sprintf("invalid weekday %d: expected 0 (Sunday) to 6 (Saturday)", d)
			break
		}
	}

	if len(details) > 0 {
		return errors.Validation(details)
	}
	return nil
}

// ExpectedMinutes returns the expected clock-in as minutes since midnight.
// Settings must have been validated.
func (s Settings) ExpectedMinutes() int {
	m, _ := ParseClock("expected_clock_in_time", s.ExpectedClockInTime)
	return m
}

// Evaluates reports whether attendance is evaluated on the given weekday.
// Non-work days are only evaluated when weekends are tracked.
func (s Settings) Evaluates(day time.Weekday) bool {
	for _, d := range s.WorkDays {
		if time.Weekday(d) == day {
			return true
		}
	}
	return s.TrackWeekends
}

// Clone returns a deep copy
func (s Settings) Clone() Settings {
	s.WorkDays = append([]int(nil), s.WorkDays...)
	return s
}

// SettingsPatch is a partial update. Nil fields keep their current value.
type SettingsPatch struct {
	ExpectedClockInTime    *string `json:"expected_clock_in_time,omitempty" validate:"omitempty,clock"`
	LateThresholdMinutes   *int    `json:"late_threshold_minutes,omitempty" validate:"omitempty,gte=0"`
	AbsentThresholdMinutes *int    `json:"absent_threshold_minutes,omitempty" validate:"omitempty,gte=0"`
	WorkDays               *[]int  `json:"work_days,omitempty" validate:"omitempty,dive,gte=0,lte=6"`
	TrackWeekends          *bool   `json:"track_weekends,omitempty"`
}

// IsEmpty reports whether the patch changes nothing
func (p SettingsPatch) IsEmpty() bool {
	return p.ExpectedClockInTime == nil && p.LateThresholdMinutes == nil &&
		p.AbsentThresholdMinutes == nil && p.WorkDays == nil && p.TrackWeekends == nil
}

// Apply merges the patch into s and validates the result. s is not modified.
func (p SettingsPatch) Apply(s Settings) (Settings, error) {
	next := s.Clone()

	if p.ExpectedClockInTime != nil {
		next.ExpectedClockInTime = *p.ExpectedClockInTime
	}
	if p.LateThresholdMinutes != nil {
		next.LateThresholdMinutes = *p.LateThresholdMinutes
	}
	if p.AbsentThresholdMinutes != nil {
		next.AbsentThresholdMinutes = *p.AbsentThresholdMinutes
	}
	if p.WorkDays != nil {
		days := dedupeDays(*p.WorkDays)
		next.WorkDays = days
	}
	if p.TrackWeekends != nil {
		next.TrackWeekends = *p.TrackWeekends
	}

	if err := next.Validate(); err != nil {
		return s, err
	}
	return next, nil
}

func dedupeDays(days []int) []int {
	seen := make(map[int]bool, len(days))
	out := make([]int, 0, len(days))
	for _, d := range days {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Ints(out)
	return out
}

package service

import (
	"time"

	"github.com/medflow/medflow-attendance/internal/attendance/domain"
)

// StatusEngine classifies employees for a calendar day. It is built from a
// validated settings snapshot and holds no mutable state, so one engine can
// be shared by concurrent callers.
//
// For the current day the result depends on the wall clock: an employee
// without a clock-in becomes absent once the absent threshold has passed,
// so two calls on the same day may differ without any new data.
type StatusEngine struct {
	settings domain.Settings
	expected int
	loc      *time.Location
	clock    Clock
}

// NewStatusEngine validates settings and returns an engine evaluating
// dates in loc.
func NewStatusEngine(settings domain.Settings, loc *time.Location, clock Clock) (*StatusEngine, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}
	if clock == nil {
		clock = SystemClock
	}
	return &StatusEngine{
		settings: settings.Clone(),
		expected: settings.ExpectedMinutes(),
		loc:      loc,
		clock:    clock,
	}, nil
}

// Settings returns the snapshot the engine was built from
func (e *StatusEngine) Settings() domain.Settings {
	return e.settings.Clone()
}

// ClassifyClockIn classifies an "HH:MM" clock-in time
func (e *StatusEngine) ClassifyClockIn(clockIn string) (domain.Classification, error) {
	minutes, err := domain.ParseClock("clock_in", clockIn)
	if err != nil {
		return domain.Classification{}, err
	}
	return e.classify(minutes), nil
}

// ClassifyTime classifies a clock-in timestamp by its wall clock time in
// the organisational timezone.
func (e *StatusEngine) ClassifyTime(t time.Time) domain.Classification {
	return e.classify(domain.MinutesOfDay(t.In(e.loc)))
}

func (e *StatusEngine) classify(minutes int) domain.Classification {
	late := minutes - e.expected
	switch {
	case late <= 0:
		return domain.Classification{Punctuality: domain.PunctualityOnTime, MinutesLate: 0, Status: domain.StatusPresent}
	case late <= e.settings.LateThresholdMinutes:
		return domain.Classification{Punctuality: domain.PunctualityLate, MinutesLate: late, Status: domain.StatusLate}
	default:
		return domain.Classification{Punctuality: domain.PunctualityVeryLate, MinutesLate: late, Status: domain.StatusLate}
	}
}

// DailyStatuses classifies every roster employee for date. Employees that
// cannot be judged yet (future dates, or today before the absent threshold)
// are left out. Non-work days yield an empty result unless weekends are
// tracked. Events and leaves for other days are ignored.
func (e *StatusEngine) DailyStatuses(date time.Time, roster []domain.Employee, events []domain.ClockEvent, leaves []domain.Leave) []domain.AttendanceStatus {
	day := domain.StartOfDay(date.In(e.loc))
	statuses := make([]domain.AttendanceStatus, 0, len(roster))
	if !e.settings.Evaluates(day.Weekday()) {
		return statuses
	}

	dayKey := domain.FormatDate(day)
	now := e.clock.Now().In(e.loc)
	todayKey := domain.FormatDate(now)

	firstClockIn := make(map[string]time.Time, len(events))
	for _, ev := range events {
		in := ev.ClockIn.In(e.loc)
		if domain.FormatDate(in) != dayKey {
			continue
		}
		if prev, ok := firstClockIn[ev.EmployeeID]; !ok || in.Before(prev) {
			firstClockIn[ev.EmployeeID] = in
		}
	}

	leaveType := make(map[string]string)
	for i := range leaves {
		if leaves[i].Covers(dayKey) {
			leaveType[leaves[i].EmployeeID] = leaves[i].AbsenceType
		}
	}

	expectedTime := e.settings.ExpectedClockInTime
	for _, emp := range roster {
		status := domain.AttendanceStatus{
			EmployeeID:   emp.ID,
			EmployeeName: emp.Name,
			ExpectedTime: expectedTime,
			Date:         dayKey,
		}

		if in, ok := firstClockIn[emp.ID]; ok {
			c := e.classify(domain.MinutesOfDay(in))
			clockIn := domain.ClockOf(in)
			minutesLate := c.MinutesLate
			status.Status = c.Status
			status.ClockInTime = &clockIn
			status.MinutesLate = &minutesLate
			statuses = append(statuses, status)
			continue
		}

		leave, onLeave := leaveType[emp.ID]
		switch {
		case dayKey > todayKey:
			continue
		case onLeave:
			reason := leave
			status.Status = domain.StatusOnLeave
			status.Reason = &reason
		case dayKey == todayKey:
			if domain.MinutesOfDay(now)-e.expected <= e.settings.AbsentThresholdMinutes {
				continue
			}
			status.Status = domain.StatusAbsent
			status.Reason = strPtr(domain.ReasonNoClockIn)
		default:
			status.Status = domain.StatusAbsent
			status.Reason = strPtr(domain.ReasonNoClockIn)
		}
		statuses = append(statuses, status)
	}

	return statuses
}

// WeeklyReport returns the stats of the seven consecutive days starting at
// start.
func (e *StatusEngine) WeeklyReport(start time.Time, roster []domain.Employee, events []domain.ClockEvent, leaves []domain.Leave) []domain.DayReport {
	first := domain.StartOfDay(start.In(e.loc))
	report := make([]domain.DayReport, 0, 7)
	for i := 0; i < 7; i++ {
		day := first.AddDate(0, 0, i)
		statuses := e.DailyStatuses(day, roster, events, leaves)
		report = append(report, domain.DayReport{
			Date:  domain.FormatDate(day),
			Stats: domain.ComputeStats(statuses),
		})
	}
	return report
}

func strPtr(s string) *string {
	return &s
}

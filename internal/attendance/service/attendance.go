package service

import (
	"context"
	"time"

	"github.com/medflow/medflow-attendance/internal/attendance/domain"
	"github.com/medflow/medflow-attendance/pkg/errors"
	"github.com/medflow/medflow-attendance/pkg/logger"
)

// DailyReport is the attendance of one day
type DailyReport struct {
	Date     string                    `json:"date"`
	Statuses []domain.AttendanceStatus `json:"statuses"`
	Stats    domain.Stats              `json:"stats"`
}

// AttendanceService loads the collaborators the status engine needs and
// runs it on demand. Every call is read-only.
type AttendanceService struct {
	settings *SettingsService
	events   ClockEventStore
	roster   RosterProvider
	leaves   LeaveProvider
	loc      *time.Location
	clock    Clock
	logger   *logger.Logger
}

// NewAttendanceService creates a new attendance service. leaves may be nil
// when no leave data is available.
func NewAttendanceService(
	settings *SettingsService,
	events ClockEventStore,
	roster RosterProvider,
	leaves LeaveProvider,
	loc *time.Location,
	clock Clock,
	log *logger.Logger,
) *AttendanceService {
	if loc == nil {
		loc = time.UTC
	}
	if clock == nil {
		clock = SystemClock
	}
	return &AttendanceService{
		settings: settings,
		events:   events,
		roster:   roster,
		leaves:   leaves,
		loc:      loc,
		clock:    clock,
		logger:   log,
	}
}

// Location returns the organisational timezone
func (s *AttendanceService) Location() *time.Location {
	return s.loc
}

// Today returns the current calendar day in the organisational timezone
func (s *AttendanceService) Today() time.Time {
	return domain.StartOfDay(s.clock.Now().In(s.loc))
}

// Engine builds a status engine from the current settings
func (s *AttendanceService) Engine(ctx context.Context) (*StatusEngine, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	return NewStatusEngine(settings, s.loc, s.clock)
}

// Classify classifies a single "HH:MM" clock-in time
func (s *AttendanceService) Classify(ctx context.Context, clockIn string) (domain.Classification, error) {
	engine, err := s.Engine(ctx)
	if err != nil {
		return domain.Classification{}, err
	}
	return engine.ClassifyClockIn(clockIn)
}

// DailyStatuses computes every employee's status for date
func (s *AttendanceService) DailyStatuses(ctx context.Context, date time.Time) (*DailyReport, error) {
	engine, err := s.Engine(ctx)
	if err != nil {
		return nil, err
	}

	day := domain.StartOfDay(date.In(s.loc))
	roster, err := s.loadRoster(ctx)
	if err != nil {
		return nil, err
	}
	events, err := s.loadEvents(ctx, day, 1)
	if err != nil {
		return nil, err
	}
	leaves, err := s.loadLeaves(ctx, day, day)
	if err != nil {
		return nil, err
	}

	statuses := engine.DailyStatuses(day, roster, events, leaves)
	return &DailyReport{
		Date:     domain.FormatDate(day),
		Statuses: statuses,
		Stats:    domain.ComputeStats(statuses),
	}, nil
}

// WeeklyReport computes the stats of the seven days starting at start
func (s *AttendanceService) WeeklyReport(ctx context.Context, start time.Time) ([]domain.DayReport, error) {
	engine, err := s.Engine(ctx)
	if err != nil {
		return nil, err
	}

	first := domain.StartOfDay(start.In(s.loc))
	roster, err := s.loadRoster(ctx)
	if err != nil {
		return nil, err
	}
	events, err := s.loadEvents(ctx, first, 7)
	if err != nil {
		return nil, err
	}
	leaves, err := s.loadLeaves(ctx, first, first.AddDate(0, 0, 6))
	if err != nil {
		return nil, err
	}

	return engine.WeeklyReport(first, roster, events, leaves), nil
}

func (s *AttendanceService) loadRoster(ctx context.Context) ([]domain.Employee, error) {
	roster, err := s.roster.GetEmployees(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load roster")
		return nil, errors.EnsureDependency("roster provider", err)
	}
	return roster, nil
}

func (s *AttendanceService) loadEvents(ctx context.Context, first time.Time, days int) ([]domain.ClockEvent, error) {
	var events []domain.ClockEvent
	for i := 0; i < days; i++ {
		day := first.AddDate(0, 0, i)
		dayEvents, err := s.events.GetEventsForDate(ctx, day)
		if err != nil {
			s.logger.Error().Err(err).Str("date", domain.FormatDate(day)).Msg("failed to load clock events")
			return nil, errors.EnsureDependency("clock event store", err)
		}
		events = append(events, dayEvents...)
	}
	return events, nil
}

func (s *AttendanceService) loadLeaves(ctx context.Context, from, to time.Time) ([]domain.Leave, error) {
	if s.leaves == nil {
		return nil, nil
	}
	leaves, err := s.leaves.GetLeaves(ctx, from, to)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load leaves")
		return nil, errors.EnsureDependency("leave provider", err)
	}
	return leaves, nil
}

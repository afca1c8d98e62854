package service

import (
	"context"
	"sync"
	"time"

	"github.com/medflow/medflow-attendance/internal/attendance/domain"
	"github.com/medflow/medflow-attendance/pkg/logger"
	"github.com/medflow/medflow-attendance/pkg/messaging"
)

// AbsenceSweeper periodically evaluates today's attendance and publishes
// one absence.detected event per employee and day. It only reads through
// the on-demand engine.
type AbsenceSweeper struct {
	attendance *AttendanceService
	publisher  EventPublisher
	interval   time.Duration
	logger     *logger.Logger
	cancel     context.CancelFunc

	mu        sync.Mutex
	day       string
	published map[string]bool
}

// NewAbsenceSweeper creates a new absence sweeper
func NewAbsenceSweeper(attendance *AttendanceService, publisher EventPublisher, interval time.Duration, log *logger.Logger) *AbsenceSweeper {
	return &AbsenceSweeper{
		attendance: attendance,
		publisher:  publisher,
		interval:   interval,
		logger:     log,
		published:  make(map[string]bool),
	}
}

// Start starts the sweeper in a background goroutine
func (s *AbsenceSweeper) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	go func() {
		s.logger.Info().Dur("interval", s.interval).Msg("absence sweeper started")

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info().Msg("absence sweeper stopped")
				return
			case <-ticker.C:
				if _, err := s.Sweep(ctx); err != nil {
					s.logger.Error().Err(err).Msg("absence sweep failed")
				}
			}
		}
	}()
}

// Stop stops the sweeper goroutine
func (s *AbsenceSweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Sweep runs one evaluation and returns the number of events published
func (s *AbsenceSweeper) Sweep(ctx context.Context) (int, error) {
	report, err := s.attendance.DailyStatuses(ctx, s.attendance.Today())
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.day != report.Date {
		s.day = report.Date
		s.published = make(map[string]bool)
	}

	count := 0
	for _, st := range report.Statuses {
		if st.Status != domain.StatusAbsent || s.published[st.EmployeeID] {
			continue
		}

		reason := domain.ReasonNoClockIn
		if st.Reason != nil {
			reason = *st.Reason
		}
		event := messaging.AbsenceDetectedEvent{
			EmployeeID:   st.EmployeeID,
			EmployeeName: st.EmployeeName,
			Date:         st.Date,
			ExpectedTime: st.ExpectedTime,
			Reason:       reason,
		}
		if err := s.publisher.Publish(ctx, messaging.EventAbsenceDetected, event); err != nil {
			s.logger.Error().Err(err).Str("employee_id", st.EmployeeID).Msg("failed to publish absence event")
			continue
		}
		s.published[st.EmployeeID] = true
		count++
	}

	if count > 0 {
		s.logger.Info().Str("date", report.Date).Int("count", count).Msg("absences detected")
	}
	return count, nil
}

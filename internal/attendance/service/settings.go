package service

import (
	"context"
	"sync"

	"github.com/medflow/medflow-attendance/internal/attendance/domain"
	"github.com/medflow/medflow-attendance/pkg/errors"
	"github.com/medflow/medflow-attendance/pkg/logger"
)

// SettingsService holds the organisation's attendance settings. Settings
// are loaded once and cached; updates merge a patch into the current value.
// A nil store keeps settings in memory only.
type SettingsService struct {
	store    SettingsStore
	defaults domain.Settings
	clock    Clock
	logger   *logger.Logger

	mu      sync.RWMutex
	current *domain.Settings
}

// NewSettingsService creates a settings service seeded with defaults
func NewSettingsService(store SettingsStore, defaults domain.Settings, clock Clock, log *logger.Logger) (*SettingsService, error) {
	if err := defaults.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = SystemClock
	}
	return &SettingsService{
		store:    store,
		defaults: defaults.Clone(),
		clock:    clock,
		logger:   log,
	}, nil
}

// Get returns the current settings
func (s *SettingsService) Get(ctx context.Context) (domain.Settings, error) {
	s.mu.RLock()
	if s.current != nil {
		current := s.current.Clone()
		s.mu.RUnlock()
		return current, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	current, err := s.load(ctx)
	if err != nil {
		return domain.Settings{}, err
	}
	return current.Clone(), nil
}

// Update merges patch into the current settings, validates the result and
// persists it. Invalid patches leave the settings unchanged.
func (s *SettingsService) Update(ctx context.Context, patch domain.SettingsPatch) (domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load(ctx)
	if err != nil {
		return domain.Settings{}, err
	}
	if patch.IsEmpty() {
		return current.Clone(), nil
	}

	next, err := patch.Apply(current)
	if err != nil {
		return domain.Settings{}, err
	}
	next.UpdatedAt = s.clock.Now().UTC()

	if s.store != nil {
		if err := s.store.Save(ctx, next); err != nil {
			return domain.Settings{}, errors.EnsureDependency("settings store", err)
		}
	}
	s.current = &next

	s.logger.Info().
		Str("expected_clock_in_time", next.ExpectedClockInTime).
		Int("late_threshold_minutes", next.LateThresholdMinutes).
		Int("absent_threshold_minutes", next.AbsentThresholdMinutes).
		Ints("work_days", next.WorkDays).
		Bool("track_weekends", next.TrackWeekends).
		Msg("attendance settings updated")

	return next.Clone(), nil
}

// load must be called with s.mu held for writing
func (s *SettingsService) load(ctx context.Context) (domain.Settings, error) {
	if s.current != nil {
		return *s.current, nil
	}

	if s.store == nil {
		seeded := s.defaults.Clone()
		seeded.UpdatedAt = s.clock.Now().UTC()
		s.current = &seeded
		return seeded, nil
	}

	stored, err := s.store.Get(ctx)
	if err != nil {
		return domain.Settings{}, errors.EnsureDependency("settings store", err)
	}

	if stored == nil {
		seeded := s.defaults.Clone()
		seeded.UpdatedAt = s.clock.Now().UTC()
		if err := s.store.Save(ctx, seeded); err != nil {
			return domain.Settings{}, errors.EnsureDependency("settings store", err)
		}
		s.logger.Info().Msg("seeded attendance settings from configuration defaults")
		stored = &seeded
	} else if err := stored.Validate(); err != nil {
		return domain.Settings{}, err
	}

	s.current = stored
	return *stored, nil
}

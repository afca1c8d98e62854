package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/medflow/medflow-attendance/internal/attendance/domain"
	"github.com/medflow/medflow-attendance/pkg/database"
	"github.com/medflow/medflow-attendance/pkg/errors"
)

type settingsRow struct {
	ExpectedClockInTime    string        `db:"expected_clock_in_time"`
	LateThresholdMinutes   int           `db:"late_threshold_minutes"`
	AbsentThresholdMinutes int           `db:"absent_threshold_minutes"`
	WorkDays               pq.Int64Array `db:"work_days"`
	TrackWeekends          bool          `db:"track_weekends"`
	UpdatedAt              time.Time     `db:"updated_at"`
}

func (r settingsRow) toDomain() domain.Settings {
	days := make([]int, len(r.WorkDays))
	for i, d := range r.WorkDays {
		days[i] = int(d)
	}
	return domain.Settings{
		ExpectedClockInTime:    r.ExpectedClockInTime,
		LateThresholdMinutes:   r.LateThresholdMinutes,
		AbsentThresholdMinutes: r.AbsentThresholdMinutes,
		WorkDays:               days,
		TrackWeekends:          r.TrackWeekends,
		UpdatedAt:              r.UpdatedAt,
	}
}

// SettingsRepository persists the single attendance settings row
type SettingsRepository struct {
	db *database.DB
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *database.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the stored settings, or nil when none were stored yet
func (r *SettingsRepository) Get(ctx context.Context) (*domain.Settings, error) {
	query := `
		SELECT expected_clock_in_time, late_threshold_minutes, absent_threshold_minutes,
		       work_days, track_weekends, updated_at
		FROM attendance_settings
		WHERE id = 1
	`

	var row settingsRow
	err := r.db.Executor(ctx).GetContext(ctx, &row, query)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Dependency("settings store", err)
	}

	settings := row.toDomain()
	return &settings, nil
}

// Save upserts the settings row
func (r *SettingsRepository) Save(ctx context.Context, settings domain.Settings) error {
	days := make(pq.Int64Array, len(settings.WorkDays))
	for i, d := range settings.WorkDays {
		days[i] = int64(d)
	}

	query := `
		INSERT INTO attendance_settings (
			id, expected_clock_in_time, late_threshold_minutes, absent_threshold_minutes,
			work_days, track_weekends, updated_at
		) VALUES (1, $1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			expected_clock_in_time = EXCLUDED.expected_clock_in_time,
			late_threshold_minutes = EXCLUDED.late_threshold_minutes,
			absent_threshold_minutes = EXCLUDED.absent_threshold_minutes,
			work_days = EXCLUDED.work_days,
			track_weekends = EXCLUDED.track_weekends,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.Executor(ctx).ExecContext(ctx, query,
		settings.ExpectedClockInTime, settings.LateThresholdMinutes, settings.AbsentThresholdMinutes,
		days, settings.TrackWeekends, settings.UpdatedAt.UTC(),
	)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return errors.Dependency("settings store", err)
	}
	return nil
}

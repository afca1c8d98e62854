package repository

import (
	"context"
	"time"

	"github.com/medflow/medflow-attendance/internal/attendance/domain"
	"github.com/medflow/medflow-attendance/pkg/database"
	"github.com/medflow/medflow-attendance/pkg/errors"
)

// LeaveRepository mirrors staff absences relevant to attendance
type LeaveRepository struct {
	db *database.DB
}

// NewLeaveRepository creates a new leave repository
func NewLeaveRepository(db *database.DB) *LeaveRepository {
	return &LeaveRepository{db: db}
}

// GetLeaves returns approved leaves overlapping the calendar days [from, to]
func (r *LeaveRepository) GetLeaves(ctx context.Context, from, to time.Time) ([]domain.Leave, error) {
	query := `
		SELECT absence_id, employee_id, absence_type, start_date, end_date, status
		FROM employee_leaves
		WHERE status = 'approved' AND start_date <= $2::date AND end_date >= $1::date
		ORDER BY start_date ASC
	`

	var leaves []domain.Leave
	err := r.db.Executor(ctx).SelectContext(ctx, &leaves, query,
		domain.FormatDate(from), domain.FormatDate(to),
	)
	if err != nil {
		return nil, errors.Dependency("leave provider", err)
	}

	// DATE columns come back as UTC midnight; keep the calendar day only
	for i := range leaves {
		leaves[i].StartDate = calendarDay(leaves[i].StartDate)
		leaves[i].EndDate = calendarDay(leaves[i].EndDate)
	}
	return leaves, nil
}

// Upsert stores or replaces a leave record
func (r *LeaveRepository) Upsert(ctx context.Context, leave domain.Leave) error {
	query := `
		INSERT INTO employee_leaves (absence_id, employee_id, absence_type, start_date, end_date, status, updated_at)
		VALUES ($1, $2, $3, $4::date, $5::date, $6, NOW())
		ON CONFLICT (absence_id) DO UPDATE SET
			employee_id = EXCLUDED.employee_id,
			absence_type = EXCLUDED.absence_type,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			status = EXCLUDED.status,
			updated_at = NOW()
	`
	_, err := r.db.Executor(ctx).ExecContext(ctx, query,
		leave.AbsenceID, leave.EmployeeID, leave.AbsenceType,
		domain.FormatDate(leave.StartDate), domain.FormatDate(leave.EndDate), leave.Status,
	)
	if err != nil {
		return errors.Dependency("leave provider", err)
	}
	return nil
}

// SetStatus updates the status of a known leave. Unknown leaves are ignored.
func (r *LeaveRepository) SetStatus(ctx context.Context, absenceID, status string) error {
	query := `UPDATE employee_leaves SET status = $2, updated_at = NOW() WHERE absence_id = $1`
	if _, err := r.db.Executor(ctx).ExecContext(ctx, query, absenceID, status); err != nil {
		return errors.Dependency("leave provider", err)
	}
	return nil
}

// Delete removes a leave record
func (r *LeaveRepository) Delete(ctx context.Context, absenceID string) error {
	query := `DELETE FROM employee_leaves WHERE absence_id = $1`
	if _, err := r.db.Executor(ctx).ExecContext(ctx, query, absenceID); err != nil {
		return errors.Dependency("leave provider", err)
	}
	return nil
}

func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

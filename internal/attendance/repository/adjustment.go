package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/medflow/medflow-attendance/internal/attendance/domain"
	"github.com/medflow/medflow-attendance/pkg/database"
	"github.com/medflow/medflow-attendance/pkg/errors"
)

const adjustmentColumns = `
	id, time_entry_id, employee_id, employee_name,
	original_clock_in, original_clock_out, requested_clock_in, requested_clock_out,
	reason, reason_text, notes, status, reviewed_by, reviewed_at, review_notes,
	created_at, updated_at`

// AdjustmentRepository handles adjustment request persistence
type AdjustmentRepository struct {
	db  *database.DB
	loc *time.Location
}

// NewAdjustmentRepository creates a new adjustment request repository
func NewAdjustmentRepository(db *database.DB, loc *time.Location) *AdjustmentRepository {
	if loc == nil {
		loc = time.UTC
	}
	return &AdjustmentRepository{db: db, loc: loc}
}

// Create inserts a pending request. A second pending request for the same
// time entry is a conflict.
func (r *AdjustmentRepository) Create(ctx context.Context, req *domain.AdjustmentRequest) error {
	query := `
		INSERT INTO adjustment_requests (
			id, time_entry_id, employee_id, employee_name,
			original_clock_in, original_clock_out, requested_clock_in, requested_clock_out,
			reason, reason_text, notes, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
	`
	_, err := r.db.Executor(ctx).ExecContext(ctx, query,
		req.ID, req.TimeEntryID, req.EmployeeID, req.EmployeeName,
		req.OriginalClockIn.UTC(), utcPtr(req.OriginalClockOut),
		req.RequestedClockIn.UTC(), utcPtr(req.RequestedClockOut),
		req.Reason, req.ReasonText, req.Notes, req.Status, req.CreatedAt.UTC(),
	)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return errors.Dependency("adjustment request store", err)
	}
	return nil
}

// GetByID gets a request by ID
func (r *AdjustmentRepository) GetByID(ctx context.Context, id string) (*domain.AdjustmentRequest, error) {
	query := `SELECT` + adjustmentColumns + ` FROM adjustment_requests WHERE id = $1`

	var req domain.AdjustmentRequest
	err := r.db.Executor(ctx).GetContext(ctx, &req, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("adjustment request")
	}
	if err != nil {
		return nil, errors.Dependency("adjustment request store", err)
	}

	r.localize(&req)
	return &req, nil
}

// UpdateStatus stores the review of req, but only while the stored request
// is still pending. Losing the race yields InvalidStateTransition.
func (r *AdjustmentRepository) UpdateStatus(ctx context.Context, req *domain.AdjustmentRequest) error {
	query := `
		UPDATE adjustment_requests SET
			status = $2, reviewed_by = $3, reviewed_at = $4, review_notes = $5, updated_at = $6
		WHERE id = $1 AND status = 'pending'
	`
	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		req.ID, req.Status, req.ReviewedBy, utcPtr(req.ReviewedAt), req.ReviewNotes, req.UpdatedAt.UTC(),
	)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return errors.Dependency("adjustment request store", err)
	}

	affected, _ := result.RowsAffected()
	if affected > 0 {
		return nil
	}

	var current string
	err = r.db.Executor(ctx).GetContext(ctx, &current, `SELECT status FROM adjustment_requests WHERE id = $1`, req.ID)
	if err == sql.ErrNoRows {
		return errors.NotFound("adjustment request")
	}
	if err != nil {
		return errors.Dependency("adjustment request store", err)
	}
	return errors.InvalidStateTransition("adjustment request", current, req.Status)
}

// List lists requests matching filter, newest first
func (r *AdjustmentRepository) List(ctx context.Context, filter domain.AdjustmentFilter) ([]*domain.AdjustmentRequest, int64, error) {
	var conditions []string
	var args []interface{}
	argIdx := 1

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, filter.Status)
		argIdx++
	}
	if filter.EmployeeID != "" {
		conditions = append(conditions, fmt.Sprintf("employee_id = $%d", argIdx))
		args = append(args, filter.EmployeeID)
		argIdx++
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM adjustment_requests` + where
	if err := r.db.Executor(ctx).GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, errors.Dependency("adjustment request store", err)
	}

	query := `SELECT` + adjustmentColumns + ` FROM adjustment_requests` + where +
		fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, filter.Limit, filter.Offset)

	var requests []*domain.AdjustmentRequest
	if err := r.db.Executor(ctx).SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, errors.Dependency("adjustment request store", err)
	}

	for _, req := range requests {
		r.localize(req)
	}
	return requests, total, nil
}

func (r *AdjustmentRepository) localize(req *domain.AdjustmentRequest) {
	req.OriginalClockIn = req.OriginalClockIn.In(r.loc)
	req.RequestedClockIn = req.RequestedClockIn.In(r.loc)
	req.OriginalClockOut = inPtr(req.OriginalClockOut, r.loc)
	req.RequestedClockOut = inPtr(req.RequestedClockOut, r.loc)
}

func inPtr(t *time.Time, loc *time.Location) *time.Time {
	if t == nil {
		return nil
	}
	l := t.In(loc)
	return &l
}

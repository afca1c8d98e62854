package repository

import (
	"context"

	"github.com/medflow/medflow-attendance/internal/attendance/domain"
	"github.com/medflow/medflow-attendance/pkg/database"
	"github.com/medflow/medflow-attendance/pkg/errors"
)

// RosterRepository keeps the local copy of the staff roster
type RosterRepository struct {
	db *database.DB
}

// NewRosterRepository creates a new roster repository
func NewRosterRepository(db *database.DB) *RosterRepository {
	return &RosterRepository{db: db}
}

// GetEmployees returns the active employees ordered by name
func (r *RosterRepository) GetEmployees(ctx context.Context) ([]domain.Employee, error) {
	query := `
		SELECT employee_id, name
		FROM roster_employees
		WHERE active = TRUE
		ORDER BY name ASC, employee_id ASC
	`

	var employees []domain.Employee
	if err := r.db.Executor(ctx).SelectContext(ctx, &employees, query); err != nil {
		return nil, errors.Dependency("roster provider", err)
	}
	return employees, nil
}

// Upsert adds or renames an employee and marks them active
func (r *RosterRepository) Upsert(ctx context.Context, employee domain.Employee) error {
	query := `
		INSERT INTO roster_employees (employee_id, name, active, updated_at)
		VALUES ($1, $2, TRUE, NOW())
		ON CONFLICT (employee_id) DO UPDATE SET
			name = EXCLUDED.name, active = TRUE, updated_at = NOW()
	`
	if _, err := r.db.Executor(ctx).ExecContext(ctx, query, employee.ID, employee.Name); err != nil {
		return errors.Dependency("roster provider", err)
	}
	return nil
}

// Deactivate removes an employee from attendance evaluation. History is kept.
func (r *RosterRepository) Deactivate(ctx context.Context, employeeID string) error {
	query := `UPDATE roster_employees SET active = FALSE, updated_at = NOW() WHERE employee_id = $1`
	if _, err := r.db.Executor(ctx).ExecContext(ctx, query, employeeID); err != nil {
		return errors.Dependency("roster provider", err)
	}
	return nil
}

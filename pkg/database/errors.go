package database

import (
	"strings"

	"github.com/lib/pq"
	"github.com/medflow/medflow-attendance/pkg/errors"
)

// SQLSTATE classes handled by MapPQError
const (
	codeNotNull    pq.ErrorCode = "23502"
	codeForeignKey pq.ErrorCode = "23503"
	codeUnique     pq.ErrorCode = "23505"
	codeCheck      pq.ErrorCode = "23514"
)

// checkViolations maps a fragment of a CHECK constraint name to the field
// and message reported to the client
var checkViolations = []struct {
	constraint string
	field      string
	message    string
}{
	{"clock_out_after_clock_in", "clock_out", "must not be before clock_in"},
	{"thresholds_ordered", "absent_threshold_minutes", "must be greater than late_threshold_minutes"},
	{"review_fields", "status", "review fields must be set exactly when the request is no longer pending"},
	{"reason_valid", "reason", "invalid reason"},
	{"status_valid", "status", "invalid status value"},
	{"dates_ordered", "end_date", "must not be before start_date"},
}

// MapPQError translates constraint violations into client errors. Any other
// error, including non-pq errors, yields nil and should be treated as a
// dependency failure.
func MapPQError(err error) *errors.AppError {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return nil
	}

	switch pqErr.Code {
	case codeCheck:
		for _, v := range checkViolations {
			if strings.Contains(pqErr.Constraint, v.constraint) {
				return errors.Validation(map[string]string{v.field: v.message})
			}
		}
		return errors.BadRequest("data validation failed: " + pqErr.Constraint)
	case codeUnique:
		if strings.Contains(pqErr.Constraint, "one_pending_per_entry") {
			return errors.Conflict("a pending adjustment request already exists for this time entry")
		}
		return errors.Conflict("a record with these values already exists")
	case codeForeignKey:
		if strings.Contains(pqErr.Constraint, "time_entry") {
			return errors.NotFound("time entry")
		}
		return errors.NotFound("referenced record")
	case codeNotNull:
		column := pqErr.Column
		if column == "" {
			column = "required field"
		}
		return errors.Validation(map[string]string{column: "must not be empty"})
	}
	return nil
}

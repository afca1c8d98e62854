package domain

import (
	"testing"
	"time"

	"github.com/medflow/medflow-attendance/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 2, hour, minute, 0, 0, time.UTC)
}

func completedEvent() ClockEvent {
	out := at(17, 0)
	return ClockEvent{
		ID:           "entry-1",
		EmployeeID:   "emp-1",
		EmployeeName: "Anna Schmidt",
		ClockIn:      at(8, 55),
		ClockOut:     &out,
		Status:       ClockEventCompleted,
	}
}

func TestNewAdjustmentRequest(t *testing.T) {
	now := at(18, 0)

	t.Run("snapshots the original times", func(t *testing.T) {
		event := completedEvent()
		req, err := NewAdjustmentRequest("req-1", event, SubmitInput{
			EmployeeID:       "emp-1",
			TimeEntryID:      "entry-1",
			RequestedClockIn: at(9, 0),
			Reason:           ReasonWrongTime,
		}, now)
		require.NoError(t, err)

		assert.Equal(t, AdjustmentPending, req.Status)
		assert.Equal(t, at(8, 55), req.OriginalClockIn)
		require.NotNil(t, req.OriginalClockOut)
		assert.Equal(t, at(17, 0), *req.OriginalClockOut)
		assert.Nil(t, req.ReviewedBy)
		assert.Nil(t, req.ReviewedAt)
		assert.Nil(t, req.ReviewNotes)

		*event.ClockOut = at(19, 0)
		assert.Equal(t, at(17, 0), *req.OriginalClockOut, "snapshot is independent of the event")
	})

	t.Run("accepts a clock-out only change", func(t *testing.T) {
		out := at(17, 30)
		_, err := NewAdjustmentRequest("req-2", completedEvent(), SubmitInput{
			EmployeeID:        "emp-1",
			RequestedClockIn:  at(8, 55),
			RequestedClockOut: &out,
			Reason:            ReasonForgotClockOut,
		}, now)
		assert.NoError(t, err)
	})

	t.Run("accepts a clock-out for an active event", func(t *testing.T) {
		event := completedEvent()
		event.ClockOut = nil
		event.Status = ClockEventActive
		out := at(17, 0)

		req, err := NewAdjustmentRequest("req-3", event, SubmitInput{
			EmployeeID:        "emp-1",
			RequestedClockIn:  at(8, 55),
			RequestedClockOut: &out,
			Reason:            ReasonForgotClockOut,
		}, now)
		require.NoError(t, err)
		assert.Nil(t, req.OriginalClockOut)
	})

	tests := []struct {
		name  string
		input SubmitInput
		field string
	}{
		{
			name:  "unchanged times",
			input: SubmitInput{EmployeeID: "emp-1", RequestedClockIn: at(8, 55), Reason: ReasonWrongTime},
			field: "requested_clock_in",
		},
		{
			name:  "unknown reason",
			input: SubmitInput{EmployeeID: "emp-1", RequestedClockIn: at(9, 0), Reason: "overslept"},
			field: "reason",
		},
		{
			name:  "other without text",
			input: SubmitInput{EmployeeID: "emp-1", RequestedClockIn: at(9, 0), Reason: ReasonOther, ReasonText: "  "},
			field: "reason_text",
		},
		{
			name:  "requested clock-in after the kept clock-out",
			input: SubmitInput{EmployeeID: "emp-1", RequestedClockIn: at(17, 30), Reason: ReasonWrongTime},
			field: "requested_clock_out",
		},
		{
			name:  "missing clock-in",
			input: SubmitInput{EmployeeID: "emp-1", Reason: ReasonWrongTime},
			field: "requested_clock_in",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAdjustmentRequest("req-x", completedEvent(), tt.input, now)

			var appErr *errors.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
			assert.Contains(t, appErr.Details, tt.field)
		})
	}

	t.Run("foreign time entry", func(t *testing.T) {
		_, err := NewAdjustmentRequest("req-x", completedEvent(), SubmitInput{
			EmployeeID:       "emp-2",
			RequestedClockIn: at(9, 0),
			Reason:           ReasonWrongTime,
		}, now)
		assert.True(t, errors.Is(err, errors.ErrForbidden))
	})
}

func pendingRequest() *AdjustmentRequest {
	return &AdjustmentRequest{ID: "req-1", Status: AdjustmentPending}
}

func TestReview(t *testing.T) {
	reviewedAt := at(10, 0)

	t.Run("approve without notes records empty notes", func(t *testing.T) {
		req := pendingRequest()
		require.NoError(t, req.Review(AdjustmentApproved, "hr-1", nil, reviewedAt))

		assert.Equal(t, AdjustmentApproved, req.Status)
		assert.True(t, req.IsTerminal())
		assert.Equal(t, "hr-1", *req.ReviewedBy)
		assert.Equal(t, reviewedAt, *req.ReviewedAt)
		require.NotNil(t, req.ReviewNotes)
		assert.Equal(t, "", *req.ReviewNotes)
	})

	t.Run("reject records notes", func(t *testing.T) {
		req := pendingRequest()
		notes := "shift plan shows 09:00"
		require.NoError(t, req.Review(AdjustmentRejected, "hr-1", &notes, reviewedAt))
		assert.Equal(t, notes, *req.ReviewNotes)
	})

	terminal := []string{AdjustmentApproved, AdjustmentRejected}
	for _, from := range terminal {
		for _, to := range terminal {
			t.Run(from+" to "+to, func(t *testing.T) {
				req := pendingRequest()
				require.NoError(t, req.Review(from, "hr-1", nil, reviewedAt))
				before := *req

				err := req.Review(to, "hr-2", nil, reviewedAt.Add(time.Hour))

				var appErr *errors.AppError
				require.True(t, errors.As(err, &appErr))
				assert.Equal(t, "INVALID_STATE_TRANSITION", appErr.Code)
				assert.Equal(t, from, appErr.Details["current_status"])
				assert.Equal(t, before, *req, "terminal request is immutable")
			})
		}
	}

	t.Run("pending is not a review target", func(t *testing.T) {
		req := pendingRequest()
		err := req.Review(AdjustmentPending, "hr-1", nil, reviewedAt)
		assert.True(t, errors.Is(err, errors.ErrInvalidStateTransition))
	})
}

func TestEffectiveClockOut(t *testing.T) {
	out := at(17, 0)
	requested := at(17, 30)

	req := &AdjustmentRequest{OriginalClockOut: &out}
	assert.Equal(t, &out, req.EffectiveClockOut())

	req.RequestedClockOut = &requested
	assert.Equal(t, &requested, req.EffectiveClockOut())
}

func TestPayloadFor(t *testing.T) {
	notes := "ok"
	reviewer := "hr-1"
	req := &AdjustmentRequest{
		ID: "req-1", TimeEntryID: "entry-1", EmployeeName: "Anna Schmidt",
		Reason: ReasonWrongTime, RequestedClockIn: at(9, 0),
		ReviewedBy: &reviewer, ReviewNotes: &notes,
	}

	p := PayloadFor(req)
	assert.Equal(t, "req-1", p.RequestID)
	assert.Equal(t, "entry-1", p.TimeEntryID)
	assert.Equal(t, &notes, p.ReviewNotes)

	assert.Equal(t, AudienceHR, AudienceOf(NotifyRequestCreated))
	assert.Equal(t, AudienceEmployee, AudienceOf(NotifyApproved))
	assert.Equal(t, AudienceEmployee, AudienceOf(NotifyRejected))
}

package service

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/medflow/medflow-attendance/internal/attendance/domain"
	"github.com/medflow/medflow-attendance/pkg/errors"
	"github.com/medflow/medflow-attendance/pkg/logger"
	"github.com/medflow/medflow-attendance/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdjustmentService_Submit(t *testing.T) {
	w := newWorkflowFixture(t)
	event, req := w.seed(t)

	assert.Equal(t, domain.AdjustmentPending, req.Status)
	assert.Equal(t, event.ID, req.TimeEntryID)
	assert.True(t, req.OriginalClockIn.Equal(event.ClockIn))
	assert.Equal(t, w.now.UTC(), req.CreatedAt)

	require.Len(t, w.notifier.sent, 1)
	sent := w.notifier.sent[0]
	assert.Equal(t, domain.NotifyRequestCreated, sent.Kind)
	assert.Equal(t, event.EmployeeID, sent.EmployeeID)
	assert.Equal(t, req.ID, sent.Payload.RequestID)
}

func TestAdjustmentService_Submit_Rejections(t *testing.T) {
	w := newWorkflowFixture(t)
	event := w.factory.ClockEvent(w.factory.Employee())
	w.store.ClockEvents().Put(event)
	ctx := context.Background()

	t.Run("unknown time entry", func(t *testing.T) {
		_, err := w.service.Submit(ctx, domain.SubmitInput{
			EmployeeID:       event.EmployeeID,
			TimeEntryID:      "missing",
			RequestedClockIn: event.ClockIn,
			Reason:           domain.ReasonWrongTime,
		})
		assert.True(t, errors.Is(err, errors.ErrNotFound))
	})

	t.Run("someone else's time entry", func(t *testing.T) {
		_, err := w.service.Submit(ctx, domain.SubmitInput{
			EmployeeID:       "emp-other",
			TimeEntryID:      event.ID,
			RequestedClockIn: event.ClockIn.Add(time.Minute),
			Reason:           domain.ReasonWrongTime,
		})
		assert.True(t, errors.Is(err, errors.ErrForbidden))
	})

	t.Run("other without explanation", func(t *testing.T) {
		_, err := w.service.Submit(ctx, domain.SubmitInput{
			EmployeeID:       event.EmployeeID,
			TimeEntryID:      event.ID,
			RequestedClockIn: event.ClockIn.Add(time.Minute),
			Reason:           domain.ReasonOther,
		})
		assert.True(t, errors.Is(err, errors.ErrValidation))
	})

	t.Run("second pending request", func(t *testing.T) {
		in := domain.SubmitInput{
			EmployeeID:       event.EmployeeID,
			TimeEntryID:      event.ID,
			RequestedClockIn: event.ClockIn.Add(-10 * time.Minute),
			Reason:           domain.ReasonForgotClockIn,
		}
		_, err := w.service.Submit(ctx, in)
		require.NoError(t, err)

		_, err = w.service.Submit(ctx, in)
		assert.True(t, errors.Is(err, errors.ErrConflict))
	})

	assert.Equal(t, []string{domain.NotifyRequestCreated}, w.notifier.kinds())
}

func TestAdjustmentService_Approve_AppliesRequestedTimes(t *testing.T) {
	w := newWorkflowFixture(t)
	event, req := w.seed(t)
	ctx := context.Background()

	approved, err := w.service.Approve(ctx, req.ID, "hr-1", testutil.PtrString("ok"))
	require.NoError(t, err)

	assert.Equal(t, domain.AdjustmentApproved, approved.Status)
	assert.Equal(t, "hr-1", *approved.ReviewedBy)
	assert.Equal(t, "ok", *approved.ReviewNotes)
	assert.Equal(t, w.now.UTC(), *approved.ReviewedAt)

	updated, err := w.store.ClockEvents().GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, "09:00", domain.ClockOf(updated.ClockIn))
	assert.Equal(t, domain.ClockEventAdjusted, updated.Status)
	require.NotNil(t, updated.AdjustmentRequestID)
	assert.Equal(t, req.ID, *updated.AdjustmentRequestID)
	assert.True(t, updated.ClockOut.Equal(*event.ClockOut), "clock-out is kept when none was requested")

	assert.Equal(t, []string{domain.NotifyRequestCreated, domain.NotifyApproved}, w.notifier.kinds())
	assert.Equal(t, event.EmployeeID, w.notifier.sent[1].EmployeeID)
}

func TestAdjustmentService_Approve_OpenShiftStillTakesClockOut(t *testing.T) {
	w := newWorkflowFixture(t)
	ctx := context.Background()
	event := w.factory.ClockEvent(w.factory.Employee(), testutil.WithClockIn(9, 10), testutil.WithoutClockOut())
	w.store.ClockEvents().Put(event)

	req, err := w.service.Submit(ctx, domain.SubmitInput{
		EmployeeID:       event.EmployeeID,
		TimeEntryID:      event.ID,
		RequestedClockIn: event.ClockIn.Add(-10 * time.Minute),
		Reason:           domain.ReasonForgotClockIn,
	})
	require.NoError(t, err)
	_, err = w.service.Approve(ctx, req.ID, "hr-1", nil)
	require.NoError(t, err)

	out := event.ClockIn.Add(8 * time.Hour)
	require.NoError(t, w.store.ClockEvents().RecordClockOut(ctx, event.ID, out))

	updated, err := w.store.ClockEvents().GetEvent(ctx, event.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.ClockOut, "the real clock-out must not be dropped")
	assert.True(t, updated.ClockOut.Equal(out))
	assert.Equal(t, "09:00", domain.ClockOf(updated.ClockIn))
	assert.Equal(t, domain.ClockEventAdjusted, updated.Status)
}

func TestAdjustmentService_Approve_WithoutNotesStoresEmptyNotes(t *testing.T) {
	w := newWorkflowFixture(t)
	_, req := w.seed(t)

	approved, err := w.service.Approve(context.Background(), req.ID, "hr-1", nil)

	require.NoError(t, err)
	require.NotNil(t, approved.ReviewNotes)
	assert.Equal(t, "", *approved.ReviewNotes)
}

func TestAdjustmentService_Approve_TwiceIsInvalidTransition(t *testing.T) {
	w := newWorkflowFixture(t)
	event, req := w.seed(t)
	ctx := context.Background()

	_, err := w.service.Approve(ctx, req.ID, "hr-1", nil)
	require.NoError(t, err)
	first, err := w.store.ClockEvents().GetEvent(ctx, event.ID)
	require.NoError(t, err)

	_, err = w.service.Approve(ctx, req.ID, "hr-2", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidStateTransition))

	second, err := w.store.ClockEvents().GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, first.UpdatedAt, second.UpdatedAt, "the event must not be mutated again")

	_, err = w.service.Reject(ctx, req.ID, "hr-2", "too late")
	assert.True(t, errors.Is(err, errors.ErrInvalidStateTransition))

	assert.Equal(t, []string{domain.NotifyRequestCreated, domain.NotifyApproved}, w.notifier.kinds())
}

func TestAdjustmentService_ConcurrentReviewsCommitOnce(t *testing.T) {
	w := newWorkflowFixture(t)
	_, req := w.seed(t)
	ctx := context.Background()

	const reviewers = 16
	var wg sync.WaitGroup
	errs := make([]error, reviewers)
	for i := 0; i < reviewers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, errs[i] = w.service.Approve(ctx, req.ID, "hr-1", nil)
			} else {
				_, errs[i] = w.service.Reject(ctx, req.ID, "hr-2", "duplicate")
			}
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		assert.True(t, errors.Is(err, errors.ErrInvalidStateTransition), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, successes)
	assert.Len(t, w.notifier.kinds(), 2, "exactly one review notification besides request_created")
	assert.Zero(t, w.service.locks.size())
}

func TestAdjustmentService_Approve_FailedEventUpdateKeepsRequestPending(t *testing.T) {
	w := newWorkflowFixture(t)
	_, req := w.seed(t)
	ctx := context.Background()

	failure := stderrors.New("disk full")
	svc := NewAdjustmentService(w.store, failingEvents{ClockEventStore: w.store.ClockEvents(), err: failure},
		w.store.Requests(), w.notifier, fixedClock(w.now), logger.NewNop())

	_, err := svc.Approve(ctx, req.ID, "hr-1", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDependency))

	stored, err := w.store.Requests().GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AdjustmentPending, stored.Status)
	assert.Nil(t, stored.ReviewedBy)
	assert.Equal(t, []string{domain.NotifyRequestCreated}, w.notifier.kinds())
}

func TestAdjustmentService_NotificationFailureDoesNotRollBack(t *testing.T) {
	w := newWorkflowFixture(t)
	event, req := w.seed(t)
	ctx := context.Background()
	w.notifier.err = stderrors.New("broker down")

	approved, err := w.service.Approve(ctx, req.ID, "hr-1", nil)

	require.NoError(t, err)
	assert.Equal(t, domain.AdjustmentApproved, approved.Status)
	updated, err := w.store.ClockEvents().GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ClockEventAdjusted, updated.Status)
}

func TestAdjustmentService_Reject(t *testing.T) {
	w := newWorkflowFixture(t)
	event, req := w.seed(t)
	ctx := context.Background()

	t.Run("requires notes", func(t *testing.T) {
		_, err := w.service.Reject(ctx, req.ID, "hr-1", "  ")
		assert.True(t, errors.Is(err, errors.ErrValidation))
	})

	t.Run("employees cannot review themselves", func(t *testing.T) {
		_, err := w.service.Reject(ctx, req.ID, event.EmployeeID, "nope")
		assert.True(t, errors.Is(err, errors.ErrForbidden))
	})

	t.Run("leaves the clock event untouched", func(t *testing.T) {
		rejected, err := w.service.Reject(ctx, req.ID, "hr-1", "shift plan says 08:55")
		require.NoError(t, err)
		assert.Equal(t, domain.AdjustmentRejected, rejected.Status)
		assert.Equal(t, "shift plan says 08:55", *rejected.ReviewNotes)

		stored, err := w.store.ClockEvents().GetEvent(ctx, event.ID)
		require.NoError(t, err)
		assert.True(t, stored.ClockIn.Equal(event.ClockIn))
		assert.Equal(t, event.Status, stored.Status)
		assert.Nil(t, stored.AdjustmentRequestID)
	})

	last := w.notifier.sent[len(w.notifier.sent)-1]
	assert.Equal(t, domain.NotifyRejected, last.Kind)
	require.NotNil(t, last.Payload.ReviewNotes)
	assert.Equal(t, "shift plan says 08:55", *last.Payload.ReviewNotes)
}

func TestAdjustmentService_UnknownRequest(t *testing.T) {
	w := newWorkflowFixture(t)

	_, err := w.service.Approve(context.Background(), "missing", "hr-1", nil)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	_, err = w.service.Reject(context.Background(), "missing", "hr-1", "x")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestAdjustmentService_List(t *testing.T) {
	w := newWorkflowFixture(t)
	_, req := w.seed(t)
	w.seed(t)
	ctx := context.Background()

	_, err := w.service.Approve(ctx, req.ID, "hr-1", nil)
	require.NoError(t, err)

	pending, total, err := w.service.List(ctx, domain.AdjustmentFilter{Status: domain.AdjustmentPending})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, pending, 1)
	assert.NotEqual(t, req.ID, pending[0].ID)

	_, _, err = w.service.List(ctx, domain.AdjustmentFilter{Status: "archived"})
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

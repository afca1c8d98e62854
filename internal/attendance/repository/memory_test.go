package repository_test

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/medflow/medflow-attendance/internal/attendance/domain"
	"github.com/medflow/medflow-attendance/internal/attendance/repository"
	"github.com/medflow/medflow-attendance/pkg/errors"
	"github.com/medflow/medflow-attendance/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_WithinTx_RestoresOnError(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore(time.UTC)
	f := testutil.NewFixtureFactory()
	event := f.ClockEvent(f.Employee())
	store.ClockEvents().Put(event)

	failure := stderrors.New("request update failed")
	err := store.WithinTx(ctx, func(ctx context.Context) error {
		status := domain.ClockEventAdjusted
		require.NoError(t, store.ClockEvents().UpdateEvent(ctx, event.ID, domain.ClockEventUpdate{Status: &status}))
		return failure
	})

	assert.ErrorIs(t, err, failure)
	got, err := store.ClockEvents().GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ClockEventCompleted, got.Status)
}

func TestMemoryStore_WithinTx_KeepsWritesOutsideTheUnit(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore(time.UTC)
	f := testutil.NewFixtureFactory()
	employee := f.Employee()
	inTx := f.ClockEvent(employee)
	outside := f.ClockEvent(employee)
	store.ClockEvents().Put(inTx)
	store.ClockEvents().Put(outside)

	other := f.AdjustmentRequest(outside)
	err := store.WithinTx(ctx, func(txCtx context.Context) error {
		status := domain.ClockEventAdjusted
		require.NoError(t, store.ClockEvents().UpdateEvent(txCtx, inTx.ID, domain.ClockEventUpdate{Status: &status}))
		mine := f.AdjustmentRequest(inTx)
		require.NoError(t, store.Requests().Create(txCtx, &mine))
		// another caller submitting concurrently, outside the unit of work
		require.NoError(t, store.Requests().Create(ctx, &other))
		return stderrors.New("review failed")
	})
	require.Error(t, err)

	kept, err := store.Requests().GetByID(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AdjustmentPending, kept.Status)

	_, total, err := store.Requests().List(ctx, domain.AdjustmentFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	got, err := store.ClockEvents().GetEvent(ctx, inTx.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ClockEventCompleted, got.Status)
}

func TestMemoryStore_WithinTx_NestedJoinsOuter(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore(time.UTC)

	calls := 0
	err := store.WithinTx(ctx, func(ctx context.Context) error {
		return store.WithinTx(ctx, func(context.Context) error {
			calls++
			return nil
		})
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestMemoryRequests_OnePendingPerEntry(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore(time.UTC)
	f := testutil.NewFixtureFactory()
	event := f.ClockEvent(f.Employee())
	store.ClockEvents().Put(event)

	first := f.AdjustmentRequest(event)
	require.NoError(t, store.Requests().Create(ctx, &first))

	second := f.AdjustmentRequest(event)
	err := store.Requests().Create(ctx, &second)
	assert.True(t, errors.Is(err, errors.ErrConflict))

	require.NoError(t, first.Review(domain.AdjustmentRejected, "hr-1", testutil.PtrString("no"), time.Now()))
	require.NoError(t, store.Requests().UpdateStatus(ctx, &first))
	assert.NoError(t, store.Requests().Create(ctx, &second), "a new request is allowed once the previous one is reviewed")
}

func TestMemoryRequests_UpdateStatus_OnlyFromPending(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore(time.UTC)
	f := testutil.NewFixtureFactory()
	event := f.ClockEvent(f.Employee())
	store.ClockEvents().Put(event)

	req := f.AdjustmentRequest(event)
	require.NoError(t, store.Requests().Create(ctx, &req))

	approved := req
	require.NoError(t, approved.Review(domain.AdjustmentApproved, "hr-1", nil, time.Now()))
	require.NoError(t, store.Requests().UpdateStatus(ctx, &approved))

	rejected := req
	require.NoError(t, rejected.Review(domain.AdjustmentRejected, "hr-2", testutil.PtrString("late"), time.Now()))
	err := store.Requests().UpdateStatus(ctx, &rejected)
	assert.True(t, errors.Is(err, errors.ErrInvalidStateTransition))

	stored, err := store.Requests().GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AdjustmentApproved, stored.Status)
	assert.Equal(t, "hr-1", *stored.ReviewedBy)
}

func TestMemoryRequests_List(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore(time.UTC)
	f := testutil.NewFixtureFactory()

	var ids []string
	for i := 0; i < 3; i++ {
		event := f.ClockEvent(f.Employee())
		store.ClockEvents().Put(event)
		req := f.AdjustmentRequest(event)
		req.CreatedAt = req.CreatedAt.Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.Requests().Create(ctx, &req))
		ids = append(ids, req.ID)
	}

	page, total, err := store.Requests().List(ctx, domain.AdjustmentFilter{Limit: 2, Offset: 1})

	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 2)
	assert.Equal(t, ids[1], page[0].ID)
	assert.Equal(t, ids[0], page[1].ID)
}

func TestMemoryClockEvents_GetEventsForDate_UsesLocalDay(t *testing.T) {
	ctx := context.Background()
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	store := repository.NewMemoryStore(tokyo)
	f := testutil.NewFixtureFactory()

	// 20:00 UTC on the 10th is 05:00 on the 11th in Tokyo
	late := f.ClockEvent(f.Employee(), testutil.OnDay(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)), testutil.WithClockIn(20, 0), testutil.WithoutClockOut())
	store.ClockEvents().Put(late)

	events, err := store.ClockEvents().GetEventsForDate(ctx, time.Date(2024, 3, 11, 12, 0, 0, 0, tokyo))

	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 5, events[0].ClockIn.Hour())
}

func TestMemoryClockEvents_RecordClockOut_KeepsExistingClockOut(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore(time.UTC)
	f := testutil.NewFixtureFactory()
	event := f.ClockEvent(f.Employee(), func(e *domain.ClockEvent) { e.Status = domain.ClockEventAdjusted })
	store.ClockEvents().Put(event)

	require.NoError(t, store.ClockEvents().RecordClockOut(ctx, event.ID, event.ClockOut.Add(time.Hour)))

	got, err := store.ClockEvents().GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.True(t, got.ClockOut.Equal(*event.ClockOut))
}

func TestMemoryClockEvents_RecordClockOut_OpenAdjustedEvent(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore(time.UTC)
	f := testutil.NewFixtureFactory()
	event := f.ClockEvent(f.Employee(), testutil.WithoutClockOut(), func(e *domain.ClockEvent) {
		e.Status = domain.ClockEventAdjusted
	})
	store.ClockEvents().Put(event)

	out := event.ClockIn.Add(8 * time.Hour)
	require.NoError(t, store.ClockEvents().RecordClockOut(ctx, event.ID, out))

	got, err := store.ClockEvents().GetEvent(ctx, event.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ClockOut)
	assert.True(t, got.ClockOut.Equal(out))
	assert.Equal(t, domain.ClockEventAdjusted, got.Status)
}

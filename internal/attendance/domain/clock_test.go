package domain

import (
	"testing"
	"time"

	"github.com/medflow/medflow-attendance/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		value   string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:00", 540, false},
		{"09:45", 585, false},
		{"23:59", 1439, false},
		{"9:00", 0, true},
		{"24:00", 0, true},
		{"09:60", 0, true},
		{"+9:00", 0, true},
		{"09-00", 0, true},
		{"", 0, true},
		{"ab:cd", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := ParseClock("clock_in", tt.value)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, errors.ErrValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "09:05", FormatClock(545))
	assert.Equal(t, "00:00", FormatClock(0))
}

func TestParseDate(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	d, err := ParseDate("date", "2026-03-02", berlin)
	require.NoError(t, err)
	assert.Equal(t, berlin, d.Location())
	assert.Equal(t, 0, d.Hour())
	assert.Equal(t, "2026-03-02", FormatDate(d))

	_, err = ParseDate("date", "02.03.2026", berlin)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestClockEventUpdateApply(t *testing.T) {
	in := time.Date(2026, 3, 2, 8, 55, 0, 0, time.UTC)
	out := time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC)
	event := ClockEvent{ID: "entry-1", ClockIn: in, ClockOut: &out, Status: ClockEventCompleted}

	requested := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	adjusted := ClockEventAdjusted
	requestID := "req-1"

	updated, err := ClockEventUpdate{ClockIn: &requested, Status: &adjusted, AdjustmentRequestID: &requestID}.Apply(event)
	require.NoError(t, err)
	assert.Equal(t, requested, updated.ClockIn)
	assert.Equal(t, out, *updated.ClockOut, "clock-out kept when not updated")
	assert.Equal(t, ClockEventAdjusted, updated.Status)
	assert.Equal(t, "req-1", *updated.AdjustmentRequestID)
	assert.Equal(t, in, event.ClockIn, "original is not modified")

	late := time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)
	_, err = ClockEventUpdate{ClockIn: &late}.Apply(event)
	assert.True(t, errors.Is(err, errors.ErrValidation), "clock-out before clock-in is rejected")
}

func TestLeaveCovers(t *testing.T) {
	leave := Leave{
		StartDate: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC),
		Status:    LeaveApproved,
	}

	assert.False(t, leave.Covers("2026-03-01"))
	assert.True(t, leave.Covers("2026-03-02"))
	assert.True(t, leave.Covers("2026-03-04"))
	assert.False(t, leave.Covers("2026-03-05"))

	leave.Status = LeavePending
	assert.False(t, leave.Covers("2026-03-03"))
}

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func statusesOf(statuses ...string) []AttendanceStatus {
	out := make([]AttendanceStatus, len(statuses))
	for i, s := range statuses {
		out[i] = AttendanceStatus{EmployeeID: string(rune('a' + i)), Status: s}
	}
	return out
}

func TestComputeStats(t *testing.T) {
	t.Run("empty day", func(t *testing.T) {
		stats := ComputeStats(nil)
		assert.Equal(t, Stats{}, stats)
	})

	t.Run("counts and rate", func(t *testing.T) {
		stats := ComputeStats(statusesOf(StatusPresent, StatusLate, StatusAbsent, StatusOnLeave))

		assert.Equal(t, 4, stats.Total)
		assert.Equal(t, 1, stats.Present)
		assert.Equal(t, 1, stats.Late)
		assert.Equal(t, 1, stats.Absent)
		assert.Equal(t, 1, stats.OnLeave)
		assert.Equal(t, 50.0, stats.AttendanceRate)
	})

	t.Run("rate is rounded to two decimals", func(t *testing.T) {
		stats := ComputeStats(statusesOf(StatusPresent, StatusPresent, StatusAbsent))
		assert.Equal(t, 66.67, stats.AttendanceRate)
	})

	t.Run("rate stays within bounds", func(t *testing.T) {
		all := ComputeStats(statusesOf(StatusPresent, StatusLate))
		none := ComputeStats(statusesOf(StatusAbsent, StatusAbsent))

		assert.Equal(t, 100.0, all.AttendanceRate)
		assert.Equal(t, 0.0, none.AttendanceRate)
	})
}

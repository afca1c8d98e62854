package actor

import (
	"context"
	"testing"

	"github.com/medflow/medflow-attendance/pkg/permissions"
	"github.com/stretchr/testify/assert"
)

func TestContextRoundTrip(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))

	a := &Actor{ID: "hr-1", Email: "petra@clinic.test"}
	ctx := WithActor(context.Background(), a)

	assert.Same(t, a, FromContext(ctx))
}

func TestActor_Can(t *testing.T) {
	var missing *Actor
	assert.False(t, missing.Can(permissions.AttendanceRead))

	reviewer := &Actor{ID: "hr-1", Permissions: []string{"attendance.adjustments.*"}}
	assert.True(t, reviewer.Can(permissions.AttendanceAdjustmentsReview))
	assert.False(t, reviewer.Can(permissions.AttendanceSettingsWrite))
}

func TestActor_Owns(t *testing.T) {
	var missing *Actor
	assert.False(t, missing.Owns("emp-1"))
	assert.False(t, (&Actor{}).Owns(""))

	a := &Actor{ID: "emp-1"}
	assert.True(t, a.Owns("emp-1"))
	assert.False(t, a.Owns("emp-2"))
}

func TestActor_String(t *testing.T) {
	var missing *Actor
	assert.Equal(t, "anonymous", missing.String())
	assert.Equal(t, "emp-1", (&Actor{ID: "emp-1"}).String())
	assert.Equal(t, "hr-1 (petra@clinic.test)", (&Actor{ID: "hr-1", Email: "petra@clinic.test"}).String())
}

package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/medflow/medflow-attendance/internal/attendance/domain"
	"github.com/medflow/medflow-attendance/internal/attendance/repository"
	"github.com/medflow/medflow-attendance/pkg/logger"
	"github.com/medflow/medflow-attendance/pkg/testutil"
)

type sentNotification struct {
	Kind       string
	EmployeeID string
	Payload    domain.NotificationPayload
}

// recordingNotifier records notifications and optionally fails them
type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, kind, employeeID string, payload domain.NotificationPayload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentNotification{Kind: kind, EmployeeID: employeeID, Payload: payload})
	return nil
}

func (n *recordingNotifier) kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	kinds := make([]string, 0, len(n.sent))
	for _, s := range n.sent {
		kinds = append(kinds, s.Kind)
	}
	return kinds
}

// failingEvents wraps a clock event store and fails every update
type failingEvents struct {
	ClockEventStore
	err error
}

func (f failingEvents) UpdateEvent(context.Context, string, domain.ClockEventUpdate) error {
	return f.err
}

type workflowFixture struct {
	store    *repository.MemoryStore
	notifier *recordingNotifier
	service  *AdjustmentService
	factory  *testutil.FixtureFactory
	now      time.Time
}

func newWorkflowFixture(t *testing.T) *workflowFixture {
	t.Helper()
	store := repository.NewMemoryStore(time.UTC)
	notifier := &recordingNotifier{}
	now := monday.Add(20 * time.Hour)
	return &workflowFixture{
		store:    store,
		notifier: notifier,
		service:  NewAdjustmentService(store, store.ClockEvents(), store.Requests(), notifier, fixedClock(now), logger.NewNop()),
		factory:  testutil.NewFixtureFactory(),
		now:      now,
	}
}

// seed stores a completed shift and a pending request moving its clock-in
// from 08:55 to 09:00
func (w *workflowFixture) seed(t *testing.T) (domain.ClockEvent, *domain.AdjustmentRequest) {
	t.Helper()
	event := w.factory.ClockEvent(w.factory.Employee(), testutil.WithClockIn(8, 55))
	w.store.ClockEvents().Put(event)

	req, err := w.service.Submit(context.Background(), domain.SubmitInput{
		EmployeeID:       event.EmployeeID,
		TimeEntryID:      event.ID,
		RequestedClockIn: event.ClockIn.Add(5 * time.Minute),
		Reason:           domain.ReasonWrongTime,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return event, req
}

package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/medflow/medflow-attendance/internal/attendance/domain"
	"github.com/medflow/medflow-attendance/pkg/errors"
)

// MemoryStore is an in-process implementation of every attendance store,
// used by tests and local tooling. WithinTx serialises units of work and
// undoes the writes made through its context when fn fails. Writes made
// outside the unit of work are kept.
type MemoryStore struct {
	loc *time.Location

	txMu sync.Mutex
	mu   sync.RWMutex

	events    map[string]domain.ClockEvent
	requests  map[string]domain.AdjustmentRequest
	employees map[string]memoryEmployee
	leaves    map[string]domain.Leave
	settings  *domain.Settings
}

type memoryEmployee struct {
	domain.Employee
	active bool
}

type memoryTxKey struct{}

// memoryTx is the undo journal of one unit of work, appended under mu
type memoryTx struct {
	undo []func()
}

func txFrom(ctx context.Context) *memoryTx {
	tx, _ := ctx.Value(memoryTxKey{}).(*memoryTx)
	return tx
}

// journal records the current value of key so the write about to happen
// can be undone. Outside a unit of work it does nothing.
func journal[K comparable, V any](ctx context.Context, m map[K]V, key K) {
	tx := txFrom(ctx)
	if tx == nil {
		return
	}
	prev, existed := m[key]
	tx.undo = append(tx.undo, func() {
		if existed {
			m[key] = prev
		} else {
			delete(m, key)
		}
	})
}

// NewMemoryStore creates an empty store evaluating dates in loc
func NewMemoryStore(loc *time.Location) *MemoryStore {
	if loc == nil {
		loc = time.UTC
	}
	return &MemoryStore{
		loc:       loc,
		events:    make(map[string]domain.ClockEvent),
		requests:  make(map[string]domain.AdjustmentRequest),
		employees: make(map[string]memoryEmployee),
		leaves:    make(map[string]domain.Leave),
	}
}

// WithinTx runs fn as one unit of work. Nested calls join the outer one.
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFrom(ctx) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &memoryTx{}
	if err := fn(context.WithValue(ctx, memoryTxKey{}, tx)); err != nil {
		s.mu.Lock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

// ClockEvents returns the clock event view of the store
func (s *MemoryStore) ClockEvents() *MemoryClockEvents { return &MemoryClockEvents{s} }

// Requests returns the adjustment request view of the store
func (s *MemoryStore) Requests() *MemoryRequests { return &MemoryRequests{s} }

// Roster returns the roster view of the store
func (s *MemoryStore) Roster() *MemoryRoster { return &MemoryRoster{s} }

// Leaves returns the leave view of the store
func (s *MemoryStore) Leaves() *MemoryLeaves { return &MemoryLeaves{s} }

// Settings returns the settings view of the store
func (s *MemoryStore) Settings() *MemorySettings { return &MemorySettings{s} }

// MemoryClockEvents stores clock events in memory
type MemoryClockEvents struct{ s *MemoryStore }

// Put stores an event as is
func (m *MemoryClockEvents) Put(event domain.ClockEvent) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.events[event.ID] = event
}

// GetEventsForDate returns the events clocked in on the calendar day of date
func (m *MemoryClockEvents) GetEventsForDate(_ context.Context, date time.Time) ([]domain.ClockEvent, error) {
	day := domain.FormatDate(date.In(m.s.loc))

	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	events := make([]domain.ClockEvent, 0)
	for _, e := range m.s.events {
		local := e.In(m.s.loc)
		if domain.FormatDate(local.ClockIn) == day {
			events = append(events, local)
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].ClockIn.Before(events[j].ClockIn) })
	return events, nil
}

// GetEvent gets an event by ID
func (m *MemoryClockEvents) GetEvent(_ context.Context, id string) (*domain.ClockEvent, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	e, ok := m.s.events[id]
	if !ok {
		return nil, errors.NotFound("time entry")
	}
	local := e.In(m.s.loc)
	return &local, nil
}

// UpdateEvent overwrites the fields set in update
func (m *MemoryClockEvents) UpdateEvent(ctx context.Context, id string, update domain.ClockEventUpdate) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	e, ok := m.s.events[id]
	if !ok {
		return errors.NotFound("time entry")
	}
	next, err := update.Apply(e)
	if err != nil {
		return err
	}
	next.UpdatedAt = time.Now().UTC()
	journal(ctx, m.s.events, id)
	m.s.events[id] = next
	return nil
}

// RecordClockIn stores a new active event. Known IDs are ignored.
func (m *MemoryClockEvents) RecordClockIn(ctx context.Context, event domain.ClockEvent) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if _, ok := m.s.events[event.ID]; ok {
		return nil
	}
	now := time.Now().UTC()
	event.Status = domain.ClockEventActive
	event.ClockOut = nil
	event.CreatedAt = now
	event.UpdatedAt = now
	journal(ctx, m.s.events, event.ID)
	m.s.events[event.ID] = event
	return nil
}

// RecordClockOut sets the clock-out of an event that has none yet. An
// adjusted event stays adjusted.
func (m *MemoryClockEvents) RecordClockOut(ctx context.Context, id string, clockOut time.Time) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	e, ok := m.s.events[id]
	if !ok {
		return errors.NotFound("time entry")
	}
	if e.ClockOut != nil {
		return nil
	}
	if clockOut.Before(e.ClockIn) {
		return errors.Validation(map[string]string{"clock_out": "must not be before clock_in"})
	}
	e.ClockOut = &clockOut
	if e.Status != domain.ClockEventAdjusted {
		e.Status = domain.ClockEventCompleted
	}
	e.UpdatedAt = time.Now().UTC()
	journal(ctx, m.s.events, id)
	m.s.events[id] = e
	return nil
}

// MemoryRequests stores adjustment requests in memory
type MemoryRequests struct{ s *MemoryStore }

// Create inserts a pending request
func (m *MemoryRequests) Create(ctx context.Context, req *domain.AdjustmentRequest) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if _, ok := m.s.events[req.TimeEntryID]; !ok {
		return errors.NotFound("time entry")
	}
	if _, ok := m.s.requests[req.ID]; ok {
		return errors.Conflict("a record with these values already exists")
	}
	for _, existing := range m.s.requests {
		if existing.TimeEntryID == req.TimeEntryID && existing.Status == domain.AdjustmentPending {
			return errors.Conflict("a pending adjustment request already exists for this time entry")
		}
	}
	journal(ctx, m.s.requests, req.ID)
	m.s.requests[req.ID] = *req
	return nil
}

// GetByID gets a request by ID
func (m *MemoryRequests) GetByID(_ context.Context, id string) (*domain.AdjustmentRequest, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	req, ok := m.s.requests[id]
	if !ok {
		return nil, errors.NotFound("adjustment request")
	}
	return &req, nil
}

// UpdateStatus stores the review of req while the stored request is pending
func (m *MemoryRequests) UpdateStatus(ctx context.Context, req *domain.AdjustmentRequest) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	current, ok := m.s.requests[req.ID]
	if !ok {
		return errors.NotFound("adjustment request")
	}
	if current.Status != domain.AdjustmentPending {
		return errors.InvalidStateTransition("adjustment request", current.Status, req.Status)
	}

	current.Status = req.Status
	current.ReviewedBy = req.ReviewedBy
	current.ReviewedAt = req.ReviewedAt
	current.ReviewNotes = req.ReviewNotes
	current.UpdatedAt = req.UpdatedAt
	journal(ctx, m.s.requests, req.ID)
	m.s.requests[req.ID] = current
	return nil
}

// List lists requests matching filter, newest first
func (m *MemoryRequests) List(_ context.Context, filter domain.AdjustmentFilter) ([]*domain.AdjustmentRequest, int64, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	matched := make([]*domain.AdjustmentRequest, 0)
	for _, req := range m.s.requests {
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		if filter.EmployeeID != "" && req.EmployeeID != filter.EmployeeID {
			continue
		}
		r := req
		matched = append(matched, &r)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := filter.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if filter.Limit > 0 && start+filter.Limit < end {
		end = start + filter.Limit
	}
	return matched[start:end], total, nil
}

// MemoryRoster stores the roster in memory
type MemoryRoster struct{ s *MemoryStore }

// GetEmployees returns the active employees ordered by name
func (m *MemoryRoster) GetEmployees(_ context.Context) ([]domain.Employee, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	employees := make([]domain.Employee, 0, len(m.s.employees))
	for _, e := range m.s.employees {
		if e.active {
			employees = append(employees, e.Employee)
		}
	}
	sort.Slice(employees, func(i, j int) bool {
		if employees[i].Name == employees[j].Name {
			return employees[i].ID < employees[j].ID
		}
		return employees[i].Name < employees[j].Name
	})
	return employees, nil
}

// Upsert adds or renames an employee and marks them active
func (m *MemoryRoster) Upsert(ctx context.Context, employee domain.Employee) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	journal(ctx, m.s.employees, employee.ID)
	m.s.employees[employee.ID] = memoryEmployee{Employee: employee, active: true}
	return nil
}

// Deactivate removes an employee from attendance evaluation
func (m *MemoryRoster) Deactivate(ctx context.Context, employeeID string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if e, ok := m.s.employees[employeeID]; ok {
		journal(ctx, m.s.employees, employeeID)
		e.active = false
		m.s.employees[employeeID] = e
	}
	return nil
}

// MemoryLeaves stores leaves in memory
type MemoryLeaves struct{ s *MemoryStore }

// GetLeaves returns approved leaves overlapping the calendar days [from, to]
func (m *MemoryLeaves) GetLeaves(_ context.Context, from, to time.Time) ([]domain.Leave, error) {
	fromDay, toDay := domain.FormatDate(from), domain.FormatDate(to)

	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	leaves := make([]domain.Leave, 0)
	for _, l := range m.s.leaves {
		if l.Status != domain.LeaveApproved {
			continue
		}
		if domain.FormatDate(l.StartDate) <= toDay && domain.FormatDate(l.EndDate) >= fromDay {
			leaves = append(leaves, l)
		}
	}
	sort.Slice(leaves, func(i, j int) bool { return leaves[i].StartDate.Before(leaves[j].StartDate) })
	return leaves, nil
}

// Upsert stores or replaces a leave
func (m *MemoryLeaves) Upsert(ctx context.Context, leave domain.Leave) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	journal(ctx, m.s.leaves, leave.AbsenceID)
	m.s.leaves[leave.AbsenceID] = leave
	return nil
}

// SetStatus updates the status of a known leave
func (m *MemoryLeaves) SetStatus(ctx context.Context, absenceID, status string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if l, ok := m.s.leaves[absenceID]; ok {
		journal(ctx, m.s.leaves, absenceID)
		l.Status = status
		m.s.leaves[absenceID] = l
	}
	return nil
}

// Delete removes a leave
func (m *MemoryLeaves) Delete(ctx context.Context, absenceID string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	journal(ctx, m.s.leaves, absenceID)
	delete(m.s.leaves, absenceID)
	return nil
}

// MemorySettings stores settings in memory
type MemorySettings struct{ s *MemoryStore }

// Get returns the stored settings, or nil when none were stored yet
func (m *MemorySettings) Get(_ context.Context) (*domain.Settings, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	if m.s.settings == nil {
		return nil, nil
	}
	settings := m.s.settings.Clone()
	return &settings, nil
}

// Save replaces the stored settings
func (m *MemorySettings) Save(ctx context.Context, settings domain.Settings) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if tx := txFrom(ctx); tx != nil {
		prev := m.s.settings
		tx.undo = append(tx.undo, func() { m.s.settings = prev })
	}
	stored := settings.Clone()
	m.s.settings = &stored
	return nil
}

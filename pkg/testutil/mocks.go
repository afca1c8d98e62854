package testutil

import (
	"context"
	"regexp"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/medflow/medflow-attendance/pkg/database"
	"github.com/medflow/medflow-attendance/pkg/logger"
)

// MockDB is a sqlmock connection for repository unit tests. Queries are
// matched literally, not as regular expressions.
//
//	mockDB := testutil.NewMockDB(t)
//	defer mockDB.Close()
//	mockDB.ExpectQuery("SELECT id FROM attendance_adjustment_requests").WillReturnRows(rows)
//	repo := repository.NewAdjustmentRepository(mockDB.Database(), time.UTC)
type MockDB struct {
	DB   *sqlx.DB
	Mock sqlmock.Sqlmock
}

// NewMockDB opens a sqlmock connection with the postgres driver name, so
// sqlx rebinds placeholders the way it does in production
func NewMockDB(t *testing.T) *MockDB {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	return &MockDB{DB: sqlx.NewDb(db, "postgres"), Mock: mock}
}

// Database wraps the connection in the application's database type
func (m *MockDB) Database() *database.DB {
	return database.Wrap(m.DB, logger.NewNop())
}

func (m *MockDB) Close() error {
	return m.DB.Close()
}

func (m *MockDB) ExpectQuery(query string) *sqlmock.ExpectedQuery {
	return m.Mock.ExpectQuery(regexp.QuoteMeta(query))
}

func (m *MockDB) ExpectExec(query string) *sqlmock.ExpectedExec {
	return m.Mock.ExpectExec(regexp.QuoteMeta(query))
}

// ExpectationsWereMet fails t when an expected statement never ran
func (m *MockDB) ExpectationsWereMet(t *testing.T) {
	t.Helper()
	if err := m.Mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled sqlmock expectations: %v", err)
	}
}

// PublishedEvent is one call recorded by MockPublisher
type PublishedEvent struct {
	Type    string
	Payload interface{}
}

// MockPublisher records publishes in memory. While an error is set every
// publish fails with it and nothing is recorded.
type MockPublisher struct {
	mu        sync.Mutex
	published []PublishedEvent
	err       error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, PublishedEvent{Type: eventType, Payload: payload})
	return nil
}

// SetErr makes subsequent publishes fail with err; nil restores success
func (m *MockPublisher) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Events returns a snapshot of the recorded publishes, oldest first
func (m *MockPublisher) Events() []PublishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PublishedEvent(nil), m.published...)
}

// Count returns how many events of eventType were recorded
func (m *MockPublisher) Count(eventType string) int {
	n := 0
	for _, e := range m.Events() {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

func (m *MockPublisher) AssertNoEventsPublished(t *testing.T) {
	t.Helper()
	if events := m.Events(); len(events) > 0 {
		t.Errorf("expected no published events, got %d: %+v", len(events), events)
	}
}

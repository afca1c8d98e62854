package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/medflow/medflow-attendance/pkg/database"
	"github.com/medflow/medflow-attendance/pkg/logger"
)

var (
	// shared by every integration test in the test binary
	sharedContainer *PostgresContainer
	containerOnce   sync.Once
	containerErr    error
)

// IntegrationSuite provides a base for integration tests with real PostgreSQL
type IntegrationSuite struct {
	Container *PostgresContainer
	DB        *database.DB
	Fixtures  *FixtureFactory
	Logger    *logger.Logger
}

// NewIntegrationSuite starts (once per test binary) a PostgreSQL container
// with the attendance schema. Call it from TestMain:
//
//	func TestMain(m *testing.M) {
//	    ctx := context.Background()
//	    s, err := testutil.NewIntegrationSuite(ctx)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    suite = s
//	    code := m.Run()
//	    testutil.TerminateContainer(ctx)
//	    os.Exit(code)
//	}
func NewIntegrationSuite(ctx context.Context) (*IntegrationSuite, error) {
	containerOnce.Do(func() {
		sharedContainer, containerErr = NewPostgresContainer(ctx, DefaultPostgresConfig())
	})
	if containerErr != nil {
		return nil, containerErr
	}

	log := logger.New("attendance-service-test", "test", "warn")
	db, err := database.NewWithDSN(sharedContainer.DSN, log)
	if err != nil {
		return nil, err
	}

	return &IntegrationSuite{
		Container: sharedContainer,
		DB:        db,
		Fixtures:  NewFixtureFactory(),
		Logger:    log,
	}, nil
}

// Reset truncates every attendance table so each test starts empty
func (s *IntegrationSuite) Reset(t *testing.T, ctx context.Context) {
	t.Helper()

	stmt := fmt.Sprintf("TRUNCATE %s CASCADE", strings.Join(AttendanceTables(), ", "))
	if _, err := s.Container.DB.ExecContext(ctx, stmt); err != nil {
		t.Fatalf("failed to reset attendance tables: %v", err)
	}
}

// Cleanup closes the suite's connection pool. The shared container keeps
// running until TerminateContainer.
func (s *IntegrationSuite) Cleanup(ctx context.Context) error {
	return s.DB.Close()
}

// TerminateContainer removes the shared container. Only call it from
// TestMain after m.Run.
func TerminateContainer(ctx context.Context) {
	if sharedContainer != nil {
		sharedContainer.Terminate(ctx)
	}
}

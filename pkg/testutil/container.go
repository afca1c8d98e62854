// Package testutil provides testing utilities for the attendance service.
// It includes a PostgreSQL testcontainer carrying the service schema, mock
// factories, and common test fixtures.
package testutil

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// imageEnv overrides the PostgreSQL image used by integration tests
const imageEnv = "ATTENDANCE_TEST_POSTGRES_IMAGE"

// PostgresContainer is a disposable PostgreSQL instance with an open pool
type PostgresContainer struct {
	*postgres.PostgresContainer
	DSN string
	DB  *sqlx.DB
}

// PostgresContainerConfig configures the test PostgreSQL container
type PostgresContainerConfig struct {
	Database string
	Username string
	Password string
	Image    string
}

// DefaultPostgresConfig returns the integration test defaults. The image
// can be overridden with ATTENDANCE_TEST_POSTGRES_IMAGE.
func DefaultPostgresConfig() PostgresContainerConfig {
	image := os.Getenv(imageEnv)
	if image == "" {
		image = "postgres:15-alpine"
	}
	return PostgresContainerConfig{
		Database: "medflow_attendance_test",
		Username: "test",
		Password: "test",
		Image:    image,
	}
}

// NewPostgresContainer starts PostgreSQL, connects to it and applies the
// attendance schema.
func NewPostgresContainer(ctx context.Context, cfg PostgresContainerConfig) (*PostgresContainer, error) {
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage(cfg.Image),
		postgres.WithDatabase(cfg.Database),
		postgres.WithUsername(cfg.Username),
		postgres.WithPassword(cfg.Password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	c := &PostgresContainer{PostgresContainer: container}
	if err := c.init(ctx); err != nil {
		container.Terminate(ctx)
		return nil, err
	}
	return c, nil
}

func (c *PostgresContainer) init(ctx context.Context) error {
	dsn, err := c.ConnectionString(ctx, "sslmode=disable", "timezone=UTC")
	if err != nil {
		return fmt.Errorf("failed to get connection string: %w", err)
	}
	c.DSN = dsn

	c.DB, err = sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to test database: %w", err)
	}

	for i, stmt := range AttendanceMigrations() {
		if _, err := c.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", i+1, err)
		}
	}
	return nil
}

// Terminate closes the pool and removes the container
func (c *PostgresContainer) Terminate(ctx context.Context) error {
	if c.DB != nil {
		c.DB.Close()
	}
	return c.PostgresContainer.Terminate(ctx)
}

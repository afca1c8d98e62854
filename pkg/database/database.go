package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/medflow/medflow-attendance/pkg/config"
	"github.com/medflow/medflow-attendance/pkg/logger"
)

const driverName = "postgres"

// DB is the PostgreSQL pool behind the attendance repositories. Repositories
// query through Executor so they join a transaction opened by WithinTx.
type DB struct {
	*sqlx.DB
	logger *logger.Logger
}

// New connects with the service configuration and applies its pool limits
func New(cfg *config.DatabaseConfig, log *logger.Logger) (*DB, error) {
	db, err := connect(cfg.DSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return Wrap(db, log), nil
}

// NewWithDSN connects to dsn with the driver's default pool
func NewWithDSN(dsn string, log *logger.Logger) (*DB, error) {
	db, err := connect(dsn)
	if err != nil {
		return nil, err
	}
	return Wrap(db, log), nil
}

// Wrap adopts an existing sqlx handle, e.g. a sqlmock connection in tests
func Wrap(db *sqlx.DB, log *logger.Logger) *DB {
	return &DB{
		DB:     db,
		logger: log,
	}
}

func connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// Health pings the database and reports pool usage
func (db *DB) Health(ctx context.Context) map[string]interface{} {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	stats := db.Stats()
	status := map[string]interface{}{
		"status":           "up",
		"open_connections": stats.OpenConnections,
		"in_use":           stats.InUse,
	}

	if err := db.PingContext(ctx); err != nil {
		status["status"] = "down"
		status["error"] = err.Error()
	}

	return status
}

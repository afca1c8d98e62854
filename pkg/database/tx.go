package database

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type txKey struct{}

// Executor is the query surface shared by *sqlx.DB and *sqlx.Tx.
type Executor interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// WithinTx runs fn inside a transaction carried by the context, so that
// repositories called from fn share it through Executor.
//
// Usage in services:
//
//	err := db.WithinTx(ctx, func(ctx context.Context) error {
//	    if err := eventRepo.UpdateEvent(ctx, id, update); err != nil {
//	        return err
//	    }
//	    return requestRepo.UpdateStatus(ctx, req)
//	})
//
// A nested call joins the outer transaction instead of opening a new one.
// The transaction is rolled back when fn returns an error or panics.
func (db *DB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if db.getTx(ctx) != nil {
		return fn(ctx)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			db.rollback(tx)
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		db.rollback(tx)
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Executor returns the transaction stored in ctx, or the pool when there is none.
func (db *DB) Executor(ctx context.Context) Executor {
	if tx := db.getTx(ctx); tx != nil {
		return tx
	}
	return db.DB
}

func (db *DB) getTx(ctx context.Context) *sqlx.Tx {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return nil
}

func (db *DB) rollback(tx *sqlx.Tx) {
	if err := tx.Rollback(); err != nil && !stderrors.Is(err, sql.ErrTxDone) {
		db.logger.Error().Err(err).Msg("failed to rollback transaction")
	}
}

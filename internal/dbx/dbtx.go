// Package dbx holds the transaction helpers of the SQL object store.
package dbx

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sethvargo/go-retry"
)

// DBTX is implemented by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLSTATEs after which a whole transaction may be replayed.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

var txRetryBackoff = 10 * time.Millisecond

// WithTx runs fn inside one transaction. It commits when fn succeeds and
// rolls back when fn fails or panics; panics are re-raised.
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	return fn(ctx, tx)
}

// Retryable reports whether err is a serialization failure or deadlock.
func Retryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected
}

// WithRetryTx is WithTx replayed while it fails with a retryable conflict,
// at most attempts times in total. fn must be safe to run more than once.
func WithRetryTx(ctx context.Context, db *sql.DB, attempts int, fn func(ctx context.Context, tx DBTX) error) error {
	if attempts < 1 {
		attempts = 1
	}
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewExponential(txRetryBackoff))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := WithTx(ctx, db, nil, fn)
		if Retryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

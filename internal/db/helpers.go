package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log"

	"github.com/go-sql-driver/mysql"
)

// MySQL server error numbers the ledger reacts to.
const (
	errDuplicateEntry  = 1062
	errLockWaitTimeout = 1205
	errNoReferencedRow = 1452
	errDeadlock        = 1213
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so repositories can run inside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// MaxTxAttempts bounds retries of a transaction aborted by a deadlock or lock wait timeout.
const MaxTxAttempts = 3

// WithTx runs fn inside a transaction, committing on nil and rolling back otherwise.
// Deadlocks and lock wait timeouts restart the whole transaction.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	if db == nil {
		return fmt.Errorf("database not connected")
	}

	var err error
	for attempt := 1; attempt <= MaxTxAttempts; attempt++ {
		err = runTx(ctx, db, fn)
		if err == nil || !IsRetryable(err) {
			return err
		}
		log.Printf("[DB] transaction attempt %d/%d aborted: %v", attempt, MaxTxAttempts, err)
	}
	return err
}

func runTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func mysqlErrorNumber(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

// IsDuplicateKey reports a unique constraint violation.
func IsDuplicateKey(err error) bool {
	return mysqlErrorNumber(err) == errDuplicateEntry
}

// IsMissingReference reports an insert whose foreign key points at no row.
func IsMissingReference(err error) bool {
	return mysqlErrorNumber(err) == errNoReferencedRow
}

// IsRetryable reports errors after which the transaction may simply be run again.
func IsRetryable(err error) bool {
	switch mysqlErrorNumber(err) {
	case errDeadlock, errLockWaitTimeout:
		return true
	}
	return false
}

// HasTable reports whether table exists in the current schema.
func HasTable(ctx context.Context, q DBTX, table string) bool {
	var name sql.NullString
	err := q.QueryRowContext(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = DATABASE()
		  AND table_name = ?
		LIMIT 1
	`, table).Scan(&name)
	if err != nil {
		if errors.Is(err, driver.ErrBadConn) {
			log.Println("[DB] HasTable: driver.ErrBadConn")
		}
		return false
	}
	return name.Valid && name.String != ""
}

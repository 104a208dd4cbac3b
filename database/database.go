// Package database defines the transactional handle a scope owns and an
// implementation over database/sql.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrTxDone is returned when committing or rolling back a resolved transaction.
	ErrTxDone = errors.New("transaction already resolved")
	// ErrUnknownDialect is returned for an unsupported driver name.
	ErrUnknownDialect = errors.New("unknown database dialect")
)

// Dialect names a database flavour.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
	DialectLibSQL   Dialect = "libsql"
)

// DriverName returns the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	return string(d)
}

// Placeholder returns the parameter placeholder for the given 1-based position.
// PostgreSQL: $1, $2, etc.
// SQLite: ?, ?, etc.
func (d Dialect) Placeholder(position int) string {
	if d == DialectPostgres {
		return "$" + strconv.Itoa(position)
	}

	return "?"
}

// ParseDialect validates a driver name.
func ParseDialect(name string) (Dialect, error) {
	switch d := Dialect(name); d {
	case DialectSQLite, DialectPostgres, DialectLibSQL:
		return d, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDialect, name)
	}
}

// Executor runs statements.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Transaction is the handle owned by a root scope.
type Transaction interface {
	Executor

	// Commit makes the work durable. It fails with ErrTxDone when the
	// transaction was already resolved.
	Commit() error
	// Rollback discards the work. It fails with ErrTxDone when the
	// transaction was already resolved.
	Rollback() error
	// Close disposes the handle, rolling back unresolved work. It is idempotent.
	Close() error
	// IsolationLevel reports the level the transaction actually runs at.
	IsolationLevel() IsolationLevel
	// Dialect reports the database flavour.
	Dialect() Dialect
}

// Factory opens transactions.
type Factory interface {
	Begin(ctx context.Context, level IsolationLevel) (Transaction, error)
}

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/amp-labs/amp-uow/closer"
	"github.com/amp-labs/amp-uow/logger"
	"github.com/amp-labs/amp-uow/should"
	"go.uber.org/atomic"
)

// Config describes how to open a database.
type Config struct {
	Dialect      Dialect
	DSN          string
	MaxOpenConns int
}

// SQLFactory opens transactions on a *sql.DB.
type SQLFactory struct {
	db      *sql.DB
	dialect Dialect
}

var _ Factory = (*SQLFactory)(nil)

// Open opens a database. The driver for the dialect must be registered, see
// package drivers.
func Open(ctx context.Context, cfg Config) (*SQLFactory, error) {
	if _, err := ParseDialect(string(cfg.Dialect)); err != nil {
		return nil, err
	}

	db, err := sql.Open(cfg.Dialect.DriverName(), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Dialect, err)
	}

	switch {
	case cfg.MaxOpenConns > 0:
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	case cfg.Dialect == DialectSQLite && isMemoryDSN(cfg.DSN):
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		should.Close(ctx, db, "closing unreachable database")

		return nil, fmt.Errorf("ping %s database: %w", cfg.Dialect, err)
	}

	logger.Get(ctx).Info("database opened", "dialect", string(cfg.Dialect))

	return &SQLFactory{db: db, dialect: cfg.Dialect}, nil
}

// NewSQLFactory wraps an already opened database.
func NewSQLFactory(db *sql.DB, dialect Dialect) *SQLFactory {
	return &SQLFactory{db: db, dialect: dialect}
}

func isMemoryDSN(dsn string) bool {
	return dsn == "" || strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// DB returns the underlying pool.
func (f *SQLFactory) DB() *sql.DB {
	return f.db
}

// Dialect returns the database flavour.
func (f *SQLFactory) Dialect() Dialect {
	return f.dialect
}

// Close closes the pool.
func (f *SQLFactory) Close() error {
	return f.db.Close()
}

// Begin starts a transaction. SQLite flavours only run serializable
// transactions, so they always begin with the driver default and report
// Serializable.
func (f *SQLFactory) Begin(ctx context.Context, level IsolationLevel) (Transaction, error) {
	opts := &sql.TxOptions{Isolation: level.SQL()}
	effective := level

	switch f.dialect {
	case DialectSQLite, DialectLibSQL:
		opts.Isolation = sql.LevelDefault
		effective = Serializable
	case DialectPostgres:
		if level == Unspecified {
			effective = ReadCommitted
		}
	}

	tx, err := f.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("begin %s transaction: %w", f.dialect, err)
	}

	logger.Get(ctx).Debug("transaction started",
		"dialect", string(f.dialect),
		"isolation", effective.String())

	t := &sqlTx{tx: tx, level: effective, dialect: f.dialect}
	t.closer = closer.CloseOnce(closer.CustomCloser(t.rollbackOpen))

	return t, nil
}

type sqlTx struct {
	tx       *sql.Tx
	level    IsolationLevel
	dialect  Dialect
	resolved atomic.Bool
	closer   io.Closer
}

func (t *sqlTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	logger.Trace(ctx, "exec", "sql", query, "args", len(args))

	return t.tx.ExecContext(ctx, query, args...)
}

func (t *sqlTx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	logger.Trace(ctx, "query", "sql", query, "args", len(args))

	return t.tx.QueryContext(ctx, query, args...)
}

func (t *sqlTx) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	logger.Trace(ctx, "query row", "sql", query, "args", len(args))

	return t.tx.QueryRowContext(ctx, query, args...)
}

func (t *sqlTx) Commit() error {
	if !t.resolved.CompareAndSwap(false, true) {
		return ErrTxDone
	}

	return t.tx.Commit()
}

func (t *sqlTx) Rollback() error {
	if !t.resolved.CompareAndSwap(false, true) {
		return ErrTxDone
	}

	// database/sql already rolled back when the begin context ended
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}

	return nil
}

// Close rolls back an unresolved transaction. Calls after a successful Close
// do nothing.
func (t *sqlTx) Close() error {
	return t.closer.Close()
}

func (t *sqlTx) rollbackOpen() error {
	if err := t.Rollback(); err != nil && !errors.Is(err, ErrTxDone) {
		return err
	}

	return nil
}

func (t *sqlTx) IsolationLevel() IsolationLevel {
	return t.level
}

func (t *sqlTx) Dialect() Dialect {
	return t.dialect
}

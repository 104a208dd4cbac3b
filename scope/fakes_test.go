package scope

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/amp-labs/amp-uow/database"
)

var (
	errCommit = errors.New("commit failed")
	errBegin  = errors.New("begin failed")
)

type fakeTx struct {
	mu        sync.Mutex
	level     database.IsolationLevel
	commitErr error
	commits   int
	rollbacks int
	closes    int
	resolved  bool
}

func (f *fakeTx) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, nil //nolint:nilnil
}

func (f *fakeTx) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, nil //nolint:nilnil
}

func (f *fakeTx) QueryRowContext(context.Context, string, ...any) *sql.Row {
	return nil
}

func (f *fakeTx) Commit() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.resolved {
		return database.ErrTxDone
	}

	f.resolved = true
	f.commits++

	return f.commitErr
}

func (f *fakeTx) Rollback() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.resolved {
		return database.ErrTxDone
	}

	f.resolved = true
	f.rollbacks++

	return nil
}

func (f *fakeTx) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closes++

	return nil
}

func (f *fakeTx) IsolationLevel() database.IsolationLevel {
	return f.level
}

func (f *fakeTx) Dialect() database.Dialect {
	return database.DialectSQLite
}

func (f *fakeTx) counts() (commits, rollbacks, closes int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.commits, f.rollbacks, f.closes
}

type fakeFactory struct {
	mu        sync.Mutex
	begun     []*fakeTx
	commitErr error
	beginErr  error
}

func (f *fakeFactory) Begin(_ context.Context, level database.IsolationLevel) (database.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.beginErr != nil {
		return nil, f.beginErr
	}

	tx := &fakeTx{level: level, commitErr: f.commitErr}
	f.begun = append(f.begun, tx)

	return tx, nil
}

func (f *fakeFactory) last() *fakeTx {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.begun) == 0 {
		return nil
	}

	return f.begun[len(f.begun)-1]
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.begun)
}

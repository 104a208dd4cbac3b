package migration

import (
	"context"

	"github.com/amp-labs/amp-uow/database"
	"go.uber.org/atomic"
)

type statement struct {
	sql  string
	args []any
}

// Expression is an ordered group of statements. It runs at most once.
type Expression struct {
	statements []statement
	executed   atomic.Bool
}

// NewExpression returns an expression running the given statement.
func NewExpression(sql string, args ...any) *Expression {
	return &Expression{statements: []statement{{sql: sql, args: args}}}
}

// Executed reports whether the expression ran.
func (e *Expression) Executed() bool {
	return e.executed.Load()
}

// Execute runs every statement on exec.
func (e *Expression) Execute(ctx context.Context, exec database.Executor) error {
	if !e.executed.CompareAndSwap(false, true) {
		return ErrExpressionExecuted
	}

	for _, stmt := range e.statements {
		if _, err := exec.ExecContext(ctx, stmt.sql, stmt.args...); err != nil {
			return err
		}
	}

	return nil
}

// ExpressionBuilder collects statements for one expression.
type ExpressionBuilder struct {
	mctx       *Context
	statements []statement
	done       bool
}

// SQL adds a statement.
func (b *ExpressionBuilder) SQL(sql string, args ...any) *ExpressionBuilder {
	b.statements = append(b.statements, statement{sql: sql, args: args})

	return b
}

// Do queues the expression on its context.
func (b *ExpressionBuilder) Do() error {
	if b.done {
		return ErrExpressionExecuted
	}

	b.done = true

	b.mctx.mu.Lock()
	defer b.mctx.mu.Unlock()

	b.mctx.building = false
	b.mctx.queue = append(b.mctx.queue, &Expression{statements: b.statements})

	return nil
}

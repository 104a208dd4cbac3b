package migration

import (
	"context"
	"fmt"
	"sync"

	"github.com/amp-labs/amp-uow/database"
	"github.com/amp-labs/amp-uow/logger"
	"go.uber.org/atomic"
)

// Context is the environment of one running transition.
type Context struct {
	plan       *Plan
	transition Transition
	db         database.Transaction

	mu         sync.Mutex
	queue      []*Expression
	building   bool
	index      atomic.Int64
	onComplete func()
	completed  atomic.Bool
}

// NewContext returns the context a transition of plan runs with, on db.
func NewContext(plan *Plan, transition Transition, db database.Transaction) *Context {
	return &Context{plan: plan, transition: transition, db: db}
}

// Plan returns the plan being executed.
func (c *Context) Plan() *Plan {
	return c.plan
}

// Transition returns the transition being executed.
func (c *Context) Transition() Transition {
	return c.transition
}

// Database returns the live transaction.
func (c *Context) Database() database.Transaction {
	return c.db
}

// Index returns the number of expressions executed so far.
func (c *Context) Index() int64 {
	return c.index.Load()
}

// BuildingExpression reports whether an expression is being built.
func (c *Context) BuildingExpression() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.building
}

// OnComplete sets the action Complete runs.
func (c *Context) OnComplete(action func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.onComplete = action
}

// Complete runs the completion action. Only the first call has an effect.
func (c *Context) Complete() {
	if !c.completed.CompareAndSwap(false, true) {
		return
	}

	c.mu.Lock()
	action := c.onComplete
	c.mu.Unlock()

	if action != nil {
		action()
	}
}

// Completed reports whether Complete was called.
func (c *Context) Completed() bool {
	return c.completed.Load()
}

// Execute queues one SQL statement.
func (c *Context) Execute(sql string, args ...any) error {
	b, err := c.Build()
	if err != nil {
		return err
	}

	return b.SQL(sql, args...).Do()
}

// Append queues an expression.
func (c *Context) Append(e *Expression) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.building {
		return ErrExpressionInProgress
	}

	c.queue = append(c.queue, e)

	return nil
}

// Build starts an expression. Only one expression can be built at a time.
func (c *Context) Build() (*ExpressionBuilder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.building {
		return nil, ErrExpressionInProgress
	}

	c.building = true

	return &ExpressionBuilder{mctx: c}, nil
}

// Pending returns the number of queued expressions.
func (c *Context) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.queue)
}

// runQueue executes the queued expressions in order. Expressions queued by
// running expressions are executed too.
func (c *Context) runQueue(ctx context.Context) error {
	for {
		c.mu.Lock()

		if c.building {
			c.mu.Unlock()

			return ErrExpressionNotFinished
		}

		if len(c.queue) == 0 {
			c.mu.Unlock()

			return nil
		}

		next := c.queue[0]
		c.queue = c.queue[1:]
		c.mu.Unlock()

		index := c.index.Inc()

		logger.Trace(ctx, "migration expression", "index", index, "statements", len(next.statements))

		if err := next.Execute(ctx, c.db); err != nil {
			return fmt.Errorf("expression %d: %w", index, err)
		}
	}
}

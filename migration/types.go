// Package migration runs ordered, resumable schema migrations.
//
// A Plan is a directed graph of named states. Each state has at most one
// outgoing Transition, which names the migration type that moves the schema
// from the source to the target state. A valid plan has exactly one final
// state (a state without outgoing transition) and no cycles. The Executor
// walks the plan from a persisted state to the final state, running every
// migration inside a scope.
package migration

import "context"

// Type names a migration unit. Types are resolved to constructors by a Registry.
type Type string

// NoopType is the migration that does nothing. It is used for transitions
// that only rename a state.
const NoopType Type = "noop"

// Transition is an edge of a plan.
type Transition struct {
	Source string
	Target string
	Type   Type
}

func (t Transition) String() string {
	return string(t.Type) + " (" + t.Source + " -> " + t.Target + ")"
}

// Migration is one migration unit. Migrate runs the primary effect and may
// queue further expressions on mctx, which run in order once Migrate returns.
type Migration interface {
	Migrate(ctx context.Context, mctx *Context) error
}

// MigrationFunc adapts a function to Migration.
type MigrationFunc func(ctx context.Context, mctx *Context) error

func (f MigrationFunc) Migrate(ctx context.Context, mctx *Context) error {
	return f(ctx, mctx)
}

// noop is the NoopType migration.
type noop struct{}

func (noop) Migrate(context.Context, *Context) error {
	return nil
}

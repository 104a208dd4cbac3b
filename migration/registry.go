package migration

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/atomic"
)

// Constructor builds a migration for one transition.
type Constructor func(mctx *Context) (Migration, error)

// Builder turns a migration type into a runnable unit.
type Builder interface {
	Build(migrationType Type, mctx *Context) (*Unit, error)
}

// Registry resolves migration types to constructors. NoopType is always registered.
type Registry struct {
	mu           sync.RWMutex
	constructors map[Type]Constructor
}

var _ Builder = (*Registry)(nil)

// NewRegistry returns a registry knowing only NoopType.
func NewRegistry() *Registry {
	r := &Registry{constructors: make(map[Type]Constructor)}
	r.Register(NoopType, func(*Context) (Migration, error) { return noop{}, nil })

	return r
}

// Register adds or replaces the constructor of a type.
func (r *Registry) Register(migrationType Type, constructor Constructor) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.constructors[migrationType] = constructor

	return r
}

// RegisterFunc registers a migration that does not need construction.
func (r *Registry) RegisterFunc(migrationType Type, fn func(ctx context.Context, mctx *Context) error) *Registry {
	return r.Register(migrationType, func(*Context) (Migration, error) {
		return MigrationFunc(fn), nil
	})
}

// Has reports whether a type is registered.
func (r *Registry) Has(migrationType Type) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.constructors[migrationType]

	return ok
}

// Types lists the registered types, sorted.
func (r *Registry) Types() []Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Type, 0, len(r.constructors))
	for t := range r.constructors {
		out = append(out, t)
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out
}

// Build constructs the migration of migrationType for mctx.
func (r *Registry) Build(migrationType Type, mctx *Context) (*Unit, error) {
	r.mu.RLock()
	constructor, ok := r.constructors[migrationType]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMigrationType, migrationType)
	}

	m, err := constructor(mctx)
	if err != nil {
		return nil, fmt.Errorf("building %q: %w", migrationType, err)
	}

	return &Unit{Type: migrationType, migration: m, mctx: mctx}, nil
}

// Unit is a built migration bound to its context. It runs at most once.
type Unit struct {
	Type      Type
	migration Migration
	mctx      *Context
	executed  atomic.Bool
}

// Run runs the migration, then its queued expressions.
func (u *Unit) Run(ctx context.Context) error {
	if !u.executed.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: %q", ErrMigrationExecuted, u.Type)
	}

	if err := u.migration.Migrate(ctx, u.mctx); err != nil {
		return err
	}

	return u.mctx.runQueue(ctx)
}

package scope

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/amp-labs/amp-uow/ambient"
	"github.com/amp-labs/amp-uow/database"
	"github.com/amp-labs/amp-uow/notify"
	"github.com/amp-labs/amp-uow/shadowfs"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"
)

// Scope is one unit of work. Root scopes own the transaction, nested scopes
// share their root's.
type Scope struct {
	id           uuid.UUID
	provider     *Provider
	parent       *Scope
	chain        *ambient.Chain
	detachable   bool
	isolation    database.IsolationLevel
	cacheMode    CacheMode
	autoComplete bool
	created      time.Time
	span         trace.Span

	mu           sync.Mutex
	completed    *bool
	childAborted bool
	tx           database.Transaction
	scopeContext *Context
	ownsContext  bool
	attached     bool
	origScope    *Scope
	origContext  *Context
	members      []uuid.UUID
	shadow       *shadowfs.Shadow
	batch        *notify.Batch

	locks    ledger
	disposed atomic.Bool
}

// ID identifies the scope instance.
func (s *Scope) ID() uuid.UUID {
	return s.id
}

// Parent returns the enclosing scope, nil for a root scope.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// IsRoot reports whether the scope owns the transaction.
func (s *Scope) IsRoot() bool {
	return s.parent == nil
}

// Detachable reports whether the scope was created with CreateDetachedScope.
func (s *Scope) Detachable() bool {
	return s.detachable
}

// Attached reports whether a detachable scope is currently ambient.
func (s *Scope) Attached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.attached
}

// Disposed reports whether Dispose has run.
func (s *Scope) Disposed() bool {
	return s.disposed.Load()
}

func (s *Scope) root() *Scope {
	r := s
	for r.parent != nil {
		r = r.parent
	}

	return r
}

func (s *Scope) kind() string {
	switch {
	case s.detachable:
		return "detached"
	case s.parent == nil:
		return "root"
	default:
		return "nested"
	}
}

func (s *Scope) addMember(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.members = append(s.members, id)
}

// IsolationLevel returns the requested level, inherited from the parent when
// unspecified, falling back to the provider default.
func (s *Scope) IsolationLevel() database.IsolationLevel {
	if s.isolation != database.Unspecified {
		return s.isolation
	}

	if s.parent != nil {
		return s.parent.IsolationLevel()
	}

	return s.provider.defaultIsolation
}

// CacheMode returns the requested cache mode, inherited from the parent when
// unspecified.
func (s *Scope) CacheMode() CacheMode {
	if s.cacheMode != CacheUnspecified {
		return s.cacheMode
	}

	if s.parent != nil {
		return s.parent.CacheMode()
	}

	return CacheDefault
}

// Context returns the scope context of the chain: the root's own, or the one
// ambient when the root was created.
func (s *Scope) Context() *Context {
	r := s.root()

	r.mu.Lock()
	sc := r.scopeContext
	chain := r.chain
	r.mu.Unlock()

	if sc != nil || chain == nil {
		return sc
	}

	stack, err := contextStack(chain)
	if err != nil {
		return nil
	}

	sc, _ = stack.Peek()

	return sc
}

// Complete marks the scope for commit. The last of Complete and Abort before
// Dispose wins.
func (s *Scope) Complete() {
	s.setCompleted(true)
}

// Abort marks the scope for rollback.
func (s *Scope) Abort() {
	s.setCompleted(false)
}

func (s *Scope) setCompleted(value bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.completed = &value
}

// Completed returns the completion decision: nil while undecided. A scope
// with a nested scope that did not complete reports false.
func (s *Scope) Completed() *bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.childAborted {
		value := false

		return &value
	}

	if s.completed == nil {
		return nil
	}

	value := *s.completed

	return &value
}

func (s *Scope) childCompleted(completed bool) {
	if completed {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.childAborted = true
}

// Database returns the chain's transaction, beginning it on first use, and
// acquires the locks queued on this scope.
func (s *Scope) Database(ctx context.Context) (database.Transaction, error) {
	if s.disposed.Load() {
		return nil, ErrDisposed
	}

	var (
		tx  database.Transaction
		err error
	)

	if s.parent != nil {
		tx, err = s.parent.Database(ctx)
		if err != nil {
			return nil, err
		}

		if s.isolation != database.Unspecified && tx.IsolationLevel().Weaker(s.isolation) {
			return nil, fmt.Errorf("%w: scope asks for %s but the transaction runs at %s",
				ErrIsolationConflict, s.isolation, tx.IsolationLevel())
		}
	} else {
		tx, err = s.begin(ctx)
		if err != nil {
			return nil, err
		}
	}

	if err := s.acquireQueued(ctx, tx); err != nil {
		return nil, err
	}

	return tx, nil
}

func (s *Scope) begin(ctx context.Context) (database.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tx != nil {
		return s.tx, nil
	}

	// the transaction ends only through disposal, never through ctx
	tx, err := s.provider.factory.Begin(context.WithoutCancel(ctx), s.IsolationLevel())
	if err != nil {
		return nil, fmt.Errorf("scope %s: %w", s.id, err)
	}

	s.tx = tx

	return tx, nil
}

// Files returns the shadowed file systems of the chain.
func (s *Scope) Files() (*shadowfs.Shadow, error) {
	if s.disposed.Load() {
		return nil, ErrDisposed
	}

	if shadow := s.root().shadow; shadow != nil {
		return shadow, nil
	}

	return nil, ErrNoFileSystems
}

// Notify queues n until the root scope commits.
func (s *Scope) Notify(n notify.Notification) error {
	if s.disposed.Load() {
		return ErrDisposed
	}

	batch := s.root().batch
	if batch == nil {
		return ErrNoPublisher
	}

	batch.Queue(n)

	return nil
}

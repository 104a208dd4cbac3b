package scope

import (
	"context"
	"fmt"
	"sync"

	"github.com/amp-labs/amp-uow/database"
	"github.com/amp-labs/amp-uow/locks"
)

type pendingLock struct {
	name string
	mode locks.Mode
}

// ledger holds the lock requests of one scope that are not granted yet.
type ledger struct {
	mu      sync.Mutex
	pending []pendingLock
}

func (l *ledger) queue(mode locks.Mode, names ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, name := range names {
		l.pending = append(l.pending, pendingLock{name: name, mode: mode})
	}
}

func (l *ledger) take() []pendingLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := l.pending
	l.pending = nil

	return out
}

func (l *ledger) requeue(rest []pendingLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.pending = append(rest, l.pending...)
}

func (l *ledger) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.pending)
}

// ReadLock acquires read locks right away, beginning the transaction if needed.
func (s *Scope) ReadLock(ctx context.Context, names ...string) error {
	if s.disposed.Load() {
		return ErrDisposed
	}

	s.locks.queue(locks.Read, names...)

	_, err := s.Database(ctx)

	return err
}

// WriteLock acquires write locks right away, beginning the transaction if needed.
func (s *Scope) WriteLock(ctx context.Context, names ...string) error {
	if s.disposed.Load() {
		return ErrDisposed
	}

	s.locks.queue(locks.Write, names...)

	_, err := s.Database(ctx)

	return err
}

// EagerReadLock queues read locks acquired by the next Database call.
func (s *Scope) EagerReadLock(names ...string) {
	s.locks.queue(locks.Read, names...)
}

// EagerWriteLock queues write locks acquired by the next Database call.
func (s *Scope) EagerWriteLock(names ...string) {
	s.locks.queue(locks.Write, names...)
}

// PendingLocks returns the number of queued lock requests not granted yet.
func (s *Scope) PendingLocks() int {
	return s.locks.len()
}

func (s *Scope) acquireQueued(ctx context.Context, exec database.Executor) error {
	pending := s.locks.take()
	if len(pending) == 0 {
		return nil
	}

	group := s.root().id

	for i, p := range pending {
		err := s.provider.locks.Acquire(ctx, locks.Request{
			Group:   group,
			Owner:   s.id,
			Name:    p.name,
			Mode:    p.mode,
			Timeout: s.provider.lockTimeout,
			Exec:    exec,
		})
		if err != nil {
			s.locks.requeue(pending[i:])

			return fmt.Errorf("scope %s: %w", s.id, err)
		}

		s.provider.scopeLogger(ctx, s.id).Debug("scope lock acquired",
			"lock", p.name, "mode", p.mode.String())
	}

	return nil
}

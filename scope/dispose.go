package scope

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amp-labs/amp-uow/ambient"
	"github.com/amp-labs/amp-uow/closer"
	errs "github.com/amp-labs/amp-uow/errors"
	"github.com/amp-labs/amp-uow/logger"
	"github.com/google/uuid"
)

// Dispose ends the scope. It must be the ambient scope. Nested scopes release
// their locks and hand their completion decision to the parent. Root scopes
// commit when they and every nested scope completed, roll back otherwise,
// and then run every cleanup step, collecting failures.
func (s *Scope) Dispose(ctx context.Context) error {
	if s.disposed.Load() {
		return ErrDisposed
	}

	if err := s.pop(); err != nil {
		return err
	}

	s.disposed.Store(true)

	// cleanup must finish even when the caller's context is already done
	ctx = context.WithoutCancel(ctx)

	completed := s.decide()

	if s.parent != nil {
		s.parent.childCompleted(completed)

		err := s.provider.locks.ReleaseAll(ctx, s.id)

		s.provider.scopeLogger(ctx, s.id).Info("scope disposed",
			"parent_id", s.parent.id.String(),
			"completed", completed)

		return err
	}

	return s.disposeRoot(ctx, completed)
}

func (s *Scope) pop() error {
	if s.detachable && !s.Attached() {
		return fmt.Errorf("%w: detachable scope %s is not attached", ErrNotAmbient, s.id)
	}

	if s.chain == nil {
		return fmt.Errorf("%w: scope %s", ErrNotAmbient, s.id)
	}

	stack, err := ambient.StackOf[*Scope](s.chain, scopeStackName)
	if err != nil {
		return err
	}

	if _, err := stack.PopIf(func(top *Scope) bool { return top == s }); err != nil {
		return fmt.Errorf("%w: scope %s: %w", ErrNotAmbient, s.id, err)
	}

	return nil
}

// decide applies auto-complete and folds in the nested scopes' decisions.
func (s *Scope) decide() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.completed == nil && s.autoComplete {
		value := true
		s.completed = &value
	}

	return s.completed != nil && *s.completed && !s.childAborted
}

func (s *Scope) disposeRoot(ctx context.Context, completed bool) error {
	resolved := completed

	err := closer.NewCloser(
		closer.Named("transaction", func() error {
			ok, err := s.resolveTransaction(completed)
			resolved = ok

			return err
		}),
		closer.Named("locks", func() error {
			return s.releaseChainLocks(ctx)
		}),
		closer.Named("file systems", func() error {
			if s.shadow == nil {
				return nil
			}

			return s.shadow.Complete(ctx, resolved)
		}),
		closer.Named("notifications", func() error {
			if s.batch == nil {
				return nil
			}

			return s.batch.Flush(ctx, resolved)
		}),
		closer.Named("scope context", func() error {
			return s.exitContext(resolved)
		}),
		closer.Named("detach", func() error {
			if !s.detachable {
				return nil
			}

			return s.clearAttachment()
		}),
	).Close()

	outcome := outcomeLabel(resolved, err)
	scopeCompletions.WithLabelValues(s.kind(), outcome).Inc()
	rootScopeDuration.WithLabelValues(outcome).Observe(time.Since(s.created).Seconds())
	endScopeSpan(s.span, resolved, err)

	log := s.provider.scopeLogger(ctx, s.id)
	if err != nil {
		log.Error("root scope disposed with errors", "completed", resolved, "error", err)
	} else {
		log.Info("scope disposed", "completed", resolved)
	}

	return err
}

// resolveTransaction commits or rolls back and always closes the handle. It
// reports whether the work was committed.
func (s *Scope) resolveTransaction(completed bool) (bool, error) {
	s.mu.Lock()
	tx := s.tx
	s.mu.Unlock()

	if tx == nil {
		return completed, nil
	}

	var resolveErr error

	if completed {
		if err := tx.Commit(); err != nil {
			resolveErr = logger.AnnotateError(fmt.Errorf("commit: %w", err),
				"scope_id", s.id.String(), "step", "commit")
			completed = false
		}
	} else if err := tx.Rollback(); err != nil {
		resolveErr = logger.AnnotateError(fmt.Errorf("rollback: %w", err),
			"scope_id", s.id.String(), "step", "rollback")
	}

	closeErr := tx.Close()
	if closeErr != nil {
		closeErr = logger.AnnotateError(fmt.Errorf("close: %w", closeErr),
			"scope_id", s.id.String(), "step", "close")
	}

	return completed, errors.Join(resolveErr, closeErr)
}

func (s *Scope) releaseChainLocks(ctx context.Context) error {
	var collected errs.Collection

	collected.Add(s.provider.locks.ReleaseAll(ctx, s.id))

	s.mu.Lock()
	members := append([]uuid.UUID(nil), s.members...)
	s.mu.Unlock()

	for _, id := range members {
		if held := s.provider.locks.Held(id); len(held) > 0 {
			collected.Add(fmt.Errorf("%w: scope %s holds %v", ErrLocksLeaked, id, held))
		}
	}

	return collected.GetError()
}

func (s *Scope) exitContext(completed bool) error {
	if !s.ownsContext || s.scopeContext == nil {
		return nil
	}

	exitErr := s.scopeContext.ScopeExit(completed)

	var popErr error

	if s.chain != nil {
		stack, err := contextStack(s.chain)
		if err != nil {
			popErr = err
		} else if _, err := stack.PopIf(func(top *Context) bool { return top == s.scopeContext }); err != nil {
			popErr = fmt.Errorf("scope context %s: %w", s.scopeContext.id, err)
		}
	}

	return errors.Join(exitErr, popErr)
}

// restore pops an attached detachable scope and its context off chain.
func (s *Scope) restore(chain *ambient.Chain) error {
	stack, err := ambient.StackOf[*Scope](chain, scopeStackName)
	if err != nil {
		return err
	}

	ctxStack, err := contextStack(chain)
	if err != nil {
		return err
	}

	if _, err := stack.PopIf(func(top *Scope) bool { return top == s }); err != nil {
		return fmt.Errorf("%w: %w", ErrNotAmbient, err)
	}

	if _, err := ctxStack.PopIf(func(top *Context) bool { return top == s.scopeContext }); err != nil {
		return fmt.Errorf("scope context %s: %w", s.scopeContext.id, err)
	}

	return s.clearAttachment()
}

// clearAttachment forgets the chain a detachable scope was attached to and
// checks that what was ambient before it is ambient again.
func (s *Scope) clearAttachment() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chain := s.chain
	origScope, origContext := s.origScope, s.origContext

	s.attached = false
	s.chain = nil
	s.origScope = nil
	s.origContext = nil

	if chain == nil {
		return nil
	}

	stack, err := ambient.StackOf[*Scope](chain, scopeStackName)
	if err != nil {
		return err
	}

	if top, _ := stack.Peek(); top != origScope {
		return fmt.Errorf("%w: the scope ambient before attaching is not restored", ErrNotAmbient)
	}

	ctxStack, err := contextStack(chain)
	if err != nil {
		return err
	}

	if top, _ := ctxStack.Peek(); top != origContext {
		return fmt.Errorf("%w: the context ambient before attaching is not restored", ErrNotAmbient)
	}

	return nil
}

func outcomeLabel(completed bool, err error) string {
	switch {
	case err != nil:
		return "error"
	case completed:
		return "committed"
	default:
		return "aborted"
	}
}

package migration

import (
	"context"
	"fmt"
	"time"

	"github.com/amp-labs/amp-uow/logger"
	"github.com/amp-labs/amp-uow/scope"
)

// TransitionHook runs inside the scope of a transition after its migration
// succeeded. An error aborts the transition.
type TransitionHook func(ctx context.Context, s *scope.Scope, plan *Plan, transition Transition) error

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithLogger sets the logging hooks of the executor.
func WithLogger(log Logger) ExecutorOption {
	return func(e *Executor) {
		if log != nil {
			e.log = log
		}
	}
}

// WithTransactionPerTransition commits every transition in its own root
// scope. A failed run keeps the transitions committed before the failure.
// Execute refuses this mode with ErrPerTransitionNested when ctx already has
// an ambient scope.
func WithTransactionPerTransition() ExecutorOption {
	return func(e *Executor) {
		e.perTransition = true
	}
}

// WithTransitionHook adds a hook that runs inside every transition scope.
func WithTransitionHook(hook TransitionHook) ExecutorOption {
	return func(e *Executor) {
		if hook != nil {
			e.hooks = append(e.hooks, hook)
		}
	}
}

// WithScopeOptions sets the options of the scopes the executor creates.
func WithScopeOptions(opts ...scope.Option) ExecutorOption {
	return func(e *Executor) {
		e.scopeOpts = append(e.scopeOpts, opts...)
	}
}

// Executor walks a plan from a starting state to its final state, running
// each transition's migration inside a scope.
type Executor struct {
	provider      *scope.Provider
	builder       Builder
	log           Logger
	perTransition bool
	hooks         []TransitionHook
	scopeOpts     []scope.Option
}

// NewExecutor creates an executor that opens scopes through provider and
// builds migrations through builder.
func NewExecutor(provider *scope.Provider, builder Builder, opts ...ExecutorOption) *Executor {
	e := &Executor{
		provider: provider,
		builder:  builder,
		log:      NewDefaultLogger(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Execute runs plan starting at from. The returned record is never nil. The
// error is the one captured in the record. No-op transitions advance the
// state but are not listed as completed transitions.
//
// By default the whole run shares one root scope (or nests in the ambient
// scope of ctx), so a failure leaves the record without completed
// transitions and the final state equal to from.
func (e *Executor) Execute(ctx context.Context, plan *Plan, from string) (*ExecutedPlan, error) {
	ctx = scope.WithChain(ctx)
	ctx = logger.WithPlan(ctx, plan.Name())

	start := time.Now()

	ctx, span := startExecuteSpan(ctx, plan, from)

	e.log.PlanStarted(ctx, plan.Name(), from)

	result := &ExecutedPlan{
		plan:         plan,
		initialState: from,
		finalState:   from,
	}

	final, err := plan.FinalState()

	switch {
	case err != nil:
	case !plan.Known(from):
		err = WrapStateError(from, ErrUnsupportedInitialState)
	case e.perTransition && hasAmbientScope(ctx):
		err = ErrPerTransitionNested
	case e.perTransition:
		err = e.executeEach(ctx, plan, from, final, result)
	default:
		err = e.executeAtomic(ctx, plan, from, final, result)
	}

	result.err = err
	result.successful = err == nil && result.finalState == final

	duration := time.Since(start)

	planDuration.WithLabelValues(sanitizePlan(plan.Name()), outcome(err)).Observe(duration.Seconds())
	endSpan(span, err)
	e.log.PlanCompleted(ctx, result, duration)

	return result, err
}

func hasAmbientScope(ctx context.Context) bool {
	_, ok := scope.AmbientScope(ctx)

	return ok
}

func (e *Executor) executeAtomic(ctx context.Context, plan *Plan, from, final string, result *ExecutedPlan) error {
	var completed []Transition

	err := scope.Do(ctx, e.provider, func(ctx context.Context, _ *scope.Scope) error {
		return e.walk(ctx, plan, from, final, func(t Transition) {
			if t.Type != NoopType {
				completed = append(completed, t)
			}
		})
	}, e.scopeOpts...)
	if err != nil {
		return err
	}

	result.completed = completed
	result.finalState = final

	return nil
}

func (e *Executor) executeEach(ctx context.Context, plan *Plan, from, final string, result *ExecutedPlan) error {
	return e.walk(ctx, plan, from, final, func(t Transition) {
		if t.Type != NoopType {
			result.completed = append(result.completed, t)
		}

		result.finalState = t.Target
	})
}

// walk follows the plan from state to final, running each transition in its
// own scope and reporting the ones whose scope disposed cleanly.
func (e *Executor) walk(ctx context.Context, plan *Plan, state, final string, done func(Transition)) error {
	for state != final {
		if err := ctx.Err(); err != nil {
			return err
		}

		t, ok := plan.Transition(state)
		if !ok {
			return WrapStateError(state, ErrUnsupportedInitialState)
		}

		if err := e.runTransition(ctx, plan, t); err != nil {
			return err
		}

		done(t)

		state = t.Target
	}

	return nil
}

func (e *Executor) runTransition(ctx context.Context, plan *Plan, t Transition) error {
	ctx, span := startTransitionSpan(ctx, t)
	start := time.Now()

	e.log.TransitionStarted(ctx, t)

	err := scope.Do(ctx, e.provider, func(ctx context.Context, s *scope.Scope) error {
		return e.apply(ctx, s, plan, t)
	}, e.scopeOpts...)
	if err != nil {
		err = WrapTransitionError(t.Source, t.Target, fmt.Errorf("migration %q: %w", t.Type, err))
	}

	duration := time.Since(start)

	transitionsTotal.WithLabelValues(sanitizePlan(plan.Name()), string(t.Type), outcome(err)).Inc()
	transitionDuration.WithLabelValues(sanitizePlan(plan.Name()), string(t.Type)).Observe(duration.Seconds())
	endSpan(span, err)
	e.log.TransitionCompleted(ctx, t, duration, err)

	return err
}

func (e *Executor) apply(ctx context.Context, s *scope.Scope, plan *Plan, t Transition) error {
	tx, err := s.Database(ctx)
	if err != nil {
		return err
	}

	mctx := NewContext(plan, t, tx)
	mctx.OnComplete(s.Complete)

	unit, err := e.builder.Build(t.Type, mctx)
	if err != nil {
		return err
	}

	if err := unit.Run(ctx); err != nil {
		return err
	}

	for _, hook := range e.hooks {
		if err := hook(ctx, s, plan, t); err != nil {
			return err
		}
	}

	mctx.Complete()

	return nil
}

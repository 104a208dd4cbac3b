package migration

import (
	"context"
	"fmt"

	"github.com/amp-labs/amp-uow/database"
	"github.com/amp-labs/amp-uow/scope"
)

// StateKeyPrefix prefixes the key under which a plan's state is stored.
const StateKeyPrefix = "upgrader.state."

// StateStore persists plan states through the transaction of a scope.
type StateStore interface {
	Get(ctx context.Context, exec database.Executor, key string) (string, bool, error)
	Set(ctx context.Context, exec database.Executor, key, value string) error
}

// StateKey returns the store key of a plan.
func StateKey(plan string) string {
	return StateKeyPrefix + plan
}

// Upgrader runs plans from their persisted state and records every state
// reached in the same scope as the transition that reached it.
type Upgrader struct {
	provider *scope.Provider
	store    StateStore
	executor *Executor
}

// NewUpgrader creates an upgrader. The options configure its executor.
func NewUpgrader(provider *scope.Provider, builder Builder, store StateStore, opts ...ExecutorOption) *Upgrader {
	u := &Upgrader{
		provider: provider,
		store:    store,
	}

	opts = append(opts, WithTransitionHook(u.persist))
	u.executor = NewExecutor(provider, builder, opts...)

	return u
}

// CurrentState returns the persisted state of plan, or its initial state
// when nothing was persisted yet.
func (u *Upgrader) CurrentState(ctx context.Context, plan *Plan) (string, error) {
	state := plan.InitialState()

	err := scope.Do(scope.WithChain(ctx), u.provider, func(ctx context.Context, s *scope.Scope) error {
		tx, err := s.Database(ctx)
		if err != nil {
			return err
		}

		value, found, err := u.store.Get(ctx, tx, StateKey(plan.Name()))
		if err != nil {
			return err
		}

		if found {
			state = value
		}

		return nil
	})
	if err != nil {
		return "", fmt.Errorf("reading state of plan %q: %w", plan.Name(), err)
	}

	return state, nil
}

// Execute runs plan from its persisted state up to its final state.
func (u *Upgrader) Execute(ctx context.Context, plan *Plan) (*ExecutedPlan, error) {
	if plan.Name() == "" {
		return nil, ErrPlanNameRequired
	}

	from, err := u.CurrentState(ctx, plan)
	if err != nil {
		return nil, err
	}

	return u.executor.Execute(ctx, plan, from)
}

// persist records the reached state under a write lock on the plan's key.
func (u *Upgrader) persist(ctx context.Context, s *scope.Scope, plan *Plan, t Transition) error {
	key := StateKey(plan.Name())

	if err := s.WriteLock(ctx, key); err != nil {
		return err
	}

	tx, err := s.Database(ctx)
	if err != nil {
		return err
	}

	return u.store.Set(ctx, tx, key, t.Target)
}

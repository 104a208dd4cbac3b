package migration

import (
	"fmt"
	"strings"
	"sync"

	"facette.io/natsort"
	"github.com/google/uuid"
)

// PlanOption configures a Plan.
type PlanOption func(*Plan)

// WithRandomState replaces the generator of scaffolding state names used by
// merges and clones.
func WithRandomState(generate func() string) PlanOption {
	return func(p *Plan) {
		p.randomState = generate
	}
}

// WithInitialState sets the state a fresh installation starts from. The
// default is the empty state.
func WithInitialState(state string) PlanOption {
	return func(p *Plan) {
		p.initialState = state
		p.prevState = state
	}
}

// Plan is a migration plan. Builder methods return the plan for chaining.
// The first builder error is kept: later builder calls do nothing, and Err,
// Validate and FinalState report it.
type Plan struct {
	name         string
	initialState string
	randomState  func() string

	mu          sync.Mutex
	transitions map[string]*Transition
	prevState   string
	finalState  string
	validated   bool
	err         error
}

// NewPlan returns an empty plan.
func NewPlan(name string, opts ...PlanOption) *Plan {
	p := &Plan{
		name:        name,
		transitions: make(map[string]*Transition),
		randomState: defaultRandomState,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

func defaultRandomState() string {
	return "{" + strings.ToUpper(uuid.NewString()) + "}"
}

// Name returns the plan name.
func (p *Plan) Name() string {
	return p.name
}

// InitialState returns the state a fresh installation starts from.
func (p *Plan) InitialState() string {
	return p.initialState
}

// Err returns the first builder error.
func (p *Plan) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.err
}

// CreateRandomState returns a fresh scaffolding state name.
func (p *Plan) CreateRandomState() string {
	return p.randomState()
}

// PrevState returns the source of the next transition added by To.
func (p *Plan) PrevState() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.prevState
}

// From sets the source of the next transition.
func (p *Plan) From(state string) *Plan {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err == nil {
		p.prevState = state
	}

	return p
}

// To adds a no-op transition from the previous state to target.
func (p *Plan) To(target string) *Plan {
	return p.ToMigration(target, NoopType)
}

// ToMigration adds a transition from the previous state to target running
// the given migration type.
func (p *Plan) ToMigration(target string, migrationType Type) *Plan {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.addLocked(p.prevState, target, migrationType)

	return p
}

func (p *Plan) addLocked(source, target string, migrationType Type) {
	if p.err != nil {
		return
	}

	switch {
	case strings.TrimSpace(target) == "":
		p.err = WrapTransitionError(source, target, ErrEmptyState)

		return
	case source == target:
		p.err = WrapTransitionError(source, target, ErrSameState)

		return
	}

	if existing := p.transitions[source]; existing != nil {
		p.err = WrapTransitionError(source, target,
			fmt.Errorf("%w: %q already goes to %q", ErrTransitionExists, source, existing.Target))

		return
	}

	if migrationType == "" {
		migrationType = NoopType
	}

	p.transitions[source] = &Transition{Source: source, Target: target, Type: migrationType}

	// known states without outgoing transition are final state candidates
	if _, known := p.transitions[target]; !known {
		p.transitions[target] = nil
	}

	p.prevState = target
	p.validated = false
	p.finalState = ""
}

// ToWithReplace adds an alternate path to target. The plan moves to target
// with newType from the previous state, and installations that already
// reached recoverState move to target with recoverType (no-op when empty).
func (p *Plan) ToWithReplace(recoverState, target string, newType, recoverType Type) *Plan {
	p.ToMigration(target, newType)

	if recoverType == "" {
		recoverType = NoopType
	}

	return p.From(recoverState).ToMigration(target, recoverType)
}

// ToWithClone replays the migrations of the chain from start to end, from the
// previous state onto target. Intermediate states get random names.
func (p *Plan) ToWithClone(start, end, target string) *Plan {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p
	}

	switch {
	case start == end:
		p.err = WrapTransitionError(start, end, ErrSameState)

		return p
	case strings.TrimSpace(end) == "" || strings.TrimSpace(target) == "":
		p.err = WrapTransitionError(start, target, ErrEmptyState)

		return p
	}

	visited := make(map[string]bool)

	for state := start; state != end; {
		if visited[state] {
			p.err = &LoopError{State: state}

			return p
		}

		visited[state] = true

		t := p.transitions[state]
		if t == nil {
			p.err = WrapStateError(state, fmt.Errorf("%w: no transition to clone", ErrUnknownState))

			return p
		}

		next := target
		if t.Target != end {
			next = p.randomState()
		}

		p.addLocked(p.prevState, next, t.Type)

		state = t.Target
	}

	return p
}

// Reset drops every transition and returns to the initial state.
func (p *Plan) Reset() *Plan {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.transitions = make(map[string]*Transition)
	p.prevState = p.initialState
	p.validated = false
	p.finalState = ""
	p.err = nil

	return p
}

// Transition returns the outgoing transition of state.
func (p *Plan) Transition(from string) (Transition, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	t := p.transitions[from]
	if t == nil {
		return Transition{}, false
	}

	return *t, true
}

// Known reports whether state appears in the plan.
func (p *Plan) Known(state string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, ok := p.transitions[state]

	return ok
}

// KnownStates lists every state of the plan in natural order.
func (p *Plan) KnownStates() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.statesLocked()
}

func (p *Plan) statesLocked() []string {
	states := make([]string, 0, len(p.transitions))
	for state := range p.transitions {
		states = append(states, state)
	}

	natsort.Sort(states)

	return states
}

// Transitions lists every transition ordered by source state.
func (p *Plan) Transitions() []Transition {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Transition, 0, len(p.transitions))

	for _, state := range p.statesLocked() {
		if t := p.transitions[state]; t != nil {
			out = append(out, *t)
		}
	}

	return out
}

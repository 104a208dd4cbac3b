package migration

import (
	"fmt"
)

// Validate checks that the plan has exactly one final state and no cycle,
// and caches the final state. Any later change to the plan clears the cache.
func (p *Plan) Validate() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.validateLocked()
}

func (p *Plan) validateLocked() error {
	if p.err != nil {
		return p.err
	}

	if p.validated {
		return nil
	}

	states := p.statesLocked()

	var deadEnds []string

	for _, state := range states {
		if p.transitions[state] == nil {
			deadEnds = append(deadEnds, state)
		}
	}

	if len(deadEnds) > 1 {
		return &DeadEndError{States: deadEnds}
	}

	verified := make(map[string]bool, len(states))

	for _, state := range states {
		t := p.transitions[state]
		if t == nil || verified[state] {
			continue
		}

		visited := map[string]bool{state: true}
		walk := []string{state}

		for next := p.transitions[t.Target]; next != nil && !verified[next.Source]; next = p.transitions[next.Target] {
			if visited[next.Source] {
				return &LoopError{State: next.Source}
			}

			visited[next.Source] = true
			walk = append(walk, next.Source)
		}

		for _, s := range walk {
			verified[s] = true
		}
	}

	if len(deadEnds) == 0 {
		return ErrNoFinalState
	}

	p.finalState = deadEnds[0]
	p.validated = true

	return nil
}

// FinalState validates the plan and returns its final state.
func (p *Plan) FinalState() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.validateLocked(); err != nil {
		return "", err
	}

	return p.finalState, nil
}

// FollowPath replays the walk execution would take from from, without
// running anything, and returns the visited states including from. The walk
// stops at to, or at the final state when to is empty, and fails when it
// ends anywhere else.
func (p *Plan) FollowPath(from, to string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.validateLocked(); err != nil {
		return nil, err
	}

	expected := to
	if expected == "" {
		expected = p.finalState
	}

	state := from
	path := []string{state}

	t, known := p.transitions[state]
	if !known {
		return nil, WrapStateError(state, ErrUnknownState)
	}

	for t != nil && state != expected {
		state = t.Target
		path = append(path, state)

		if t, known = p.transitions[state]; !known {
			return nil, WrapStateError(state, ErrUnknownState)
		}
	}

	if state != expected {
		return path, fmt.Errorf("%w: reached %q instead of %q", ErrPathMismatch, state, expected)
	}

	return path, nil
}

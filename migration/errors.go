package migration

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransitionExists is returned when a state gets a second outgoing transition.
	ErrTransitionExists = errors.New("transition already defined")
	// ErrEmptyState is returned when a transition target is empty.
	ErrEmptyState = errors.New("state name is empty")
	// ErrSameState is returned when a transition would target its own source.
	ErrSameState = errors.New("source and target state are identical")
	// ErrUnknownState is returned when a state has no transition to follow.
	ErrUnknownState = errors.New("unknown state")
	// ErrUnsupportedInitialState is returned when execution starts from a state the plan does not know.
	ErrUnsupportedInitialState = errors.New("unsupported initial state")
	// ErrMultipleFinalStates is wrapped by DeadEndError.
	ErrMultipleFinalStates = errors.New("multiple final states")
	// ErrLoop is wrapped by LoopError.
	ErrLoop = errors.New("loop detected")
	// ErrNoFinalState is returned for a plan without any transition.
	ErrNoFinalState = errors.New("plan has no final state")
	// ErrPathMismatch is returned when following a path ends on an unexpected state.
	ErrPathMismatch = errors.New("path ended on an unexpected state")
	// ErrMerge is returned for misuse of a merge builder.
	ErrMerge = errors.New("invalid merge")
	// ErrUnknownMigrationType is returned when the registry cannot build a type.
	ErrUnknownMigrationType = errors.New("unknown migration type")
	// ErrMigrationExecuted is returned when running a migration unit twice.
	ErrMigrationExecuted = errors.New("migration has already been executed")
	// ErrExpressionExecuted is returned when running an expression twice.
	ErrExpressionExecuted = errors.New("expression has already been executed")
	// ErrExpressionInProgress is returned when starting an expression while another is being built.
	ErrExpressionInProgress = errors.New("another expression is being built")
	// ErrExpressionNotFinished is returned when a migration returns with an expression still being built.
	ErrExpressionNotFinished = errors.New("expression was started but never finished")
	// ErrPerTransitionNested is returned when per-transition commits are
	// requested while the caller already has an ambient scope, whose
	// transaction would swallow those commits.
	ErrPerTransitionNested = errors.New("per-transition commits need a context without an ambient scope")
	// ErrPlanNameRequired is returned for a plan config without a name.
	ErrPlanNameRequired = errors.New("plan name is required")
	// ErrInvalidStep is returned for a plan config step that cannot be built.
	ErrInvalidStep = errors.New("invalid plan step")
)

// StateError wraps an error with state context.
type StateError struct {
	State string
	Err   error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("state %q: %v", e.State, e.Err)
}

func (e *StateError) Unwrap() error {
	return e.Err
}

// TransitionError wraps an error with transition context.
type TransitionError struct {
	From string
	To   string
	Err  error
}

func (e *TransitionError) Error() string {
	if e.To == "" {
		return fmt.Sprintf("transition from %q: %v", e.From, e.Err)
	}

	return fmt.Sprintf("transition %q -> %q: %v", e.From, e.To, e.Err)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

// DeadEndError lists the states without outgoing transition when there is
// more than one.
type DeadEndError struct {
	States []string
}

func (e *DeadEndError) Error() string {
	quoted := make([]string, len(e.States))
	for i, s := range e.States {
		quoted[i] = fmt.Sprintf("%q", s)
	}

	return fmt.Sprintf("%v (%s): a plan must have exactly one final state",
		ErrMultipleFinalStates, strings.Join(quoted, ", "))
}

func (e *DeadEndError) Unwrap() error {
	return ErrMultipleFinalStates
}

// LoopError names a state on a transition cycle.
type LoopError struct {
	State string
}

func (e *LoopError) Error() string {
	return fmt.Sprintf("%v around state %q: a plan must not contain circular transition paths", ErrLoop, e.State)
}

func (e *LoopError) Unwrap() error {
	return ErrLoop
}

// WrapStateError wraps an error with state context.
func WrapStateError(state string, err error) error {
	if err == nil {
		return nil
	}

	return &StateError{State: state, Err: err}
}

// WrapTransitionError wraps an error with transition context.
func WrapTransitionError(from, to string, err error) error {
	if err == nil {
		return nil
	}

	return &TransitionError{From: from, To: to, Err: err}
}

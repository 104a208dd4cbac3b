package migration

// ExecutedPlan is the record of one execution run.
type ExecutedPlan struct {
	plan         *Plan
	initialState string
	finalState   string
	successful   bool
	completed    []Transition
	err          error
}

// Plan returns the executed plan.
func (e *ExecutedPlan) Plan() *Plan {
	return e.plan
}

// InitialState returns the state the run started from.
func (e *ExecutedPlan) InitialState() string {
	return e.initialState
}

// FinalState returns the state the run left the schema in.
func (e *ExecutedPlan) FinalState() string {
	return e.finalState
}

// Successful reports whether the final state of the plan was reached.
func (e *ExecutedPlan) Successful() bool {
	return e.successful
}

// CompletedTransitions returns the transitions that took effect, in order.
func (e *ExecutedPlan) CompletedTransitions() []Transition {
	out := make([]Transition, len(e.completed))
	copy(out, e.completed)

	return out
}

// Err returns the error that stopped the run.
func (e *ExecutedPlan) Err() error {
	return e.err
}

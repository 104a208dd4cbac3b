// Package errors provides the aggregate error types used by cleanup chains
// and completion drains. Every step of such a chain is attempted, and the
// failures are reported together instead of short-circuiting on the first.
// The chains themselves live in package closer.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPanicRecovery wraps a value recovered from a panicking step.
	ErrPanicRecovery = errors.New("recovered from panic")
	// ErrWrongType is returned when a stored value does not have the requested type.
	ErrWrongType = errors.New("wrong type")
)

// Collection is a thread-unsafe utility for accumulating multiple errors.
// Use this when you need to collect errors from multiple operations and return them together.
type Collection struct {
	errors []error
}

// Add appends an error to the collection. Nil errors are automatically ignored.
func (c *Collection) Add(err error) {
	if err != nil {
		c.errors = append(c.errors, err)
	}
}

// Clear removes all errors from the collection, resetting it to an empty state.
func (c *Collection) Clear() {
	c.errors = nil
}

// HasError returns true if the collection contains at least one error.
func (c *Collection) HasError() bool {
	return len(c.errors) > 0
}

// Len returns the number of collected errors.
func (c *Collection) Len() int {
	return len(c.errors)
}

// GetError returns the collected errors as a single error.
// Returns nil if the collection is empty, the single error if there's only one,
// or an *Aggregate if there are multiple errors.
func (c *Collection) GetError() error {
	switch len(c.errors) {
	case 0:
		return nil
	case 1:
		return c.errors[0]
	default:
		errs := make([]error, len(c.errors))
		copy(errs, c.errors)

		return &Aggregate{Errors: errs}
	}
}

// Aggregate returns nil for an empty collection and an *Aggregate holding
// every collected error otherwise, even when there is only one.
func (c *Collection) Aggregate() error {
	if len(c.errors) == 0 {
		return nil
	}

	errs := make([]error, len(c.errors))
	copy(errs, c.errors)

	return &Aggregate{Errors: errs}
}

// Aggregate bundles several independent failures into one error. errors.Is
// and errors.As see every member through Unwrap.
type Aggregate struct {
	Errors []error
}

func (a *Aggregate) Error() string {
	if len(a.Errors) == 0 {
		return "no errors"
	}

	msgs := make([]string, len(a.Errors))
	for i, err := range a.Errors {
		msgs[i] = err.Error()
	}

	if len(msgs) == 1 {
		return "1 error occurred: " + msgs[0]
	}

	return fmt.Sprintf("%d errors occurred: %s", len(a.Errors), strings.Join(msgs, "; "))
}

func (a *Aggregate) Unwrap() []error {
	return a.Errors
}

// Recovered converts a recovered panic value into an error. It returns nil
// when the value is nil.
func Recovered(r any) error {
	if r == nil {
		return nil
	}

	if err, ok := r.(error); ok {
		return fmt.Errorf("%w: %w", ErrPanicRecovery, err)
	}

	return fmt.Errorf("%w: %v", ErrPanicRecovery, r)
}

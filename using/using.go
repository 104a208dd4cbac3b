// Package using runs code against a resource and always releases it
// afterward, also when the code fails or panics.
//
//	err := using.NewResource(open).Use(func(tx *Tx) error {
//	    return tx.Exec(ctx, query)
//	})
package using

import (
	"errors"

	errs "github.com/amp-labs/amp-uow/errors"
)

var (
	// ErrResourceNil is returned when Use is called on a nil resource.
	ErrResourceNil = errors.New("resource is nil")
	// ErrFuncNil is returned when a nil function is passed to Use.
	ErrFuncNil = errors.New("f is nil")
)

// Closer releases a resource.
type Closer func() error

// Resource produces a value together with the Closer that releases it.
type Resource[V any] struct {
	create   func() (V, Closer, error)
	released bool
}

// NewResource creates a Resource from create.
func NewResource[V any](create func() (V, Closer, error)) *Resource[V] {
	return &Resource[V]{create: create}
}

// Use creates the value, runs fn with it and then calls the Closer. A panic
// in fn is recovered into an error wrapping errors.ErrPanicRecovery, and the
// Closer still runs. Failures of fn and the Closer are returned together.
func (p *Resource[V]) Use(fn func(value V) error) (errOut error) {
	if p == nil || p.create == nil {
		return ErrResourceNil
	}

	if fn == nil {
		return ErrFuncNil
	}

	p.released = false

	val, closer, err := p.create()
	if err != nil {
		return err
	}

	var collected errs.Collection

	defer func() {
		collected.Add(errs.Recovered(recover()))

		if !p.released && closer != nil {
			collected.Add(closer())
		}

		errOut = collected.GetError()
	}()

	collected.Add(fn(val))

	return nil
}

// Release hands ownership of the value to the caller: the Closer is not
// called when the current Use returns.
func (p *Resource[V]) Release() {
	p.released = true
}

// Package closer manages cleanup steps as io.Closers.
//
// The package includes:
//   - Closer: runs every collected step in order and reports all failures together
//   - Named: a step whose failures are prefixed with its name
//   - CloseOnce: makes a closer idempotent once it succeeded
//   - HandlePanic: turns a panicking Close into an error
//   - CustomCloser: an io.Closer from any cleanup function
package closer

import (
	"fmt"
	"io"
	"sync"

	errs "github.com/amp-labs/amp-uow/errors"
)

type customCloser struct {
	closeFn func() error
}

// CustomCloser creates an io.Closer from a cleanup function. It returns nil
// when closeFn is nil.
func CustomCloser(closeFn func() error) io.Closer {
	if closeFn == nil {
		return nil
	}

	return &customCloser{closeFn: closeFn}
}

func (c *customCloser) Close() error {
	return c.closeFn()
}

type namedCloser struct {
	name   string
	closer io.Closer
}

// Named creates a step whose error is reported as "name: err". It returns
// nil when fn is nil, and Closer skips nil steps.
func Named(name string, fn func() error) io.Closer {
	if fn == nil {
		return nil
	}

	return &namedCloser{name: name, closer: HandlePanic(CustomCloser(fn))}
}

func (n *namedCloser) Close() error {
	if err := n.closer.Close(); err != nil {
		return fmt.Errorf("%s: %w", n.name, err)
	}

	return nil
}

// Closer collects cleanup steps. Close runs every step in the order they were
// added, even after earlier steps failed or panicked.
//
//	chain := closer.NewCloser(
//	    closer.Named("transaction", resolve),
//	    closer.Named("locks", release),
//	)
//
//	return chain.Close()
type Closer struct {
	closers []io.Closer
}

// NewCloser creates a Closer holding closers.
func NewCloser(closers ...io.Closer) *Closer {
	return &Closer{closers: closers}
}

// Add appends a step. Nil closers are skipped on Close. Add is not safe for
// concurrent use.
func (c *Closer) Add(closer io.Closer) {
	c.closers = append(c.closers, closer)
}

// Close runs every step. A single failure is returned unchanged; several
// become an *errors.Aggregate. Panics are reported as errors wrapping
// errors.ErrPanicRecovery.
func (c *Closer) Close() error {
	var collected errs.Collection

	for _, closer := range c.closers {
		if closer == nil {
			continue
		}

		collected.Add(HandlePanic(closer).Close())
	}

	return collected.GetError()
}

type closeOnceImpl struct {
	mut    sync.Mutex
	closed bool
	closer io.Closer
}

// CloseOnce wraps closer so that it is closed at most once successfully.
// Calls after a successful Close return nil. A failed Close is not
// remembered, so a later call retries. Safe for concurrent use.
func CloseOnce(closer io.Closer) io.Closer {
	if closer == nil {
		return nil
	}

	if once, ok := closer.(*closeOnceImpl); ok {
		return once
	}

	return &closeOnceImpl{closer: closer}
}

func (c *closeOnceImpl) Close() error {
	c.mut.Lock()
	defer c.mut.Unlock()

	if c.closed {
		return nil
	}

	if err := c.closer.Close(); err != nil {
		return err
	}

	c.closed = true

	return nil
}

type panicHandlingImpl struct {
	closer io.Closer
}

// HandlePanic wraps closer so that a panic in Close is recovered and
// returned as an error.
func HandlePanic(closer io.Closer) io.Closer {
	if closer == nil {
		return nil
	}

	switch closer.(type) {
	case *panicHandlingImpl, *namedCloser:
		return closer
	}

	return &panicHandlingImpl{closer: closer}
}

func (p *panicHandlingImpl) Close() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errs.Recovered(r)
		}
	}()

	return p.closer.Close()
}

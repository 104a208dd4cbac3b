// Package ambient implements continuation-local stacks.
//
// A logical call chain (a request, a job, a CLI invocation) owns one Chain,
// installed in its context.Context with NewChain. Everything reached through
// that context shares the chain's stacks, which lets code find "the current
// scope" without passing it explicitly.
//
// Chains never leak across independently scheduled work: a goroutine started
// for background processing must call Fork to get an empty chain of its own.
// Handing the parent context to a goroutine that runs concurrently with the
// parent is explicit flowing; it is not a supported usage, and the LIFO
// checks built on these stacks will report it as a defect.
package ambient

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/amp-labs/amp-uow/contexts"
	errs "github.com/amp-labs/amp-uow/errors"
	"github.com/google/uuid"
)

var (
	// ErrNoChain is returned when a context carries no ambient chain.
	ErrNoChain = errors.New("no ambient chain in context")
	// ErrNoAmbient is returned when popping an empty stack.
	ErrNoAmbient = errors.New("no ambient value")
	// ErrNotTop is returned by PopIf when the top of the stack does not match.
	ErrNotTop = errors.New("value is not the ambient top")
)

var chainKey = contexts.NewKey[*Chain]("ambient.chain") //nolint:gochecknoglobals

// Chain is the ambient state of one logical call chain.
type Chain struct {
	id     uuid.UUID
	mu     sync.Mutex
	stacks map[string]any
}

// ID identifies the chain in logs.
func (c *Chain) ID() uuid.UUID {
	return c.id
}

// NewChain returns a context carrying a fresh, empty chain.
func NewChain(ctx context.Context) context.Context {
	return chainKey.With(contexts.EnsureContext(ctx), &Chain{
		id:     uuid.New(),
		stacks: make(map[string]any),
	})
}

// Fork returns a context for independently scheduled work. The values of ctx
// stay visible but the ambient stacks start empty.
func Fork(ctx context.Context) context.Context {
	return NewChain(ctx)
}

// EnsureChain returns ctx unchanged when it already carries a chain,
// otherwise a context carrying a new one.
func EnsureChain(ctx context.Context) context.Context {
	if _, ok := chainKey.Get(ctx); ok {
		return ctx
	}

	return NewChain(ctx)
}

// From returns the chain carried by ctx.
func From(ctx context.Context) (*Chain, error) {
	chain, ok := chainKey.Get(ctx)
	if !ok || chain == nil {
		return nil, ErrNoChain
	}

	return chain, nil
}

// StackOf returns the chain's stack with the given name, creating it on first
// use. Asking for an existing stack with a different element type fails.
func StackOf[T any](chain *Chain, name string) (*Stack[T], error) {
	chain.mu.Lock()
	defer chain.mu.Unlock()

	existing, ok := chain.stacks[name]
	if !ok {
		stack := &Stack[T]{name: name}
		chain.stacks[name] = stack

		return stack, nil
	}

	stack, ok := existing.(*Stack[T])
	if !ok {
		return nil, fmt.Errorf("%w: stack %q holds %T", errs.ErrWrongType, name, existing)
	}

	return stack, nil
}

// Lookup is StackOf for the chain carried by ctx.
func Lookup[T any](ctx context.Context, name string) (*Stack[T], error) {
	chain, err := From(ctx)
	if err != nil {
		return nil, err
	}

	return StackOf[T](chain, name)
}

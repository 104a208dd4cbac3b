// Package locks coordinates named read/write locks for scopes.
//
// A lock is requested by an owner (a scope instance) on behalf of a group
// (the chain's root scope). Owners in the same group never block each other,
// so nested scopes can re-enter locks their ancestors already hold.
package locks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amp-labs/amp-uow/database"
	"github.com/google/uuid"
)

var (
	// ErrLockTimeout is returned when a lock could not be granted in time.
	ErrLockTimeout = errors.New("lock timeout")
	// ErrNoExecutor is returned by mechanisms that need a transaction to lock.
	ErrNoExecutor = errors.New("lock request has no executor")
	// ErrInvalidRequest is returned for requests without a name or owner.
	ErrInvalidRequest = errors.New("invalid lock request")
)

// Mode is the lock mode.
type Mode int

const (
	Read Mode = iota
	Write
)

func (m Mode) String() string {
	if m == Write {
		return "write"
	}

	return "read"
}

// Request asks for one named lock.
type Request struct {
	// Group is the id shared by every owner of one scope chain.
	Group uuid.UUID
	// Owner is the id of the scope instance holding the lock.
	Owner uuid.UUID
	Name  string
	Mode  Mode
	// Timeout bounds the wait. Zero waits until ctx is done.
	Timeout time.Duration
	// Exec is the transaction the lock is taken in, for mechanisms that need one.
	Exec database.Executor
}

func (r Request) validate() error {
	if r.Name == "" {
		return fmt.Errorf("%w: lock name is empty", ErrInvalidRequest)
	}

	if r.Owner == uuid.Nil {
		return fmt.Errorf("%w: lock %q has no owner", ErrInvalidRequest, r.Name)
	}

	return nil
}

// Mechanism grants and releases locks.
type Mechanism interface {
	// Acquire blocks until the lock is granted, ctx is done or the request
	// timeout elapses.
	Acquire(ctx context.Context, req Request) error
	// ReleaseAll releases every lock held by owner.
	ReleaseAll(ctx context.Context, owner uuid.UUID) error
	// Held lists the names of the locks held by owner.
	Held(owner uuid.UUID) []string
}

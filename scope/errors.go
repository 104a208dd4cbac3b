package scope

import "errors"

var (
	// ErrDisposed is returned when using a scope after it was disposed.
	ErrDisposed = errors.New("scope is disposed")
	// ErrNotAmbient is returned when disposing a scope that is not the ambient top.
	ErrNotAmbient = errors.New("scope is not the ambient scope")
	// ErrDetachableConflict is returned when a detachable scope is given a parent,
	// a scope context or auto-complete.
	ErrDetachableConflict = errors.New("detachable scope cannot have a parent, a scope context or auto-complete")
	// ErrNotDetachable is returned when attaching or detaching a regular scope.
	ErrNotDetachable = errors.New("scope is not detachable")
	// ErrAlreadyAttached is returned when attaching a scope twice.
	ErrAlreadyAttached = errors.New("scope is already attached")
	// ErrIsolationConflict is returned when a nested scope asks for more isolation
	// than the open transaction provides.
	ErrIsolationConflict = errors.New("isolation level conflict")
	// ErrCacheModeConflict is returned when a nested scope asks for a weaker cache mode than its parent.
	ErrCacheModeConflict = errors.New("cache mode conflict")
	// ErrNestedScopeContext is returned when a nested scope is given its own scope context.
	ErrNestedScopeContext = errors.New("nested scope cannot have its own scope context")
	// ErrFileSystemsConflict is returned when a nested scope asks for scoped file
	// systems its root does not have.
	ErrFileSystemsConflict = errors.New("nested scope cannot enable scoped file systems")
	// ErrNoFileSystems is returned when scoped file systems are used without being configured.
	ErrNoFileSystems = errors.New("scoped file systems are not enabled")
	// ErrNoPublisher is returned when notifying without a configured publisher.
	ErrNoPublisher = errors.New("no notification publisher configured")
	// ErrLocksLeaked is returned by a root scope whose chain still holds locks after disposal.
	ErrLocksLeaked = errors.New("locks remain after scope disposal")
	// ErrEnlistPriority is returned when re-enlisting a key with another priority.
	ErrEnlistPriority = errors.New("enlisted with a different priority")
	// ErrContextExited is returned when enlisting on a scope context that has already exited.
	ErrContextExited = errors.New("scope context has exited")
	// ErrDrainLimit is returned when enlistments keep re-enlisting past the configured pass limit.
	ErrDrainLimit = errors.New("scope context drain pass limit reached")
)

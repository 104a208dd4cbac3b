package scope

import (
	"fmt"
	"sort"
	"sync"

	errs "github.com/amp-labs/amp-uow/errors"
	"github.com/google/uuid"
)

// DefaultPriority is the priority of enlistments registered without one.
const DefaultPriority = 100

type enlisted struct {
	key      string
	value    any
	priority int
	seq      uint64
	onExit   func(completed bool) error
}

// Context is the completion-action registry of a root scope. Entries run
// once, in ascending priority order, when the root scope's transaction
// resolves.
type Context struct {
	id        uuid.UUID
	chainID   uuid.UUID
	maxPasses int

	mu      sync.Mutex
	entries map[string]*enlisted
	seq     uint64
	exited  bool
}

// NewContext returns an empty scope context.
func NewContext() *Context {
	return &Context{
		id:      uuid.New(),
		entries: make(map[string]*enlisted),
	}
}

// ID identifies the context.
func (c *Context) ID() uuid.UUID {
	return c.id
}

// ChainID identifies the logical chain the context was first made ambient
// on. It is uuid.Nil until then.
func (c *Context) ChainID() uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.chainID
}

func (c *Context) bind(chain uuid.UUID, maxPasses int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.chainID == uuid.Nil {
		c.chainID = chain
	}

	c.maxPasses = maxPasses
}

// Len returns the number of pending enlistments.
func (c *Context) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Enlist registers key once. When key is already enlisted the existing value
// is returned and factory and onExit are ignored, but priority must match.
// Otherwise factory (when not nil) produces the value, which is stored
// together with onExit.
func Enlist[T any](
	c *Context,
	key string,
	factory func() T,
	onExit func(completed bool, value T) error,
	priority ...int,
) (T, error) {
	var zero T

	prio := DefaultPriority
	if len(priority) > 0 {
		prio = priority[0]
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.exited {
		return zero, fmt.Errorf("%w: cannot enlist %q", ErrContextExited, key)
	}

	if existing, ok := c.entries[key]; ok {
		if existing.priority != prio {
			return zero, fmt.Errorf("%w: %q has priority %d, not %d", ErrEnlistPriority, key, existing.priority, prio)
		}

		value, ok := existing.value.(T)
		if !ok && existing.value != nil {
			return zero, fmt.Errorf("%w: %q holds %T", errs.ErrWrongType, key, existing.value)
		}

		return value, nil
	}

	value := zero
	if factory != nil {
		value = factory()
	}

	entry := &enlisted{key: key, value: value, priority: prio, seq: c.seq}
	c.seq++

	if onExit != nil {
		entry.onExit = func(completed bool) error {
			return onExit(completed, value)
		}
	}

	c.entries[key] = entry

	return value, nil
}

// EnlistAction registers a callback that carries no value.
func (c *Context) EnlistAction(key string, onExit func(completed bool) error, priority ...int) error {
	_, err := Enlist[struct{}](c, key, nil, func(completed bool, _ struct{}) error {
		return onExit(completed)
	}, priority...)

	return err
}

// GetEnlisted returns the value enlisted under key. The boolean is false when
// nothing is enlisted.
func GetEnlisted[T any](c *Context, key string) (T, bool, error) {
	var zero T

	c.mu.Lock()
	defer c.mu.Unlock()

	existing, ok := c.entries[key]
	if !ok {
		return zero, false, nil
	}

	value, ok := existing.value.(T)
	if !ok {
		if existing.value == nil {
			return zero, true, nil
		}

		return zero, false, fmt.Errorf("%w: %q holds %T", errs.ErrWrongType, key, existing.value)
	}

	return value, true, nil
}

// ScopeExit drains the registry. Each pass takes every pending entry in
// ascending priority order, clears the registry and runs the callbacks;
// passes repeat while callbacks enlist more work. Every callback runs even
// when earlier ones fail or panic, and all failures are returned as one
// *errors.Aggregate.
func (c *Context) ScopeExit(completed bool) error {
	var collected errs.Collection

	for pass := 0; ; pass++ {
		c.mu.Lock()

		if len(c.entries) == 0 {
			c.exited = true
			c.mu.Unlock()

			break
		}

		if c.maxPasses > 0 && pass >= c.maxPasses {
			collected.Add(fmt.Errorf("%w: %d passes, %d entries left", ErrDrainLimit, pass, len(c.entries)))
			c.entries = make(map[string]*enlisted)
			c.exited = true
			c.mu.Unlock()

			break
		}

		batch := make([]*enlisted, 0, len(c.entries))
		for _, e := range c.entries {
			batch = append(batch, e)
		}

		c.entries = make(map[string]*enlisted)
		c.mu.Unlock()

		sort.Slice(batch, func(i, j int) bool {
			if batch[i].priority != batch[j].priority {
				return batch[i].priority < batch[j].priority
			}

			return batch[i].seq < batch[j].seq
		})

		for _, e := range batch {
			if e.onExit == nil {
				continue
			}

			if err := runExit(e, completed); err != nil {
				enlistmentFailures.Inc()
				collected.Add(err)
			}
		}
	}

	return collected.Aggregate()
}

func runExit(e *enlisted, completed bool) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("enlisted %q: %w", e.key, errs.Recovered(r))
		}
	}()

	if err := e.onExit(completed); err != nil {
		return fmt.Errorf("enlisted %q: %w", e.key, err)
	}

	return nil
}

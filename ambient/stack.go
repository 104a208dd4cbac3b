package ambient

import (
	"fmt"
	"sync"
)

// Stack is a LIFO stack local to one chain. All operations are mutually
// exclusive.
type Stack[T any] struct {
	name  string
	mu    sync.Mutex
	items []T
}

// Name returns the stack name.
func (s *Stack[T]) Name() string {
	return s.name
}

// Push makes value the new top.
func (s *Stack[T]) Push(value T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = append(s.items, value)
}

// Pop removes and returns the top.
func (s *Stack[T]) Pop() (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.popLocked()
}

// PopIf removes and returns the top only when match accepts it. When the
// stack is empty it fails with ErrNoAmbient, when match rejects the top it
// fails with ErrNotTop and leaves the stack untouched.
func (s *Stack[T]) PopIf(match func(T) bool) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T

	if len(s.items) == 0 {
		return zero, fmt.Errorf("%w: stack %q is empty", ErrNoAmbient, s.name)
	}

	if !match(s.items[len(s.items)-1]) {
		return zero, fmt.Errorf("%w: stack %q", ErrNotTop, s.name)
	}

	return s.popLocked()
}

func (s *Stack[T]) popLocked() (T, error) {
	var zero T

	n := len(s.items)
	if n == 0 {
		return zero, fmt.Errorf("%w: stack %q is empty", ErrNoAmbient, s.name)
	}

	top := s.items[n-1]
	s.items[n-1] = zero
	s.items = s.items[:n-1]

	return top, nil
}

// Peek returns the top without removing it.
func (s *Stack[T]) Peek() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T

	if len(s.items) == 0 {
		return zero, false
	}

	return s.items[len(s.items)-1], true
}

// Len returns the stack depth.
func (s *Stack[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.items)
}

// Items returns a copy of the stack, bottom first.
func (s *Stack[T]) Items() []T {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]T, len(s.items))
	copy(out, s.items)

	return out
}

// Contains reports whether any element satisfies match.
func (s *Stack[T]) Contains(match func(T) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range s.items {
		if match(item) {
			return true
		}
	}

	return false
}

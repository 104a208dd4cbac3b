// Package contexts provides typed access to values carried by a context.Context.
//
// Ambient state (the current scope, the current scope context, logging
// attributes) travels with the logical call chain through context values
// rather than through globals. Key gives each such value a compile-time type.
package contexts

import "context"

// Key is a typed context key. Two keys are equal only if they are the same
// pointer, so unrelated packages never collide even with identical names.
type Key[V any] struct {
	name string
}

// NewKey creates a key. The name is only used for debugging output.
func NewKey[V any](name string) *Key[V] {
	return &Key[V]{name: name}
}

func (k *Key[V]) String() string {
	return "contexts.Key(" + k.name + ")"
}

// With stores value under the key. If ctx is nil, a background context is used.
func (k *Key[V]) With(ctx context.Context, value V) context.Context {
	return WithValue(ctx, k, value)
}

// Get returns the value stored under the key, or the zero value and false.
func (k *Key[V]) Get(ctx context.Context) (V, bool) {
	return GetValue[*Key[V], V](ctx, k)
}

// EnsureContext will choose the first non-nil context passed in. If all values
// are nil, a new context will be created.
func EnsureContext(ctx ...context.Context) context.Context {
	for _, c := range ctx {
		if c != nil {
			return c
		}
	}

	return context.Background()
}

// IsContextAlive returns true if the context is not done.
func IsContextAlive(ctx context.Context) bool {
	if ctx == nil {
		return false
	}

	select {
	case <-ctx.Done():
		return false
	default:
		return true
	}
}

// WithValue is a type-safe wrapper around context.WithValue. If ctx is nil,
// a new background context is created.
func WithValue[K any, V any](ctx context.Context, key K, value V) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	return context.WithValue(ctx, key, value)
}

// GetValue is a type-safe wrapper around context.Value. Returns the value and
// true if found and the type matches, or the zero value of V and false otherwise.
func GetValue[K any, V any](ctx context.Context, key K) (V, bool) {
	var zero V

	if ctx == nil {
		return zero, false
	}

	val := ctx.Value(key)
	if val == nil {
		return zero, false
	}

	v, ok := val.(V)
	if !ok {
		return zero, false
	}

	return v, true
}

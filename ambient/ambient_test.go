package ambient

import (
	"sync"
	"testing"

	errs "github.com/amp-labs/amp-uow/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrom(t *testing.T) {
	t.Parallel()

	_, err := From(t.Context())
	require.ErrorIs(t, err, ErrNoChain)

	ctx := NewChain(t.Context())
	chain, err := From(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, chain.ID())
}

func TestEnsureChain(t *testing.T) {
	t.Parallel()

	ctx := NewChain(t.Context())
	first, err := From(ctx)
	require.NoError(t, err)

	again, err := From(EnsureChain(ctx))
	require.NoError(t, err)
	assert.Same(t, first, again)

	fresh, err := From(EnsureChain(t.Context()))
	require.NoError(t, err)
	assert.NotSame(t, first, fresh)
}

func TestStack_PushPopPeek(t *testing.T) {
	t.Parallel()

	stack, err := Lookup[int](NewChain(t.Context()), "numbers")
	require.NoError(t, err)

	_, ok := stack.Peek()
	assert.False(t, ok)

	_, err = stack.Pop()
	require.ErrorIs(t, err, ErrNoAmbient)

	stack.Push(1)
	stack.Push(2)

	top, ok := stack.Peek()
	assert.True(t, ok)
	assert.Equal(t, 2, top)
	assert.Equal(t, []int{1, 2}, stack.Items())

	v, err := stack.Pop()
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, stack.Len())
}

func TestStack_PopIf(t *testing.T) {
	t.Parallel()

	stack, err := Lookup[string](NewChain(t.Context()), "names")
	require.NoError(t, err)

	_, err = stack.PopIf(func(string) bool { return true })
	require.ErrorIs(t, err, ErrNoAmbient)

	stack.Push("root")
	stack.Push("child")

	_, err = stack.PopIf(func(s string) bool { return s == "root" })
	require.ErrorIs(t, err, ErrNotTop)
	assert.Equal(t, 2, stack.Len(), "a rejected pop leaves the stack untouched")

	v, err := stack.PopIf(func(s string) bool { return s == "child" })
	require.NoError(t, err)
	assert.Equal(t, "child", v)
}

func TestStackOf_TypeMismatch(t *testing.T) {
	t.Parallel()

	ctx := NewChain(t.Context())

	_, err := Lookup[int](ctx, "shared")
	require.NoError(t, err)

	_, err = Lookup[string](ctx, "shared")
	require.ErrorIs(t, err, errs.ErrWrongType)
}

func TestFork_DoesNotLeak(t *testing.T) {
	t.Parallel()

	parent := NewChain(t.Context())

	stack, err := Lookup[int](parent, "numbers")
	require.NoError(t, err)
	stack.Push(7)

	var (
		wg     sync.WaitGroup
		forked int
	)

	wg.Add(1)

	go func() {
		defer wg.Done()

		child, err := Lookup[int](Fork(parent), "numbers")
		if err == nil {
			forked = child.Len()
		}
	}()

	wg.Wait()

	assert.Equal(t, 0, forked, "a forked chain starts empty")
	assert.Equal(t, 1, stack.Len())
}

func TestStack_Contains(t *testing.T) {
	t.Parallel()

	stack, err := Lookup[string](NewChain(t.Context()), "names")
	require.NoError(t, err)

	stack.Push("a")
	stack.Push("b")

	assert.True(t, stack.Contains(func(s string) bool { return s == "a" }))
	assert.False(t, stack.Contains(func(s string) bool { return s == "c" }))
	assert.Equal(t, []string{"a", "b"}, stack.Items())
}

package migration_test

import (
	"fmt"
	"testing"

	"github.com/amp-labs/amp-uow/migration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sequential returns a random state generator yielding R1, R2, ...
func sequential() migration.PlanOption {
	n := 0

	return migration.WithRandomState(func() string {
		n++

		return fmt.Sprintf("R%d", n)
	})
}

func TestPlan_Linear(t *testing.T) {
	t.Parallel()

	plan := migration.NewPlan("linear").
		To("A").
		ToMigration("B", "m1").
		ToMigration("C", "m2")

	final, err := plan.FinalState()
	require.NoError(t, err)
	assert.Equal(t, "C", final)
	assert.Equal(t, "C", plan.PrevState())
	assert.Equal(t, []string{"", "A", "B", "C"}, plan.KnownStates())
	assert.Equal(t, []migration.Transition{
		{Source: "", Target: "A", Type: migration.NoopType},
		{Source: "A", Target: "B", Type: "m1"},
		{Source: "B", Target: "C", Type: "m2"},
	}, plan.Transitions())

	tr, ok := plan.Transition("A")
	assert.True(t, ok)
	assert.Equal(t, migration.Type("m1"), tr.Type)

	_, ok = plan.Transition("C")
	assert.False(t, ok)
	assert.True(t, plan.Known("C"))
	assert.False(t, plan.Known("Z"))
}

func TestPlan_BuilderErrorsAreSticky(t *testing.T) {
	t.Parallel()

	t.Run("redefinition", func(t *testing.T) {
		t.Parallel()

		plan := migration.NewPlan("p").To("A").From("").To("B")

		require.ErrorIs(t, plan.Err(), migration.ErrTransitionExists)

		var te *migration.TransitionError
		require.ErrorAs(t, plan.Err(), &te)
		assert.Empty(t, te.From)
		assert.Equal(t, "B", te.To)

		first := plan.Err()

		plan.To("C")
		assert.Same(t, first, plan.Err())
		assert.False(t, plan.Known("C"))
		require.ErrorIs(t, plan.Validate(), migration.ErrTransitionExists)

		_, err := plan.FinalState()
		require.ErrorIs(t, err, migration.ErrTransitionExists)
	})

	t.Run("same state", func(t *testing.T) {
		t.Parallel()

		plan := migration.NewPlan("p").To("A").To("A")
		require.ErrorIs(t, plan.Err(), migration.ErrSameState)
	})

	t.Run("empty target", func(t *testing.T) {
		t.Parallel()

		plan := migration.NewPlan("p").To(" ")
		require.ErrorIs(t, plan.Err(), migration.ErrEmptyState)
	})

	t.Run("reset clears", func(t *testing.T) {
		t.Parallel()

		plan := migration.NewPlan("p").To("A").From("").To("B")
		require.Error(t, plan.Err())

		plan.Reset().To("B")
		require.NoError(t, plan.Err())

		final, err := plan.FinalState()
		require.NoError(t, err)
		assert.Equal(t, "B", final)
	})
}

func TestPlan_Validate(t *testing.T) {
	t.Parallel()

	t.Run("multiple dead ends", func(t *testing.T) {
		t.Parallel()

		plan := migration.NewPlan("p").To("s10").From("x").To("s2")

		err := plan.Validate()
		require.ErrorIs(t, err, migration.ErrMultipleFinalStates)

		var de *migration.DeadEndError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, []string{"s2", "s10"}, de.States)
	})

	t.Run("loop", func(t *testing.T) {
		t.Parallel()

		plan := migration.NewPlan("p", migration.WithInitialState("A")).To("B").To("C").To("A")

		err := plan.Validate()
		require.ErrorIs(t, err, migration.ErrLoop)

		var le *migration.LoopError
		require.ErrorAs(t, err, &le)
		assert.Contains(t, []string{"A", "B", "C"}, le.State)
	})

	t.Run("empty plan", func(t *testing.T) {
		t.Parallel()

		require.ErrorIs(t, migration.NewPlan("p").Validate(), migration.ErrNoFinalState)
	})

	t.Run("final state follows changes", func(t *testing.T) {
		t.Parallel()

		plan := migration.NewPlan("p").To("A")

		final, err := plan.FinalState()
		require.NoError(t, err)
		assert.Equal(t, "A", final)

		plan.To("B")

		final, err = plan.FinalState()
		require.NoError(t, err)
		assert.Equal(t, "B", final)
	})
}

func TestPlan_ToWithReplace(t *testing.T) {
	t.Parallel()

	plan := migration.NewPlan("p").To("A").ToWithReplace("B", "C", "fixed", "recover")

	require.NoError(t, plan.Validate())
	assert.Equal(t, []migration.Transition{
		{Source: "", Target: "A", Type: migration.NoopType},
		{Source: "A", Target: "C", Type: "fixed"},
		{Source: "B", Target: "C", Type: "recover"},
	}, plan.Transitions())
	assert.Equal(t, "C", plan.PrevState())

	path, err := plan.FollowPath("B", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C"}, path)
}

func TestPlan_ToWithClone(t *testing.T) {
	t.Parallel()

	t.Run("replays the chain", func(t *testing.T) {
		t.Parallel()

		plan := migration.NewPlan("p", sequential()).
			To("A").
			ToMigration("B", "m1").
			ToMigration("C", "m2").
			ToWithClone("A", "C", "D")

		require.NoError(t, plan.Err())

		final, err := plan.FinalState()
		require.NoError(t, err)
		assert.Equal(t, "D", final)

		tr, ok := plan.Transition("C")
		require.True(t, ok)
		assert.Equal(t, migration.Transition{Source: "C", Target: "R1", Type: "m1"}, tr)

		tr, ok = plan.Transition("R1")
		require.True(t, ok)
		assert.Equal(t, migration.Transition{Source: "R1", Target: "D", Type: "m2"}, tr)
	})

	t.Run("unknown start", func(t *testing.T) {
		t.Parallel()

		plan := migration.NewPlan("p").To("A").ToWithClone("X", "A", "D")

		require.ErrorIs(t, plan.Err(), migration.ErrUnknownState)

		var se *migration.StateError
		require.ErrorAs(t, plan.Err(), &se)
		assert.Equal(t, "X", se.State)
	})

	t.Run("same start and end", func(t *testing.T) {
		t.Parallel()

		plan := migration.NewPlan("p").To("A").ToWithClone("A", "A", "D")
		require.ErrorIs(t, plan.Err(), migration.ErrSameState)
	})
}

func TestPlan_Merge(t *testing.T) {
	t.Parallel()

	t.Run("joins both branches", func(t *testing.T) {
		t.Parallel()

		plan := migration.NewPlan("p", sequential()).To("A")
		plan.Merge().
			ToMigration("B", "m1").
			With().
			ToMigration("C", "m2").
			As("D")

		require.NoError(t, plan.Err())

		final, err := plan.FinalState()
		require.NoError(t, err)
		assert.Equal(t, "D", final)

		assert.Equal(t, []migration.Transition{
			{Source: "", Target: "A", Type: migration.NoopType},
			{Source: "A", Target: "B", Type: "m1"},
			{Source: "B", Target: "R1", Type: "m2"},
			{Source: "C", Target: "D", Type: "m1"},
			{Source: "R1", Target: "D", Type: migration.NoopType},
		}, plan.Transitions())

		path, err := plan.FollowPath("", "")
		require.NoError(t, err)
		assert.Equal(t, []string{"", "A", "B", "R1", "D"}, path)

		path, err = plan.FollowPath("C", "D")
		require.NoError(t, err)
		assert.Equal(t, []string{"C", "D"}, path)
	})

	t.Run("as before with", func(t *testing.T) {
		t.Parallel()

		plan := migration.NewPlan("p").To("A")
		plan.Merge().To("B").As("D")

		require.ErrorIs(t, plan.Err(), migration.ErrMerge)
	})

	t.Run("with twice", func(t *testing.T) {
		t.Parallel()

		plan := migration.NewPlan("p").To("A")
		plan.Merge().To("B").With().With()

		require.ErrorIs(t, plan.Err(), migration.ErrMerge)
	})
}

func TestPlan_FollowPath(t *testing.T) {
	t.Parallel()

	plan := migration.NewPlan("p").To("A").To("B").To("C")

	path, err := plan.FollowPath("A", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, path)

	path, err = plan.FollowPath("", "B")
	require.NoError(t, err)
	assert.Equal(t, []string{"", "A", "B"}, path)

	_, err = plan.FollowPath("Z", "")
	require.ErrorIs(t, err, migration.ErrUnknownState)

	path, err = plan.FollowPath("B", "A")
	require.ErrorIs(t, err, migration.ErrPathMismatch)
	assert.Equal(t, []string{"B", "C"}, path)
}

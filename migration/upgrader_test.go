package migration_test

import (
	"context"
	"testing"

	"github.com/amp-labs/amp-uow/database"
	"github.com/amp-labs/amp-uow/migration"
	"github.com/amp-labs/amp-uow/store"
	"github.com/amp-labs/amp-uow/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUpgrader(t *testing.T, registry *migration.Registry) (*migration.Upgrader, *database.SQLFactory) {
	t.Helper()

	provider, factory := newProvider(t)

	states, err := store.NewSQL(database.DialectSQLite)
	require.NoError(t, err)

	return migration.NewUpgrader(provider, registry, states), factory
}

func TestUpgrader_PersistsAndResumes(t *testing.T) {
	t.Parallel()

	ctx := tests.GetUniqueContext(t)

	registry := workingRegistry().RegisterFunc("M3", func(_ context.Context, mctx *migration.Context) error {
		return mctx.Execute("INSERT INTO items (name) VALUES (?)", "second")
	})

	upgrader, factory := newUpgrader(t, registry)

	state, err := upgrader.CurrentState(ctx, endToEndPlan())
	require.NoError(t, err)
	assert.Empty(t, state)

	result, err := upgrader.Execute(ctx, endToEndPlan())
	require.NoError(t, err)
	assert.True(t, result.Successful())

	state, err = upgrader.CurrentState(ctx, endToEndPlan())
	require.NoError(t, err)
	assert.Equal(t, "C", state)

	again, err := upgrader.Execute(ctx, endToEndPlan())
	require.NoError(t, err)
	assert.True(t, again.Successful())
	assert.Equal(t, "C", again.InitialState())
	assert.Empty(t, again.CompletedTransitions())

	extended := endToEndPlan().ToMigration("D", "M3")

	result, err = upgrader.Execute(ctx, extended)
	require.NoError(t, err)
	assert.Equal(t, []migration.Transition{{Source: "C", Target: "D", Type: "M3"}}, result.CompletedTransitions())
	assert.Equal(t, 2, countRows(t, factory, "items"))

	state, err = upgrader.CurrentState(ctx, extended)
	require.NoError(t, err)
	assert.Equal(t, "D", state)
}

func TestUpgrader_FailureKeepsState(t *testing.T) {
	t.Parallel()

	ctx := tests.GetUniqueContext(t)

	registry := workingRegistry().RegisterFunc("M2", func(context.Context, *migration.Context) error {
		return errBoom
	})

	upgrader, _ := newUpgrader(t, registry)

	result, err := upgrader.Execute(ctx, endToEndPlan())
	require.ErrorIs(t, err, errBoom)
	assert.False(t, result.Successful())

	state, err := upgrader.CurrentState(ctx, endToEndPlan())
	require.NoError(t, err)
	assert.Empty(t, state)
}

func TestUpgrader_RequiresPlanName(t *testing.T) {
	t.Parallel()

	upgrader, _ := newUpgrader(t, workingRegistry())

	_, err := upgrader.Execute(tests.GetUniqueContext(t), migration.NewPlan("").To("A"))
	require.ErrorIs(t, err, migration.ErrPlanNameRequired)
}

func TestStateKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "upgrader.state.users", migration.StateKey("users"))
}

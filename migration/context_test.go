package migration_test

import (
	"context"
	"testing"

	"github.com/amp-labs/amp-uow/database"
	"github.com/amp-labs/amp-uow/migration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func beginTx(t *testing.T) (database.Transaction, *database.SQLFactory) {
	t.Helper()

	factory := openFactory(t)

	tx, err := factory.Begin(t.Context(), database.Unspecified)
	require.NoError(t, err)

	t.Cleanup(func() { _ = tx.Close() })

	return tx, factory
}

func TestContext_CompleteRunsOnce(t *testing.T) {
	t.Parallel()

	plan := migration.NewPlan("p").To("A")
	mctx := migration.NewContext(plan, migration.Transition{Target: "A"}, nil)

	calls := 0
	mctx.OnComplete(func() { calls++ })

	assert.False(t, mctx.Completed())

	mctx.Complete()
	mctx.Complete()

	assert.True(t, mctx.Completed())
	assert.Equal(t, 1, calls)
	assert.Same(t, plan, mctx.Plan())
	assert.Equal(t, "A", mctx.Transition().Target)
}

func TestContext_BuildOneAtATime(t *testing.T) {
	t.Parallel()

	mctx := migration.NewContext(migration.NewPlan("p"), migration.Transition{}, nil)

	b, err := mctx.Build()
	require.NoError(t, err)
	assert.True(t, mctx.BuildingExpression())

	_, err = mctx.Build()
	require.ErrorIs(t, err, migration.ErrExpressionInProgress)
	require.ErrorIs(t, mctx.Execute("SELECT 1"), migration.ErrExpressionInProgress)
	require.ErrorIs(t, mctx.Append(migration.NewExpression("SELECT 1")), migration.ErrExpressionInProgress)

	require.NoError(t, b.SQL("SELECT 1").Do())
	assert.False(t, mctx.BuildingExpression())
	require.ErrorIs(t, b.Do(), migration.ErrExpressionExecuted)
	assert.Equal(t, 1, mctx.Pending())
}

func TestExpression_RunsOnce(t *testing.T) {
	t.Parallel()

	tx, _ := beginTx(t)
	ctx := t.Context()

	e := migration.NewExpression("CREATE TABLE once (id INTEGER)")
	require.NoError(t, e.Execute(ctx, tx))
	assert.True(t, e.Executed())
	require.ErrorIs(t, e.Execute(ctx, tx), migration.ErrExpressionExecuted)
}

func TestUnit_RunsQueuedExpressionsInOrder(t *testing.T) {
	t.Parallel()

	tx, _ := beginTx(t)
	ctx := t.Context()

	registry := migration.NewRegistry().RegisterFunc("seed", func(_ context.Context, mctx *migration.Context) error {
		if err := mctx.Execute("CREATE TABLE seq (n INTEGER)"); err != nil {
			return err
		}

		b, err := mctx.Build()
		if err != nil {
			return err
		}

		return b.SQL("INSERT INTO seq (n) VALUES (?)", 1).SQL("INSERT INTO seq (n) VALUES (?)", 2).Do()
	})

	mctx := migration.NewContext(migration.NewPlan("p"), migration.Transition{Type: "seed"}, tx)

	unit, err := registry.Build("seed", mctx)
	require.NoError(t, err)
	require.NoError(t, unit.Run(ctx))
	assert.Equal(t, int64(2), mctx.Index())
	assert.Zero(t, mctx.Pending())

	var total int
	require.NoError(t, tx.QueryRowContext(ctx, "SELECT SUM(n) FROM seq").Scan(&total))
	assert.Equal(t, 3, total)

	require.ErrorIs(t, unit.Run(ctx), migration.ErrMigrationExecuted)
}

func TestUnit_UnfinishedExpression(t *testing.T) {
	t.Parallel()

	tx, _ := beginTx(t)

	registry := migration.NewRegistry().RegisterFunc("dangling", func(_ context.Context, mctx *migration.Context) error {
		_, err := mctx.Build()

		return err
	})

	mctx := migration.NewContext(migration.NewPlan("p"), migration.Transition{}, tx)

	unit, err := registry.Build("dangling", mctx)
	require.NoError(t, err)
	require.ErrorIs(t, unit.Run(t.Context()), migration.ErrExpressionNotFinished)
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	registry := migration.NewRegistry().RegisterFunc("b", nil).RegisterFunc("a", nil)

	assert.True(t, registry.Has(migration.NoopType))
	assert.Equal(t, []migration.Type{"a", "b", migration.NoopType}, registry.Types())

	_, err := registry.Build("missing", migration.NewContext(migration.NewPlan("p"), migration.Transition{}, nil))
	require.ErrorIs(t, err, migration.ErrUnknownMigrationType)
}

package scope

import (
	"context"
	"testing"

	"github.com/amp-labs/amp-uow/database"
	_ "github.com/amp-labs/amp-uow/database/drivers"
	"github.com/amp-labs/amp-uow/logger"
	"github.com/amp-labs/amp-uow/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteProvider(t *testing.T) (*Provider, *database.SQLFactory) {
	t.Helper()

	factory, err := database.Open(t.Context(), database.Config{
		Dialect: database.DialectSQLite,
		DSN:     ":memory:",
	})
	require.NoError(t, err)

	t.Cleanup(func() { _ = factory.Close() })

	return NewProvider(factory), factory
}

func TestScope_TransactionOutlivesTheContextThatOpenedIt(t *testing.T) {
	t.Parallel()

	ctx := tests.GetUniqueContext(t)
	provider, factory := newSQLiteProvider(t)

	root, err := provider.CreateScope(ctx)
	require.NoError(t, err)

	short, cancel := context.WithCancel(ctx)

	tx, err := root.Database(short)
	require.NoError(t, err)

	_, err = tx.ExecContext(short, "CREATE TABLE t (v INTEGER)")
	require.NoError(t, err)

	cancel()

	child, err := provider.CreateScope(ctx)
	require.NoError(t, err)

	childTx, err := child.Database(ctx)
	require.NoError(t, err)

	_, err = childTx.ExecContext(ctx, "INSERT INTO t (v) VALUES (1)")
	require.NoError(t, err)

	child.Complete()
	require.NoError(t, child.Dispose(ctx))

	root.Complete()
	require.NoError(t, root.Dispose(ctx))

	var count int
	require.NoError(t, factory.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM t").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestDo_ContextCarriesScopeID(t *testing.T) {
	t.Parallel()

	ctx := tests.GetUniqueContext(t)
	provider, _ := newSQLiteProvider(t)

	require.NoError(t, Do(ctx, provider, func(ctx context.Context, s *Scope) error {
		id, ok := logger.GetScopeID(ctx)
		require.True(t, ok)
		assert.Equal(t, s.ID(), id)

		return nil
	}))
}
